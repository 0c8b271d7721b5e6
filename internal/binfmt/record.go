package binfmt

import (
	"fmt"
	"strings"

	"github.com/old-void-ppc/void-mklive/internal/arch"
)

// Record is one binfmt_misc registration line.
type Record struct {
	Name        string
	Offset      string
	Magic       []byte
	Mask        []byte
	Interpreter string
	Flags       string
}

// NewRecord builds the registration for d, pointing at the emulator's
// location inside the chroot.
func NewRecord(d *arch.Descriptor) Record {
	return Record{
		Name:        d.Name,
		Magic:       d.Magic,
		Mask:        d.Mask,
		Interpreter: "/usr/bin/" + d.Emulator,
	}
}

// String renders :name:type:offset:magic:mask:interpreter:flags with magic
// and mask as \xNN escapes, which the kernel decodes itself.
func (r Record) String() string {
	return fmt.Sprintf(":%s:M:%s:%s:%s:%s:%s",
		r.Name, r.Offset, hexEscape(r.Magic), hexEscape(r.Mask), r.Interpreter, r.Flags)
}

func hexEscape(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 4)
	for _, c := range b {
		fmt.Fprintf(&sb, "\\x%02x", c)
	}
	return sb.String()
}
