// Package arch holds the static knowledge about target architectures: which
// instruction-set family an XBPS architecture string belongs to, which qemu
// user emulator runs it, and the binfmt_misc magic/mask that selects it.
package arch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownArchitecture = errors.New("unknown target architecture")
	ErrUnknownPlatform     = errors.New("unable to compute target architecture from platform")
)

// MuslSuffix marks an architecture built against musl instead of glibc.
const MuslSuffix = "-musl"

// Family is an instruction-set family. Two architectures of the same family
// run each other's binaries without emulation.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyX86
	FamilyARM
	FamilyAArch64
	FamilyPPC64LE
	FamilyPPC64
	FamilyPPC
	FamilyMIPSEL
)

func (f Family) String() string {
	switch f {
	case FamilyX86:
		return "x86"
	case FamilyARM:
		return "arm"
	case FamilyAArch64:
		return "aarch64"
	case FamilyPPC64LE:
		return "ppc64le"
	case FamilyPPC64:
		return "ppc64"
	case FamilyPPC:
		return "ppc"
	case FamilyMIPSEL:
		return "mipsel"
	default:
		return "unknown"
	}
}

// Descriptor describes one foreign instruction set and how the kernel hands
// its executables to qemu.
type Descriptor struct {
	Name     string // binfmt_misc registration name, e.g. "qemu-arm"
	Family   Family
	Prefixes []string
	Magic    []byte // ELF header prefix
	Mask     []byte // don't-care mask for Magic
	Emulator string // static qemu binary, e.g. "qemu-arm-static"
}

// Matches reports whether the architecture string belongs to this descriptor.
func (d *Descriptor) Matches(archStr string) bool {
	for _, p := range d.Prefixes {
		if strings.HasPrefix(archStr, p) {
			return true
		}
	}
	return false
}

// Magic and mask values follow qemu-binfmt-conf.sh. The masks clear the ELF
// OS/ABI byte and the low bit of e_type so ET_EXEC and ET_DYN both match.
var catalog = []Descriptor{
	{
		Name:     "qemu-arm",
		Family:   FamilyARM,
		Prefixes: []string{"armv"},
		Magic:    []byte("\x7fELF\x01\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x28\x00"),
		Mask:     []byte("\xff\xff\xff\xff\xff\xff\xff\x00\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff\xff"),
		Emulator: "qemu-arm-static",
	},
	{
		Name:     "qemu-aarch64",
		Family:   FamilyAArch64,
		Prefixes: []string{"aarch64"},
		Magic:    []byte("\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\xb7\x00"),
		Mask:     []byte("\xff\xff\xff\xff\xff\xff\xff\x00\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff\xff"),
		Emulator: "qemu-aarch64-static",
	},
	{
		Name:     "qemu-ppc64le",
		Family:   FamilyPPC64LE,
		Prefixes: []string{"ppc64le"},
		Magic:    []byte("\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x15\x00"),
		Mask:     []byte("\xff\xff\xff\xff\xff\xff\xff\xfc\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff\x00"),
		Emulator: "qemu-ppc64le-static",
	},
	{
		Name:     "qemu-ppc64",
		Family:   FamilyPPC64,
		Prefixes: []string{"ppc64"},
		Magic:    []byte("\x7fELF\x02\x02\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x15"),
		Mask:     []byte("\xff\xff\xff\xff\xff\xff\xff\x00\xff\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff"),
		Emulator: "qemu-ppc64-static",
	},
	{
		Name:     "qemu-ppc",
		Family:   FamilyPPC,
		Prefixes: []string{"ppc"},
		Magic:    []byte("\x7fELF\x01\x02\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x14"),
		Mask:     []byte("\xff\xff\xff\xff\xff\xff\xff\x00\xff\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff"),
		Emulator: "qemu-ppc-static",
	},
	{
		Name:     "qemu-mipsel",
		Family:   FamilyMIPSEL,
		Prefixes: []string{"mipsel"},
		Magic:    []byte("\x7fELF\x01\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x08\x00"),
		Mask:     []byte("\xff\xff\xff\xff\xff\xff\xff\x00\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff\xff"),
		Emulator: "qemu-mipsel-static",
	},
	{
		Name:     "qemu-x86_64",
		Family:   FamilyX86,
		Prefixes: []string{"x86_64"},
		Magic:    []byte("\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x3e\x00"),
		Mask:     []byte("\xff\xff\xff\xff\xff\xfe\xfe\x00\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff\xff"),
		Emulator: "qemu-x86_64-static",
	},
	{
		Name:     "qemu-i386",
		Family:   FamilyX86,
		Prefixes: []string{"i386", "i486", "i586", "i686"},
		Magic:    []byte("\x7fELF\x01\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x03\x00"),
		Mask:     []byte("\xff\xff\xff\xff\xff\xfe\xfe\x00\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff\xff"),
		Emulator: "qemu-i386-static",
	},
}

// compatible lists, per host family, the target families it executes natively.
var compatible = map[Family][]Family{
	FamilyX86:     {FamilyX86},
	FamilyARM:     {FamilyARM},
	FamilyAArch64: {FamilyAArch64},
	FamilyPPC64LE: {FamilyPPC64LE},
	FamilyPPC64:   {FamilyPPC64},
	FamilyPPC:     {FamilyPPC},
	FamilyMIPSEL:  {FamilyMIPSEL},
}

// Lookup returns the descriptor for an architecture string such as
// "armv7l-musl" or "x86_64". The first matching entry wins, so the more
// specific ppc64le/ppc64 entries are listed before ppc.
func Lookup(archStr string) (*Descriptor, error) {
	if archStr == "" {
		return nil, fmt.Errorf("%w: architecture not set", ErrUnknownArchitecture)
	}
	for i := range catalog {
		if catalog[i].Matches(archStr) {
			d := catalog[i]
			return &d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownArchitecture, archStr)
}

// FamilyOf returns the family of an architecture string, FamilyUnknown when
// it is not in the catalog.
func FamilyOf(archStr string) Family {
	d, err := Lookup(archStr)
	if err != nil {
		return FamilyUnknown
	}
	return d.Family
}

// Compatible reports whether a host of hostArch runs targetArch binaries
// without emulation: identical strings, families listed as compatible, or
// an ARM host at least as new as the ARM target.
func Compatible(hostArch, targetArch string) bool {
	if hostArch == "" || targetArch == "" {
		return false
	}
	if hostArch == targetArch {
		return true
	}
	hf, tf := FamilyOf(hostArch), FamilyOf(targetArch)
	if hf == FamilyUnknown || tf == FamilyUnknown {
		return false
	}
	// 32-bit ARM is backwards compatible only: armv7l runs armv6l and
	// armv5tel binaries, never the reverse.
	if hf == FamilyARM && tf == FamilyARM {
		hv, tv := armVersion(hostArch), armVersion(targetArch)
		return hv > 0 && tv > 0 && hv >= tv
	}
	for _, f := range compatible[hf] {
		if f == tf {
			return true
		}
	}
	return false
}

// armVersion returns N for "armvN...", 0 when it cannot be parsed.
func armVersion(archStr string) int {
	rest := strings.TrimPrefix(archStr, "armv")
	if rest == archStr {
		return 0
	}
	v := 0
	for _, c := range rest {
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + int(c-'0')
	}
	return v
}

// BaseArch strips the libc suffix: "armv7l-musl" -> "armv7l".
func BaseArch(archStr string) string {
	return strings.TrimSuffix(archStr, MuslSuffix)
}

// Descriptors returns a copy of the catalog.
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}
