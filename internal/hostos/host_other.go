//go:build !linux

package hostos

import (
	"errors"
	"runtime"
)

var errUnsupported = errors.New("chroot preparation is only supported on linux, not " + runtime.GOOS)

type unsupportedHost struct{}

func NewHost() Host {
	return unsupportedHost{}
}

func (unsupportedHost) IsMountPoint(string) (bool, error) { return false, errUnsupported }
func (unsupportedHost) BindMount(string, string, bool) error { return errUnsupported }
func (unsupportedHost) Unmount(string, bool) error { return errUnsupported }
func (unsupportedHost) LoadModule(string) error { return errUnsupported }
func (unsupportedHost) MountBinfmtMisc(string) error { return errUnsupported }
func (unsupportedHost) BinfmtRegistered(string, string) bool { return false }
func (unsupportedHost) RegisterBinfmt(string, string) error { return errUnsupported }
