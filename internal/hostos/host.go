// Package hostos isolates the privileged, host-global side effects of
// preparing a chroot: bind mounts, kernel module loading and binfmt_misc
// registration. LinuxHost performs them for real; FakeHost records them.
package hostos

// BinfmtMiscDir is where the kernel exposes the binfmt_misc interface.
const BinfmtMiscDir = "/proc/sys/fs/binfmt_misc"

// Host is the set of kernel-level operations the chroot layer needs.
type Host interface {
	// IsMountPoint reports whether path is the target of a mount.
	IsMountPoint(path string) (bool, error)
	// BindMount binds src onto target, remounting it read-only if requested.
	BindMount(src, target string, readOnly bool) error
	// Unmount detaches target; force maps to MNT_FORCE.
	Unmount(target string, force bool) error
	// LoadModule loads a kernel module, quietly succeeding if it is built in.
	LoadModule(name string) error
	// MountBinfmtMisc mounts the binfmt_misc filesystem on dir.
	MountBinfmtMisc(dir string) error
	// BinfmtRegistered reports whether dir/name exists.
	BinfmtRegistered(dir, name string) bool
	// RegisterBinfmt writes one registration record to dir/register.
	RegisterBinfmt(dir, record string) error
}

// Default is the host used when a component is built without an explicit one.
var Default Host = NewHost()
