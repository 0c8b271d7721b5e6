//go:build linux

package hostos

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/moby/sys/mount"
	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"

	"github.com/old-void-ppc/void-mklive/internal/utils/logger"
	"github.com/old-void-ppc/void-mklive/internal/utils/shell"
)

// LinuxHost issues the real mount(2)/umount(2) calls.
type LinuxHost struct{}

func NewHost() Host {
	return &LinuxHost{}
}

func (h *LinuxHost) IsMountPoint(path string) (bool, error) {
	mounted, err := mountinfo.Mounted(path)
	if err != nil {
		return false, fmt.Errorf("failed to check mount point %s: %w", path, err)
	}
	return mounted, nil
}

// BindMount mirrors `mount -r --bind`: MS_RDONLY is ignored on the initial
// bind, so read-only needs a second remount pass.
func (h *LinuxHost) BindMount(src, target string, readOnly bool) error {
	logger.Logger().Debugf("Bind mounting %s on %s (ro=%t)", src, target, readOnly)
	if err := unix.Mount(src, target, "", unix.MS_BIND, ""); err != nil {
		return fmt.Errorf("failed to bind mount %s on %s: %w", src, target, err)
	}
	if !readOnly {
		return nil
	}
	if err := unix.Mount("", target, "", unix.MS_REMOUNT|unix.MS_BIND|unix.MS_RDONLY, ""); err != nil {
		_ = unix.Unmount(target, unix.MNT_DETACH)
		return fmt.Errorf("failed to remount %s read-only: %w", target, err)
	}
	return nil
}

func (h *LinuxHost) Unmount(target string, force bool) error {
	flags := 0
	if force {
		flags = unix.MNT_FORCE
	}
	if err := unix.Unmount(target, flags); err != nil {
		return fmt.Errorf("failed to unmount %s: %w", target, err)
	}
	return nil
}

func (h *LinuxHost) LoadModule(name string) error {
	_, err := shell.ExecCmd(shell.Command{Args: []string{"modprobe", "-q", name}})
	return err
}

func (h *LinuxHost) MountBinfmtMisc(dir string) error {
	if err := mount.Mount("binfmt_misc", dir, "binfmt_misc", ""); err != nil {
		return fmt.Errorf("failed to mount binfmt_misc on %s: %w", dir, err)
	}
	return nil
}

func (h *LinuxHost) BinfmtRegistered(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func (h *LinuxHost) RegisterBinfmt(dir, record string) error {
	register := filepath.Join(dir, "register")
	f, err := os.OpenFile(register, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", register, err)
	}
	defer f.Close()

	// The kernel parses one record per write.
	if _, err := f.Write([]byte(record)); err != nil {
		return fmt.Errorf("failed to write binfmt record to %s: %w", register, err)
	}
	return nil
}
