// Package pseudofs bind-mounts the host's dev, proc and sys into a rootfs.
package pseudofs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/old-void-ppc/void-mklive/internal/hostos"
	"github.com/old-void-ppc/void-mklive/internal/utils/logger"
)

// Names are the pseudo-filesystems shared with every chroot, in mount order.
var Names = []string{"dev", "proc", "sys"}

// Entry is one pseudo-filesystem bind mount.
type Entry struct {
	HostPath      string
	RootfsRelPath string
	Mounted       bool
}

// Manager mounts and unmounts the pseudo-filesystems through a Host.
type Manager struct {
	host hostos.Host
}

func NewManager(host hostos.Host) *Manager {
	if host == nil {
		host = hostos.Default
	}
	return &Manager{host: host}
}

// Entries returns the mount records for rootfs with their current state.
func (m *Manager) Entries(rootfs string) []Entry {
	entries := make([]Entry, 0, len(Names))
	for _, name := range Names {
		e := Entry{HostPath: "/" + name, RootfsRelPath: name}
		if mounted, err := m.host.IsMountPoint(filepath.Join(rootfs, name)); err == nil {
			e.Mounted = mounted
		}
		entries = append(entries, e)
	}
	return entries
}

// MountAll bind-mounts dev, proc and sys read-only into rootfs. Targets that
// already are mount points are left alone, so repeated calls are harmless.
func (m *Manager) MountAll(rootfs string) ([]Entry, error) {
	log := logger.Logger()
	entries := make([]Entry, 0, len(Names))

	for _, name := range Names {
		e := Entry{HostPath: "/" + name, RootfsRelPath: name}
		target := filepath.Join(rootfs, e.RootfsRelPath)

		if err := os.MkdirAll(target, 0755); err != nil {
			return entries, fmt.Errorf("failed to create %s: %w", target, err)
		}
		mounted, err := m.host.IsMountPoint(target)
		if err != nil {
			return entries, err
		}
		if !mounted {
			log.Debugf("Mounting %s on %s", e.HostPath, target)
			if err := m.host.BindMount(e.HostPath, target, true); err != nil {
				return entries, fmt.Errorf("failed to mount %s: %w", e.RootfsRelPath, err)
			}
		}
		e.Mounted = true
		entries = append(entries, e)
	}
	return entries, nil
}

// UnmountAll force-unmounts every pseudo-filesystem under rootfs. Errors are
// logged and dropped: a target may never have been mounted.
func (m *Manager) UnmountAll(rootfs string) {
	log := logger.Logger()
	if _, err := os.Stat(rootfs); err != nil {
		return
	}
	for _, name := range Names {
		target := filepath.Join(rootfs, name)
		if err := m.host.Unmount(target, true); err != nil {
			log.Debugf("Ignoring unmount failure for %s: %v", target, err)
		}
	}
}
