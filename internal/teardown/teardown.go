// Package teardown is the single cleanup and abort path for a session.
package teardown

import (
	"fmt"
	"os"

	"github.com/old-void-ppc/void-mklive/internal/binfmt"
	"github.com/old-void-ppc/void-mklive/internal/buildctx"
	"github.com/old-void-ppc/void-mklive/internal/hostos"
	"github.com/old-void-ppc/void-mklive/internal/pseudofs"
)

// Manager unmounts pseudo-filesystems, removes the emulator copy and, on
// fatal errors, the rootfs itself.
type Manager struct {
	PseudoFS *pseudofs.Manager

	// KeepRootfs preserves the rootfs on FatalAbort.
	KeepRootfs bool

	// Exit terminates the process; tests replace it.
	Exit func(code int)
}

func NewManager(host hostos.Host) *Manager {
	return &Manager{
		PseudoFS: pseudofs.NewManager(host),
		Exit:     os.Exit,
	}
}

// CleanupChroot unmounts dev, proc and sys and removes the emulator copied
// into the rootfs. The rootfs itself is left for the caller to reuse.
func (m *Manager) CleanupChroot(bc *buildctx.BuildContext) {
	log := bc.Logger()
	if bc.Rootfs == "" {
		return
	}
	m.PseudoFS.UnmountAll(bc.Rootfs)

	// Nothing else to undo when the architecture never resolved.
	if _, err := bc.Descriptor(); err != nil {
		return
	}
	native, err := bc.IsNative()
	if err != nil || native {
		return
	}
	if err := binfmt.Remove(bc); err != nil {
		log.Warnf("Failed to remove emulator from rootfs: %v", err)
	}
}

// FatalAbort reports cause, cleans up, deletes the rootfs and exits with
// status 1. It is the only path that destroys a rootfs.
func (m *Manager) FatalAbort(bc *buildctx.BuildContext, cause error) {
	log := bc.Logger()
	log.Errorf("FATAL: %v", cause)

	m.CleanupChroot(bc)

	if bc.Rootfs != "" {
		if _, err := os.Stat(bc.Rootfs); err == nil {
			if m.KeepRootfs {
				log.Warnf("Keeping rootfs %s for inspection", bc.Rootfs)
			} else if busy := m.stillMounted(bc.Rootfs); len(busy) > 0 {
				log.Errorf("Not removing rootfs %s: %v still mounted", bc.Rootfs, busy)
			} else if err := removeRootfs(bc.Rootfs); err != nil {
				log.Errorf("Failed to remove rootfs: %v", err)
			}
		}
	}

	exit := m.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(1)
}

// stillMounted lists the pseudo-filesystems UnmountAll failed to detach.
// RemoveAll would otherwise descend into the host's dev and sys.
func (m *Manager) stillMounted(rootfs string) []string {
	var busy []string
	for _, e := range m.PseudoFS.Entries(rootfs) {
		if e.Mounted {
			busy = append(busy, e.RootfsRelPath)
		}
	}
	return busy
}

func removeRootfs(rootfs string) error {
	if rootfs == "/" {
		return fmt.Errorf("refusing to remove /")
	}
	if err := os.RemoveAll(rootfs); err != nil {
		return fmt.Errorf("failed to remove %s: %w", rootfs, err)
	}
	return nil
}
