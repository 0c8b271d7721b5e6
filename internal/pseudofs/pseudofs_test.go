package pseudofs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/old-void-ppc/void-mklive/internal/hostos"
	"github.com/old-void-ppc/void-mklive/internal/pseudofs"
)

func TestMountAll(t *testing.T) {
	host := hostos.NewFakeHost()
	m := pseudofs.NewManager(host)
	rootfs := t.TempDir()

	entries, err := m.MountAll(rootfs)
	if err != nil {
		t.Fatalf("MountAll: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for _, name := range pseudofs.Names {
		target := filepath.Join(rootfs, name)
		if fi, err := os.Stat(target); err != nil || !fi.IsDir() {
			t.Errorf("%s was not created", target)
		}
		if host.Mounts[target] != "/"+name {
			t.Errorf("%s mounted from %q, want /%s", target, host.Mounts[target], name)
		}
		if !host.ReadOnly[target] {
			t.Errorf("%s should be read-only", target)
		}
	}
}

func TestMountAllIsIdempotent(t *testing.T) {
	host := hostos.NewFakeHost()
	m := pseudofs.NewManager(host)
	rootfs := t.TempDir()

	for i := 0; i < 2; i++ {
		if _, err := m.MountAll(rootfs); err != nil {
			t.Fatalf("MountAll #%d: %v", i+1, err)
		}
	}
	if got := len(host.ActionsWithPrefix("bind ")); got != 3 {
		t.Errorf("performed %d bind mounts, want 3", got)
	}
	if host.MountCount() != 3 {
		t.Errorf("MountCount = %d, want 3", host.MountCount())
	}
	for _, e := range m.Entries(rootfs) {
		if !e.Mounted {
			t.Errorf("%s reported unmounted", e.RootfsRelPath)
		}
	}
}

func TestMountAllFailure(t *testing.T) {
	host := hostos.NewFakeHost()
	host.BindMountErr = errors.New("operation not permitted")
	m := pseudofs.NewManager(host)

	entries, err := m.MountAll(t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(entries) != 0 {
		t.Errorf("expected no mounted entries, got %v", entries)
	}
}

func TestUnmountAll(t *testing.T) {
	host := hostos.NewFakeHost()
	m := pseudofs.NewManager(host)
	rootfs := t.TempDir()

	if _, err := m.MountAll(rootfs); err != nil {
		t.Fatalf("MountAll: %v", err)
	}
	m.UnmountAll(rootfs)
	if host.MountCount() != 0 {
		t.Errorf("MountCount = %d after UnmountAll", host.MountCount())
	}
	for _, a := range host.ActionsWithPrefix("umount ") {
		if a[len(a)-len("force=true"):] != "force=true" {
			t.Errorf("unmount without force: %s", a)
		}
	}
}

func TestUnmountAllNothingMounted(t *testing.T) {
	host := hostos.NewFakeHost()
	m := pseudofs.NewManager(host)

	// Every unmount fails in the fake; UnmountAll still attempts all three.
	m.UnmountAll(t.TempDir())
	if got := len(host.ActionsWithPrefix("umount ")); got != 3 {
		t.Errorf("attempted %d unmounts, want 3", got)
	}
}

func TestUnmountAllMissingRootfs(t *testing.T) {
	host := hostos.NewFakeHost()
	m := pseudofs.NewManager(host)

	m.UnmountAll(filepath.Join(t.TempDir(), "gone"))
	if len(host.Actions) != 0 {
		t.Errorf("expected no actions for a missing rootfs, got %v", host.Actions)
	}
}
