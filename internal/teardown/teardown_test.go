package teardown_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/old-void-ppc/void-mklive/internal/buildctx"
	"github.com/old-void-ppc/void-mklive/internal/hostos"
	"github.com/old-void-ppc/void-mklive/internal/pseudofs"
	"github.com/old-void-ppc/void-mklive/internal/teardown"
)

func newRootfs(t *testing.T) string {
	t.Helper()
	rootfs := filepath.Join(t.TempDir(), "rootfs")
	if err := os.MkdirAll(filepath.Join(rootfs, "etc"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(rootfs, "etc", "hostname"), []byte("void\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return rootfs
}

func installEmulator(t *testing.T, rootfs, name string) string {
	t.Helper()
	path := filepath.Join(rootfs, "usr", "bin", name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("qemu"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCleanupChroot(t *testing.T) {
	host := hostos.NewFakeHost()
	rootfs := newRootfs(t)
	if _, err := pseudofs.NewManager(host).MountAll(rootfs); err != nil {
		t.Fatal(err)
	}
	emulator := installEmulator(t, rootfs, "qemu-arm-static")

	bc := &buildctx.BuildContext{Rootfs: rootfs, HostArch: "x86_64", TargetArch: "armv7l"}
	teardown.NewManager(host).CleanupChroot(bc)

	if host.MountCount() != 0 {
		t.Errorf("%d mounts left", host.MountCount())
	}
	if _, err := os.Stat(emulator); !os.IsNotExist(err) {
		t.Errorf("emulator not removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(rootfs, "etc", "hostname")); err != nil {
		t.Errorf("rootfs content must survive cleanup: %v", err)
	}
}

func TestCleanupChrootNativeKeepsBinaries(t *testing.T) {
	host := hostos.NewFakeHost()
	rootfs := newRootfs(t)
	emulator := installEmulator(t, rootfs, "qemu-x86_64-static")

	bc := &buildctx.BuildContext{Rootfs: rootfs, HostArch: "x86_64", TargetArch: "x86_64"}
	teardown.NewManager(host).CleanupChroot(bc)

	if _, err := os.Stat(emulator); err != nil {
		t.Errorf("native cleanup removed %s: %v", emulator, err)
	}
}

func TestCleanupChrootUnresolvedArch(t *testing.T) {
	host := hostos.NewFakeHost()
	rootfs := newRootfs(t)
	bc := &buildctx.BuildContext{Rootfs: rootfs, HostArch: "x86_64", Platform: "amiga"}

	teardown.NewManager(host).CleanupChroot(bc)
	if got := len(host.ActionsWithPrefix("umount ")); got != 3 {
		t.Errorf("attempted %d unmounts, want 3", got)
	}
}

func TestFatalAbort(t *testing.T) {
	host := hostos.NewFakeHost()
	rootfs := newRootfs(t)
	if _, err := pseudofs.NewManager(host).MountAll(rootfs); err != nil {
		t.Fatal(err)
	}
	installEmulator(t, rootfs, "qemu-arm-static")

	var exitCode = -1
	m := teardown.NewManager(host)
	m.Exit = func(code int) { exitCode = code }

	bc := &buildctx.BuildContext{Rootfs: rootfs, HostArch: "x86_64", TargetArch: "armv7l"}
	m.FatalAbort(bc, errors.New("xbps-install failed"))

	if exitCode != 1 {
		t.Errorf("exit code = %d, want 1", exitCode)
	}
	if host.MountCount() != 0 {
		t.Errorf("%d mounts left", host.MountCount())
	}
	if _, err := os.Stat(rootfs); !os.IsNotExist(err) {
		t.Errorf("rootfs not deleted: %v", err)
	}
}

func TestFatalAbortKeepsRootfsWithLiveMounts(t *testing.T) {
	host := hostos.NewFakeHost()
	rootfs := newRootfs(t)
	if _, err := pseudofs.NewManager(host).MountAll(rootfs); err != nil {
		t.Fatal(err)
	}
	host.UnmountErr = errors.New("device or resource busy")

	var exitCode = -1
	m := teardown.NewManager(host)
	m.Exit = func(code int) { exitCode = code }

	m.FatalAbort(&buildctx.BuildContext{Rootfs: rootfs, HostArch: "x86_64", TargetArch: "x86_64"}, errors.New("boom"))

	if exitCode != 1 {
		t.Errorf("exit code = %d, want 1", exitCode)
	}
	if host.MountCount() != 3 {
		t.Errorf("MountCount = %d, want 3", host.MountCount())
	}
	if _, err := os.Stat(filepath.Join(rootfs, "etc", "hostname")); err != nil {
		t.Errorf("rootfs removed while dev, proc and sys were mounted: %v", err)
	}
}

func TestFatalAbortKeepRootfs(t *testing.T) {
	host := hostos.NewFakeHost()
	rootfs := newRootfs(t)

	var exitCode = -1
	m := teardown.NewManager(host)
	m.KeepRootfs = true
	m.Exit = func(code int) { exitCode = code }

	m.FatalAbort(&buildctx.BuildContext{Rootfs: rootfs, TargetArch: "x86_64", HostArch: "x86_64"}, errors.New("boom"))

	if exitCode != 1 {
		t.Errorf("exit code = %d, want 1", exitCode)
	}
	if _, err := os.Stat(filepath.Join(rootfs, "etc", "hostname")); err != nil {
		t.Errorf("rootfs should be kept: %v", err)
	}
}

func TestFatalAbortMissingRootfs(t *testing.T) {
	host := hostos.NewFakeHost()
	var exitCode = -1
	m := teardown.NewManager(host)
	m.Exit = func(code int) { exitCode = code }

	m.FatalAbort(&buildctx.BuildContext{Rootfs: filepath.Join(t.TempDir(), "never-created")}, errors.New("boom"))
	if exitCode != 1 {
		t.Errorf("exit code = %d, want 1", exitCode)
	}
	if len(host.Actions) != 0 {
		t.Errorf("expected no host actions, got %v", host.Actions)
	}
}
