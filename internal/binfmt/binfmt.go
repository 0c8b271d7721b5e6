// Package binfmt makes foreign-architecture binaries inside a rootfs
// runnable by registering a static qemu user emulator with binfmt_misc.
package binfmt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/old-void-ppc/void-mklive/internal/buildctx"
	"github.com/old-void-ppc/void-mklive/internal/hostos"
	"github.com/old-void-ppc/void-mklive/internal/utils/logger"
	"github.com/old-void-ppc/void-mklive/internal/utils/shell"
	"github.com/old-void-ppc/void-mklive/internal/utils/system"
)

var (
	ErrEmulatorMissing = errors.New("emulator not available on host")
	ErrEmulatorInstall = errors.New("failed to install emulator into rootfs")
)

// Registrar prepares binfmt_misc and the in-rootfs emulator for a session.
type Registrar struct {
	host         hostos.Host
	dir          string
	showProgress bool
}

type Option func(*Registrar)

// WithDir overrides the binfmt_misc directory.
func WithDir(dir string) Option {
	return func(r *Registrar) { r.dir = dir }
}

// WithProgress shows a progress bar while copying the emulator.
func WithProgress(show bool) Option {
	return func(r *Registrar) { r.showProgress = show }
}

func NewRegistrar(host hostos.Host, opts ...Option) *Registrar {
	if host == nil {
		host = hostos.Default
	}
	r := &Registrar{host: host, dir: hostos.BinfmtMiscDir}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureRegistered makes the target architecture executable inside
// bc.Rootfs. Native sessions return immediately without side effects.
// Only a missing or uninstallable emulator is an error; binfmt_misc mount
// and registration problems are logged, since a concurrent session may
// already have done the work.
func (r *Registrar) EnsureRegistered(bc *buildctx.BuildContext) error {
	log := bc.Logger()

	if _, err := bc.ResolveTargetArch(); err != nil {
		return err
	}
	d, err := bc.Descriptor()
	if err != nil {
		return err
	}
	native, err := bc.IsNative()
	if err != nil {
		return err
	}
	if native {
		log.Debugf("Target %s runs natively on %s, no emulation needed", bc.TargetArch, bc.HostArch)
		return nil
	}

	if _, err := shell.ExecCmd(shell.Command{Args: []string{d.Emulator, "-version"}}); err != nil {
		return fmt.Errorf("%w: %s is required for %s (%s): %v",
			ErrEmulatorMissing, d.Emulator, bc.TargetArch, system.QemuInstallHint(d.Emulator), err)
	}

	r.ensureBinfmtMisc()

	if !r.host.BinfmtRegistered(r.dir, d.Name) {
		record := NewRecord(d).String()
		log.Infof("Registering %s with binfmt_misc", d.Name)
		if err := r.host.RegisterBinfmt(r.dir, record); err != nil {
			log.Warnf("Failed to register binfmt for %s: %v (may already be registered)", d.Name, err)
		}
	}

	dst, err := bc.EmulatorPath()
	if err != nil {
		return err
	}
	if shell.IsExecutable(dst) {
		return nil
	}
	if err := r.installEmulator(d.Emulator, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrEmulatorInstall, err)
	}
	bc.EmulatorInstalled = true
	return nil
}

func (r *Registrar) ensureBinfmtMisc() {
	log := logger.Logger()
	mounted, err := r.host.IsMountPoint(r.dir)
	if err == nil && mounted {
		return
	}
	log.Debugf("binfmt_misc is not mounted at %s, attempting to mount", r.dir)
	if err := r.host.LoadModule("binfmt_misc"); err != nil {
		log.Debugf("Failed to load binfmt_misc module: %v", err)
	}
	if err := r.host.MountBinfmtMisc(r.dir); err != nil {
		log.Warnf("Failed to mount binfmt_misc: %v", err)
	}
}

// installEmulator copies the host emulator to dst. A partial copy is removed.
func (r *Registrar) installEmulator(emulator, dst string) (err error) {
	src, err := shell.LookPath(emulator)
	if err != nil {
		return fmt.Errorf("failed to locate %s: %w", emulator, err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", dst, cerr)
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	var w io.Writer = out
	if r.showProgress {
		bar := progressbar.NewOptions64(fi.Size(),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("installing "+emulator),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
		defer bar.Finish()
		w = io.MultiWriter(out, bar)
	}

	logger.Logger().Infof("Installing %s into %s", emulator, filepath.Dir(dst))
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	// umask may have stripped bits from the create mode.
	if err := out.Chmod(0755); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", dst, err)
	}
	return nil
}

// Remove deletes the emulator copy from bc.Rootfs, if there is one.
func Remove(bc *buildctx.BuildContext) error {
	dst, err := bc.EmulatorPath()
	if err != nil {
		return err
	}
	if !shell.IsExecutable(dst) {
		return nil
	}
	if err := os.Remove(dst); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dst, err)
	}
	bc.EmulatorInstalled = false
	return nil
}
