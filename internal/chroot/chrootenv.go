// Package chroot runs commands inside a prepared rootfs, registering the
// emulator and mounting pseudo-filesystems before every command.
package chroot

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/old-void-ppc/void-mklive/internal/binfmt"
	"github.com/old-void-ppc/void-mklive/internal/buildctx"
	"github.com/old-void-ppc/void-mklive/internal/hostos"
	"github.com/old-void-ppc/void-mklive/internal/pseudofs"
	"github.com/old-void-ppc/void-mklive/internal/runner"
	"github.com/old-void-ppc/void-mklive/internal/utils/shell"
)

type ChrootEnv struct {
	ChrootEnvRoot string
	Registrar     *binfmt.Registrar
	PseudoFS      *pseudofs.Manager
	Runner        *runner.Runner

	ctx *buildctx.BuildContext
}

func NewChrootEnv(bc *buildctx.BuildContext, host hostos.Host, opts ...binfmt.Option) *ChrootEnv {
	return &ChrootEnv{
		ChrootEnvRoot: bc.Rootfs,
		Registrar:     binfmt.NewRegistrar(host, opts...),
		PseudoFS:      pseudofs.NewManager(host),
		Runner:        runner.New(),
		ctx:           bc,
	}
}

// Prepare registers the emulator and mounts dev, proc and sys. Both steps
// are idempotent, so Prepare runs before every chrooted command.
func (chrootEnv *ChrootEnv) Prepare() error {
	if chrootEnv.ctx == nil {
		return fmt.Errorf("chroot environment has no build context")
	}
	if err := chrootEnv.Registrar.EnsureRegistered(chrootEnv.ctx); err != nil {
		return err
	}
	if _, err := chrootEnv.PseudoFS.MountAll(chrootEnv.ChrootEnvRoot); err != nil {
		return fmt.Errorf("failed to mount pseudo-filesystems in %s: %w", chrootEnv.ChrootEnvRoot, err)
	}
	return nil
}

// Run prepares the rootfs and executes argv inside it. A non-zero exit is
// returned as runner.ErrCommandFailed carrying the exit status.
func (chrootEnv *ChrootEnv) Run(argv ...string) (string, error) {
	if err := chrootEnv.Prepare(); err != nil {
		return "", err
	}
	return chrootEnv.Runner.Run(chrootEnv.ctx, shell.Command{
		Args:   argv,
		Chroot: chrootEnv.ChrootEnvRoot,
	})
}

// RunShell runs script with /bin/sh -c inside the rootfs.
func (chrootEnv *ChrootEnv) RunShell(script string) (string, error) {
	return chrootEnv.Run("/bin/sh", "-c", script)
}

// GetChrootEnvHostPath maps a path inside the chroot to the host path.
func (chrootEnv *ChrootEnv) GetChrootEnvHostPath(chrootPath string) (string, error) {
	if chrootEnv.ChrootEnvRoot == "" {
		return "", fmt.Errorf("chroot environment root not set")
	}
	for _, elem := range strings.Split(filepath.ToSlash(chrootPath), "/") {
		if elem == ".." {
			return "", fmt.Errorf("path %s escapes the chroot environment", chrootPath)
		}
	}
	return filepath.Join(chrootEnv.ChrootEnvRoot, chrootPath), nil
}

// GetChrootEnvPath maps a host path below the rootfs to its path inside the chroot.
func (chrootEnv *ChrootEnv) GetChrootEnvPath(hostPath string) (string, error) {
	if chrootEnv.ChrootEnvRoot == "" {
		return "", fmt.Errorf("chroot environment root not set")
	}
	rel, err := filepath.Rel(chrootEnv.ChrootEnvRoot, hostPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s against %s: %w", hostPath, chrootEnv.ChrootEnvRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside chroot environment %s", hostPath, chrootEnv.ChrootEnvRoot)
	}
	if rel == "." {
		return "/", nil
	}
	return "/" + filepath.ToSlash(rel), nil
}
