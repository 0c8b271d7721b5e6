// Package session wires configuration, the build context and the chroot
// machinery together for one mklive invocation.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/old-void-ppc/void-mklive/internal/arch"
	"github.com/old-void-ppc/void-mklive/internal/binfmt"
	"github.com/old-void-ppc/void-mklive/internal/buildctx"
	"github.com/old-void-ppc/void-mklive/internal/chroot"
	"github.com/old-void-ppc/void-mklive/internal/config"
	"github.com/old-void-ppc/void-mklive/internal/fetcher"
	"github.com/old-void-ppc/void-mklive/internal/hostos"
	"github.com/old-void-ppc/void-mklive/internal/rootfs"
	"github.com/old-void-ppc/void-mklive/internal/teardown"
	"github.com/old-void-ppc/void-mklive/internal/toolcheck"
)

// Options are the per-invocation settings given on the command line.
type Options struct {
	Rootfs     string
	TargetArch string
	Platform   string
	// Seed is an optional base rootfs tarball, a path or an http(s) URL,
	// unpacked before any command.
	Seed string
	// KeepRootfs overrides keepRootfsOnFailure from the config when set.
	KeepRootfs bool
	// CleanupOnly sessions only tear down. They need no target architecture
	// and never run Setup.
	CleanupOnly bool
}

type Session struct {
	Context  *buildctx.BuildContext
	Chroot   *chroot.ChrootEnv
	Teardown *teardown.Manager

	cfg     *config.GlobalConfig
	helpers *config.ConfigHelpers
	opts    Options
	ready   bool
}

// New builds a session. host may be nil for the real kernel.
func New(cfg *config.GlobalConfig, host hostos.Host, opts Options) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultGlobalConfig()
	}
	if host == nil {
		host = hostos.Default
	}

	bc := buildctx.New(opts.Rootfs)
	bc.TargetArch = opts.TargetArch
	bc.Platform = opts.Platform
	if err := bc.Validate(); err != nil {
		if !opts.CleanupOnly || !errors.Is(err, arch.ErrUnknownArchitecture) {
			return nil, err
		}
	}

	td := teardown.NewManager(host)
	td.KeepRootfs = cfg.KeepRootfsOnFailure || opts.KeepRootfs

	return &Session{
		Context:  bc,
		Chroot:   chroot.NewChrootEnv(bc, host, binfmt.WithProgress(cfg.ShowProgress)),
		Teardown: td,
		cfg:      cfg,
		helpers:  config.NewConfigHelpers(cfg),
		opts:     opts,
	}, nil
}

// Setup checks host tools, resolves the architecture, points the package
// cache at the per-arch directory and unpacks the seed tarball. It runs
// once per session.
func (s *Session) Setup() error {
	if s.ready {
		return nil
	}
	bc := s.Context
	log := bc.Logger()

	if s.opts.CleanupOnly {
		return fmt.Errorf("cleanup-only session cannot run commands")
	}
	if err := toolcheck.Check(s.cfg.RequiredTools...); err != nil {
		return err
	}

	targetArch, err := bc.ResolveTargetArch()
	if err != nil {
		return err
	}
	if _, err := bc.Descriptor(); err != nil {
		return err
	}

	cacheDir, err := s.helpers.ArchCacheDir(targetArch)
	if err != nil {
		return err
	}
	bc.CacheDir = cacheDir
	bc.Repositories = s.helpers.Repositories(targetArch)
	log.Debugf("Using cache %s and repositories %v for %s", cacheDir, bc.Repositories, targetArch)

	if s.opts.Seed != "" {
		seed, err := s.localSeed()
		if err != nil {
			return err
		}
		if err := rootfs.Unpack(seed, bc.Rootfs, rootfs.Options{ShowProgress: s.cfg.ShowProgress}); err != nil {
			return fmt.Errorf("failed to unpack seed rootfs: %w", err)
		}
	} else if err := os.MkdirAll(bc.Rootfs, 0755); err != nil {
		return fmt.Errorf("failed to create rootfs %s: %w", bc.Rootfs, err)
	}

	s.ready = true
	return nil
}

// localSeed downloads a remote seed into <cacheDir>/seeds.
func (s *Session) localSeed() (string, error) {
	if !fetcher.IsRemote(s.opts.Seed) {
		return s.opts.Seed, nil
	}
	cacheDir, err := s.helpers.CacheDir()
	if err != nil {
		return "", err
	}
	paths, err := fetcher.Fetch([]string{s.opts.Seed}, filepath.Join(cacheDir, "seeds"), 1, s.cfg.ShowProgress)
	if err != nil {
		return "", fmt.Errorf("failed to download seed rootfs: %w", err)
	}
	return paths[0], nil
}

// RunChroot executes argv inside the rootfs and cleans up afterwards. Any
// error aborts the session through FatalAbort.
func (s *Session) RunChroot(argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("no command given")
	}
	if err := s.Setup(); err != nil {
		return "", s.abort(err)
	}
	out, err := s.Chroot.Run(argv...)
	if err != nil {
		return out, s.abort(err)
	}
	s.Cleanup()
	return out, nil
}

// RunTarget runs a host-side package tool template such as
// "xbps-install -r {rootfs} {repositories} -Sy base-system" with the
// architecture environment of this session.
func (s *Session) RunTarget(template []string) (string, error) {
	if len(template) == 0 {
		return "", fmt.Errorf("no command given")
	}
	if err := s.Setup(); err != nil {
		return "", s.abort(err)
	}
	out, err := s.Chroot.Runner.RunForTarget(s.Context, template)
	if err != nil {
		return out, s.abort(err)
	}
	return out, nil
}

// Cleanup unmounts the pseudo-filesystems and removes the emulator copy.
func (s *Session) Cleanup() {
	s.Teardown.CleanupChroot(s.Context)
}

func (s *Session) abort(err error) error {
	s.Teardown.FatalAbort(s.Context, err)
	return err
}
