// Package buildctx carries the state of one chroot session explicitly
// instead of through process-wide variables.
package buildctx

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/old-void-ppc/void-mklive/internal/arch"
	"github.com/old-void-ppc/void-mklive/internal/utils/logger"
	"github.com/old-void-ppc/void-mklive/internal/utils/system"
)

// Package tool variables exported to XBPS.
const (
	EnvNativeArch = "XBPS_ARCH"
	EnvTargetArch = "XBPS_TARGET_ARCH"
)

// BuildContext is the mutable state of a single invocation. Architecture
// fields are filled lazily on first use.
type BuildContext struct {
	SessionID    string
	Rootfs       string
	HostArch     string
	TargetArch   string
	Platform     string
	CacheDir     string
	Repositories []string

	// EmulatorInstalled is set once the qemu binary has been copied into
	// the rootfs during this session.
	EmulatorInstalled bool

	descriptor *arch.Descriptor
}

// New returns a context for rootfs with a fresh session id.
func New(rootfs string) *BuildContext {
	if rootfs != "" {
		if abs, err := filepath.Abs(rootfs); err == nil {
			rootfs = abs
		}
	}
	return &BuildContext{
		SessionID: uuid.New().String(),
		Rootfs:    rootfs,
	}
}

// Validate checks the fields every session needs before touching the host.
func (bc *BuildContext) Validate() error {
	if bc.Rootfs == "" {
		return fmt.Errorf("rootfs path not set")
	}
	if bc.TargetArch == "" && bc.Platform == "" {
		return fmt.Errorf("%w: neither target architecture nor platform set", arch.ErrUnknownArchitecture)
	}
	return nil
}

// Logger returns the global logger tagged with this session.
func (bc *BuildContext) Logger() *zap.SugaredLogger {
	return logger.Logger().With("session", bc.SessionID)
}

// ResolveHostArch returns HostArch, asking uname the first time.
func (bc *BuildContext) ResolveHostArch() (string, error) {
	if bc.HostArch != "" {
		return bc.HostArch, nil
	}
	hostArch, err := system.GetHostArch()
	if err != nil {
		return "", err
	}
	bc.HostArch = hostArch
	return hostArch, nil
}

// ResolveTargetArch returns TargetArch, deriving it from Platform when no
// explicit architecture was given. On failure TargetArch stays unset.
func (bc *BuildContext) ResolveTargetArch() (string, error) {
	if bc.TargetArch != "" {
		return bc.TargetArch, nil
	}
	if bc.Platform == "" {
		return "", fmt.Errorf("%w: neither target architecture nor platform set", arch.ErrUnknownArchitecture)
	}

	var hostArch string
	if arch.NeedsHostArch(bc.Platform) {
		var err error
		if hostArch, err = bc.ResolveHostArch(); err != nil {
			return "", err
		}
	}
	targetArch, err := arch.ResolvePlatform(bc.Platform, hostArch)
	if err != nil {
		return "", err
	}
	bc.Logger().Debugf("Platform %s resolves to architecture %s", bc.Platform, targetArch)
	bc.TargetArch = targetArch
	return targetArch, nil
}

// Descriptor returns the catalog entry for the target architecture, cached
// after the first successful lookup.
func (bc *BuildContext) Descriptor() (*arch.Descriptor, error) {
	if bc.descriptor != nil {
		return bc.descriptor, nil
	}
	targetArch, err := bc.ResolveTargetArch()
	if err != nil {
		return nil, err
	}
	d, err := arch.Lookup(targetArch)
	if err != nil {
		return nil, err
	}
	bc.descriptor = d
	return d, nil
}

// IsNative reports whether the host runs target binaries without qemu.
func (bc *BuildContext) IsNative() (bool, error) {
	targetArch, err := bc.ResolveTargetArch()
	if err != nil {
		return false, err
	}
	hostArch, err := bc.ResolveHostArch()
	if err != nil {
		return false, err
	}
	return arch.Compatible(hostArch, targetArch), nil
}

// Emulator returns the static qemu binary name for the target.
func (bc *BuildContext) Emulator() (string, error) {
	d, err := bc.Descriptor()
	if err != nil {
		return "", err
	}
	return d.Emulator, nil
}

// PackageToolEnv returns the XBPS architecture variable for this session:
// XBPS_ARCH when native, XBPS_TARGET_ARCH when cross-building so that XBPS
// skips actions that would execute target binaries outside the chroot.
func (bc *BuildContext) PackageToolEnv() (map[string]string, error) {
	native, err := bc.IsNative()
	if err != nil {
		return nil, err
	}
	if native {
		return map[string]string{EnvNativeArch: bc.TargetArch}, nil
	}
	return map[string]string{EnvTargetArch: bc.TargetArch}, nil
}

// EmulatorPath returns where the emulator lives inside the rootfs.
func (bc *BuildContext) EmulatorPath() (string, error) {
	emulator, err := bc.Emulator()
	if err != nil {
		return "", err
	}
	return filepath.Join(bc.Rootfs, "usr", "bin", emulator), nil
}
