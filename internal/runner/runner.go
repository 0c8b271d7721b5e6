// Package runner executes commands on the host or inside a chroot and turns
// any non-zero exit into ErrCommandFailed.
package runner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/old-void-ppc/void-mklive/internal/buildctx"
	"github.com/old-void-ppc/void-mklive/internal/utils/shell"
)

var ErrCommandFailed = errors.New("command execution failed")

// Template placeholders understood by RunForTarget.
const (
	PlaceholderRootfs       = "{rootfs}"
	PlaceholderArch         = "{arch}"
	PlaceholderCacheDir     = "{cachedir}"
	PlaceholderRepositories = "{repositories}"
)

// Runner announces and runs commands. Output is streamed to the log unless
// Quiet is set.
type Runner struct {
	Quiet bool
}

func New() *Runner {
	return &Runner{}
}

// Run executes cmd. The returned error wraps both ErrCommandFailed and the
// executor's error, so shell.ExitCode still sees the exit status.
func (r *Runner) Run(bc *buildctx.BuildContext, cmd shell.Command) (string, error) {
	if len(cmd.Args) == 0 {
		return "", fmt.Errorf("%w: empty command", ErrCommandFailed)
	}
	bc.Logger().Infof("Running %s", cmd.String())

	exec := shell.ExecCmdWithStream
	if r.Quiet {
		exec = shell.ExecCmd
	}
	output, err := exec(cmd)
	if err != nil {
		return output, fmt.Errorf("%w (exit status %d): %w", ErrCommandFailed, shell.ExitCode(err), err)
	}
	return output, nil
}

// RunForTarget expands template for bc and runs it on the host with the
// XBPS architecture variable for this session.
func (r *Runner) RunForTarget(bc *buildctx.BuildContext, template []string) (string, error) {
	args, err := Expand(bc, template)
	if err != nil {
		return "", err
	}
	env, err := bc.PackageToolEnv()
	if err != nil {
		return "", err
	}
	return r.Run(bc, shell.Command{Args: args, Env: env})
}

// Expand substitutes the session placeholders in template. A lone
// {repositories} element becomes one --repository=URL per repository.
func Expand(bc *buildctx.BuildContext, template []string) ([]string, error) {
	targetArch, err := bc.ResolveTargetArch()
	if err != nil {
		return nil, err
	}

	replacer := strings.NewReplacer(
		PlaceholderRootfs, bc.Rootfs,
		PlaceholderArch, targetArch,
		PlaceholderCacheDir, bc.CacheDir,
	)

	args := make([]string, 0, len(template)+len(bc.Repositories))
	for _, elem := range template {
		if elem == PlaceholderRepositories {
			for _, repo := range bc.Repositories {
				args = append(args, "--repository="+repo)
			}
			continue
		}
		if strings.Contains(elem, PlaceholderCacheDir) && bc.CacheDir == "" {
			return nil, fmt.Errorf("template uses %s but no cache directory is configured", PlaceholderCacheDir)
		}
		args = append(args, replacer.Replace(elem))
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrCommandFailed)
	}
	return args, nil
}
