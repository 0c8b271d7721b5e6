package main

import (
	"fmt"

	"github.com/old-void-ppc/void-mklive/internal/session"
	"github.com/spf13/cobra"
)

// Flags shared by the commands that operate on a rootfs.
var (
	rootfsDir    string
	targetArch   string
	platformName string
)

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rootfsDir, "rootfs", "", "Root filesystem directory (required)")
	cmd.Flags().StringVarP(&targetArch, "arch", "a", "", "Target XBPS architecture, e.g. armv7l-musl")
	cmd.Flags().StringVarP(&platformName, "platform", "p", "", "Target platform, e.g. rpi3 (ignored when --arch is set)")
	_ = cmd.MarkFlagRequired("rootfs")
	// Everything after the first positional argument belongs to the command.
	cmd.Flags().SetInterspersed(false)
}

func newSession(opts session.Options) (*session.Session, error) {
	if err := requireRoot(); err != nil {
		return nil, err
	}
	opts.Rootfs = rootfsDir
	opts.TargetArch = targetArch
	opts.Platform = platformName

	s, err := session.New(currentConfig(), newHost(), opts)
	if err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}
	s.Teardown.Exit = exitProcess
	return s, nil
}
