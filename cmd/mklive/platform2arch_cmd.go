package main

import (
	"fmt"

	"github.com/old-void-ppc/void-mklive/internal/arch"
	"github.com/old-void-ppc/void-mklive/internal/utils/system"
	"github.com/spf13/cobra"
)

func createPlatform2ArchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "platform2arch PLATFORM",
		Short: "Print the XBPS architecture of a platform",
		Long: `Print the XBPS architecture a platform builds for, e.g. rpi3 -> aarch64.
A -musl suffix on the platform carries over to the architecture.`,
		Args:      cobra.ExactArgs(1),
		RunE:      executePlatform2Arch,
		ValidArgs: arch.Platforms(),
	}
}

func executePlatform2Arch(cmd *cobra.Command, args []string) error {
	platform := args[0]

	var hostArch string
	if arch.NeedsHostArch(platform) {
		var err error
		if hostArch, err = system.GetHostArch(); err != nil {
			return err
		}
	}
	resolved, err := arch.ResolvePlatform(platform, hostArch)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resolved)
	return nil
}
