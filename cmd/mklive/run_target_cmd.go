package main

import (
	"github.com/old-void-ppc/void-mklive/internal/session"
	"github.com/spf13/cobra"
)

func createRunTargetCommand() *cobra.Command {
	runTargetCmd := &cobra.Command{
		Use:   "run-target --rootfs DIR [--arch ARCH | --platform PLATFORM] -- TEMPLATE...",
		Short: "Run a host package tool for the target architecture",
		Long: `Run a package tool on the host with XBPS_ARCH or XBPS_TARGET_ARCH set for
the target. The placeholders {rootfs}, {arch} and {cachedir} are substituted
and a lone {repositories} argument expands to one --repository per repository:

  mklive run-target --rootfs ./rootfs -p rpi3 -- \
      xbps-install -r {rootfs} {repositories} --cachedir={cachedir} -Sy base-system`,
		Args: cobra.MinimumNArgs(1),
		RunE: executeRunTarget,
	}

	addSessionFlags(runTargetCmd)
	runTargetCmd.Flags().BoolVar(&keepRootfs, "keep-rootfs", false,
		"Keep the rootfs when the command fails")
	return runTargetCmd
}

func executeRunTarget(cmd *cobra.Command, args []string) error {
	s, err := newSession(session.Options{KeepRootfs: keepRootfs})
	if err != nil {
		return err
	}
	_, err = s.RunTarget(args)
	return err
}
