package main

import (
	"fmt"

	"github.com/old-void-ppc/void-mklive/internal/session"
	"github.com/spf13/cobra"
)

var (
	seedTarball string
	keepRootfs  bool
)

func createChrootCommand() *cobra.Command {
	chrootCmd := &cobra.Command{
		Use:   "chroot --rootfs DIR [--arch ARCH | --platform PLATFORM] [flags] -- CMD [ARGS...]",
		Short: "Run a command inside the rootfs",
		Long: `Prepare the rootfs for the target architecture and run CMD inside it.
The emulator is registered and copied into the rootfs when needed, dev, proc
and sys are bind-mounted read-only and everything is cleaned up afterwards.
On failure the rootfs is removed unless --keep-rootfs is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: executeChroot,
	}

	addSessionFlags(chrootCmd)
	chrootCmd.Flags().StringVar(&seedTarball, "seed", "",
		"Base rootfs tarball (.tar.xz, .tar.zst or .tar.gz) to unpack first")
	chrootCmd.Flags().BoolVar(&keepRootfs, "keep-rootfs", false,
		"Keep the rootfs when the command fails")
	return chrootCmd
}

func executeChroot(cmd *cobra.Command, args []string) error {
	s, err := newSession(session.Options{Seed: seedTarball, KeepRootfs: keepRootfs})
	if err != nil {
		return err
	}
	out, err := s.RunChroot(args)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
