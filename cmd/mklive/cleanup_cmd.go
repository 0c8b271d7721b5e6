package main

import (
	"github.com/old-void-ppc/void-mklive/internal/session"
	"github.com/spf13/cobra"
)

func createCleanupCommand() *cobra.Command {
	cleanupCmd := &cobra.Command{
		Use:   "cleanup --rootfs DIR [--arch ARCH | --platform PLATFORM]",
		Short: "Unmount pseudo-filesystems and remove the emulator from a rootfs",
		Long: `Undo what chroot prepared without touching the rootfs contents. Without
--arch or --platform only dev, proc and sys are unmounted.`,
		Args:  cobra.NoArgs,
		RunE:  executeCleanup,
	}
	addSessionFlags(cleanupCmd)
	return cleanupCmd
}

func executeCleanup(cmd *cobra.Command, args []string) error {
	s, err := newSession(session.Options{CleanupOnly: true})
	if err != nil {
		return err
	}
	s.Cleanup()
	return nil
}
