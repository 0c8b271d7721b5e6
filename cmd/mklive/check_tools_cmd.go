package main

import (
	"fmt"

	"github.com/old-void-ppc/void-mklive/internal/toolcheck"
	"github.com/old-void-ppc/void-mklive/internal/utils/general/slice"
	"github.com/spf13/cobra"
)

var extraTools []string

func createCheckToolsCommand() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check-tools [--tool NAME ...]",
		Short: "Verify the host programs mklive needs are installed",
		Args:  cobra.NoArgs,
		RunE:  executeCheckTools,
	}
	checkCmd.Flags().StringSliceVar(&extraTools, "tool", nil,
		"Additional tool to require (repeatable)")
	return checkCmd
}

func executeCheckTools(cmd *cobra.Command, args []string) error {
	tools := slice.Merge(currentConfig().RequiredTools, extraTools)
	if err := toolcheck.Check(tools...); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "all %d required tools found\n", len(toolcheck.Tools(tools...)))
	return nil
}
