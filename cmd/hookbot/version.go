package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/m3rciful/hookbot/core/buildinfo"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "hookbot %s (commit %s, built %s, %s)\n",
				buildinfo.Version, buildinfo.Commit, buildinfo.Date, runtime.Version())
			return err
		},
	}
}
