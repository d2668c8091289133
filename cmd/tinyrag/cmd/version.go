package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soberm258/tiny-agents/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tinyrag %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
