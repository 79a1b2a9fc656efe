// Package cli assembles the coolercontrold cobra command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/coolercontrol-go/coolercontrold/pkg/version"
)

// NewRootCmd builds the root "coolercontrold" command with its subcommands
// registered directly for a flat hierarchy, following the teacher's
// cmd/coral-agent layering.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coolercontrold",
		Short:         "coolercontrold - cooling device control daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("coolercontrold version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}
