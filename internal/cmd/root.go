// Package cmd wires up the keyscope command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/CompassSecurity/keyscope/internal/cmd/common"
)

var rootCmd = &cobra.Command{
	Use:   "keyscope",
	Short: "Identify credentials and score their exposure risk",
	Long: `Keyscope identifies what kind of credential a value is, measures its
entropy, checks a k-anonymity breach corpus and optional liveness signals,
and aggregates everything into a single risk verdict. The credential itself
never appears in any output.`,
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the assembled command tree.
func Root() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.AddCommand(NewCheckCmd())
	rootCmd.AddCommand(NewBatchCmd())
	rootCmd.AddCommand(NewProvidersCmd())
	rootCmd.AddCommand(NewVersionCmd())

	common.AddCommonFlags(rootCmd)
	common.SetupPersistentPreRun(rootCmd)
}
