package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pageguard",
	Short: "Local risk-scoring companion for browser privacy extensions",
	Long:  "Scores pages, form fields, and outbound requests for privacy risk, and turns scores into allow/warn/block decisions with user-controlled overrides. Runs entirely on this machine.",
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to pageguard config YAML")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
