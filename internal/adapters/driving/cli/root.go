// Package cli implements the scribe command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Multi-tenant retrieval-augmented generation server",
	Long: `Scribe ingests documents, chunks and embeds them, and answers
questions over the stored knowledge base with cited sources.

Run 'scribe serve' to start the HTTP API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to config.toml (default ~/.scribe/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
