package cli

import (
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scribe version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println("scribe", resolveVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func resolveVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}
