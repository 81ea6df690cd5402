package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scrawl",
	Short: "Scrawl - real-time collaborative pixel canvas",
	Long: `Scrawl is a real-time collaborative pixel canvas server.

Many clients view and mutate a shared grid of colored cells over WebSocket;
every accepted edit is persisted to a memory-mapped grid file and broadcast
to all connected viewers. Edits are rate-limited through bearer tokens
issued against an external contest platform's credentials.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
