// Workflowd is an MCP server that turns natural-language goals into
// validated automation workflows.
//
// It exposes the orchestration pipeline (pattern discovery, workflow
// generation, structural validation) and the smart execution router as MCP
// tools over stdio.
//
// Usage:
//
//	# Start the server on stdio
//	workflowd serve
//
//	# With an explicit config file
//	workflowd serve --config /etc/workflowd/config.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "workflowd",
	Short: "MCP server for goal-driven workflow generation",
	Long: `workflowd turns natural-language goals into validated automation
workflows through a three-stage pipeline, and routes requests between the
full pipeline and direct execution based on historical outcomes.`,
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on the stdio transport",
	Long: `Start workflowd as an MCP server on stdio.

Logs go to stderr; stdout carries the MCP protocol.

Examples:
  workflowd serve
  workflowd serve --config ~/.config/workflowd/config.yaml
  WORKFLOWD_LOGGING_LEVEL=debug workflowd serve`,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("workflowd\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/workflowd/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
