// Package cli implements the command-line interface for labelkit.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/labelkit/internal/config"
	"github.com/kilupskalvis/labelkit/internal/session"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Session *session.Session
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	c.Session.Close()
}

// initContext loads the project config and opens a session
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	sess, err := session.Open(cfg, logger)
	if err != nil {
		exitError("failed to open project: %v", err)
	}

	return &cmdContext{Session: sess}
}

var rootCmd = &cobra.Command{
	Use:   "labelkit",
	Short: "Annotation project toolkit",
	Long: `labelkit manages annotation projects from the command line: validate
labeling configurations, import and export result JSON, inspect regions
and drafts, and report statistics over submitted annotations.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(regionsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(toolCmd)
	rootCmd.AddCommand(settingsCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
