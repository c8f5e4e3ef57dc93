package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/stow/pkg/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stow",
	Short: "stow - content-addressed version-control storage engine",
	Long: `stow is the storage engine behind a fossil-style version-control
system: structural artifacts, content-addressed blobs with delta
compression, and the version DAG they form.

This CLI is a thin demonstration driver over the library packages, not
a full version-control front end.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", "./stow-data", "Repository data directory")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(contentCmd)
	rootCmd.AddCommand(deltaCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(merge3Cmd)
	rootCmd.AddCommand(dagCmd)
	rootCmd.AddCommand(deckCmd)
	rootCmd.AddCommand(metricsCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{
		Level:      log.Level(level),
		JSONOutput: jsonOut,
	})
}

func dataDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("data-dir")
	return dir
}
