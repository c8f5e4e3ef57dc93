package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/stow/pkg/diff"
)

var diffCmd = &cobra.Command{
	Use:   "diff A B",
	Short: "Print a unified diff between two files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		color, _ := cmd.Flags().GetBool("color")
		context, _ := cmd.Flags().GetInt("context")

		a, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		b, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[1], err)
		}

		la, lb := diff.SplitLines(a), diff.SplitLines(b)
		edits := diff.EditScript(la, lb)
		return diff.Unified(os.Stdout, la, lb, edits, context, color)
	},
}

func init() {
	diffCmd.Flags().Bool("color", false, "Colorize added/removed lines")
	diffCmd.Flags().Int("context", 3, "Lines of context around each hunk")
}
