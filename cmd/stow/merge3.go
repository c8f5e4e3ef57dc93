package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/stow/pkg/merge3"
)

var merge3Cmd = &cobra.Command{
	Use:   "merge3 PIVOT V1 V2",
	Short: "Three-way merge PIVOT, V1, and V2, printing the result to stdout",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pivot, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		v1, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[1], err)
		}
		v2, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[2], err)
		}

		merged, conflicts := merge3.Merge(pivot, v1, v2)
		if _, err := os.Stdout.Write(merged); err != nil {
			return err
		}
		if conflicts > 0 {
			fmt.Fprintf(os.Stderr, "%d conflict(s)\n", conflicts)
			os.Exit(1)
		}
		return nil
	},
}
