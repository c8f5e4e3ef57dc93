package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/stow/pkg/delta"
)

var deltaCmd = &cobra.Command{
	Use:   "delta",
	Short: "Create and apply fossil-format deltas between two byte streams",
}

var deltaCreateCmd = &cobra.Command{
	Use:   "create SRC OUT",
	Short: "Write a delta that turns SRC into OUT, to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		out, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[1], err)
		}
		dl := delta.Create(src, out)
		_, err = os.Stdout.Write(dl)
		if err == nil {
			fmt.Fprintf(os.Stderr, "delta: %d bytes (source %d, target %d)\n", len(dl), len(src), len(out))
		}
		return err
	},
}

var deltaApplyCmd = &cobra.Command{
	Use:   "apply SRC DELTA",
	Short: "Apply DELTA to SRC, writing the reconstructed content to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		dl, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[1], err)
		}
		out, err := delta.Apply(src, dl)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func init() {
	deltaCmd.AddCommand(deltaCreateCmd)
	deltaCmd.AddCommand(deltaApplyCmd)
}
