package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cuemby/stow/pkg/config"
	"github.com/cuemby/stow/pkg/dag"
	"github.com/cuemby/stow/pkg/stowctx"
)

var dagCmd = &cobra.Command{
	Use:   "dag",
	Short: "Inspect the version DAG",
}

var dagShortestCmd = &cobra.Command{
	Use:   "shortest FROM TO",
	Short: "Print the shortest path between two checkins",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid rid %q: %w", args[0], err)
		}
		to, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid rid %q: %w", args[1], err)
		}
		directOnly, _ := cmd.Flags().GetBool("direct-only")
		oneWayOnly, _ := cmd.Flags().GetBool("one-way-only")

		ctx, err := stowctx.Open(config.Default(dataDir(cmd)))
		if err != nil {
			return err
		}
		defer ctx.Close()

		path, ok, err := dag.Shortest(ctx.Store(), from, to, directOnly, oneWayOnly)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no path")
			return nil
		}
		for i := 0; i < path.Len(); i++ {
			arrow := "->"
			if !path.FromIsParent(i) {
				arrow = "<-"
			}
			fmt.Printf("%s %d\n", arrow, path.RID(i))
		}
		return nil
	},
}

func init() {
	dagCmd.AddCommand(dagShortestCmd)
	dagShortestCmd.Flags().Bool("direct-only", false, "Restrict traversal to primary (non-merge) edges")
	dagShortestCmd.Flags().Bool("one-way-only", false, "Restrict traversal to forward parent-to-child edges")
}
