package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/stow/pkg/deck"
)

var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Inspect structural artifacts (checkins, control artifacts, wiki pages, ...)",
}

var deckParseCmd = &cobra.Command{
	Use:   "parse FILE",
	Short: "Parse a card-grammar artifact and print a summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		d, err := deck.Parse(data)
		if err != nil {
			return err
		}

		fmt.Printf("kind: %s\n", d.Kind)
		fmt.Printf("delta-manifest: %v\n", d.IsDeltaManifest())
		fmt.Printf("F-cards: %d\n", len(d.F))
		fmt.Printf("T-cards: %d\n", len(d.T))
		if d.C != "" {
			fmt.Printf("comment: %s\n", d.C)
		}
		return nil
	},
}

func init() {
	deckCmd.AddCommand(deckParseCmd)
}
