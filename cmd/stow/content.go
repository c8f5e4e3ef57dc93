package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cuemby/stow/pkg/config"
	"github.com/cuemby/stow/pkg/content"
	"github.com/cuemby/stow/pkg/stowctx"
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Put and get content-addressed artifact blobs",
}

var contentPutCmd = &cobra.Command{
	Use:   "put FILE",
	Short: "Store a file as a new artifact blob, printing its rid and hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		ctx, err := stowctx.Open(config.Default(dataDir(cmd)))
		if err != nil {
			return err
		}
		defer ctx.Close()

		hash := content.Hash(data)
		if existing, err := ctx.Store().GetBlobByHash(hash); err == nil {
			fmt.Printf("rid=%d hash=%s (already stored)\n", existing.RID, hash)
			return nil
		}

		rid, err := ctx.Store().NextRID()
		if err != nil {
			return err
		}
		if err := ctx.Content().Put(rid, data, hash, 0); err != nil {
			return err
		}
		fmt.Printf("rid=%d hash=%s\n", rid, hash)
		return nil
	},
}

var contentGetCmd = &cobra.Command{
	Use:   "get RID",
	Short: "Print the decoded content of rid to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid rid %q: %w", args[0], err)
		}

		ctx, err := stowctx.Open(config.Default(dataDir(cmd)))
		if err != nil {
			return err
		}
		defer ctx.Close()

		data, err := ctx.Content().Get(rid)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	contentCmd.AddCommand(contentPutCmd)
	contentCmd.AddCommand(contentGetCmd)
}
