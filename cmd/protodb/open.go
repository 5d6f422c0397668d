package main

import (
	"fmt"

	"github.com/protodb/protodb/pkg/storage"
	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Open (or create) a storage directory and list its named roots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		createIfMissing, _ := cmd.Flags().GetBool("create")

		space, err := storage.Open(args[0], createIfMissing, walOptionsFromEnv())
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer space.Close()

		txn := space.Begin()
		defer txn.Close()

		names, err := txn.Names()
		if err != nil {
			return fmt.Errorf("list roots: %w", err)
		}

		fmt.Printf("opened %s (%d named root%s)\n", args[0], len(names), plural(len(names)))
		for _, name := range names {
			fmt.Printf("  %s\n", name)
		}
		return nil
	},
}

func init() {
	openCmd.Flags().Bool("create", false, "create the storage directory if it does not exist")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
