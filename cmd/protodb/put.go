package main

import (
	"fmt"

	"github.com/protodb/protodb/pkg/storage"
	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <path> <name> <value>",
	Short: "Write a named root holding an interned literal, and commit",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, name, value := args[0], args[1], args[2]

		space, err := storage.Open(path, true, walOptionsFromEnv())
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer space.Close()

		wtxn := space.BeginWrite()
		literal, err := wtxn.InternLiteral(value)
		if err != nil {
			wtxn.Rollback()
			return fmt.Errorf("intern %q: %w", value, err)
		}
		if err := wtxn.Put(name, literal); err != nil {
			wtxn.Rollback()
			return fmt.Errorf("put %s: %w", name, err)
		}
		if err := wtxn.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}

		fmt.Printf("put %s = %q\n", name, value)
		return nil
	},
}
