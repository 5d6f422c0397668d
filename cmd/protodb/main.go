// Command protodb is a thin Cobra-based driver over the protodb storage
// library: open a directory, put a literal root, run a query over a named
// collection, or inspect a WAL file directly. It exists only to exercise
// the library from a shell; application code should import pkg/storage
// and pkg/query directly instead of shelling out to this binary.
package main

import (
	"fmt"
	"os"

	"github.com/protodb/protodb/pkg/protolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "protodb",
	Short: "protodb - content-addressed, append-only object storage",
	Long: `protodb is an embedded, content-addressed object database: atoms
are immutable and content-hashed, a single mutable root pointer per
storage directory names the current generation, and every commit is a
path-copy plus one atomic root-pointer swap.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit logs as JSON instead of console text")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(inspectWALCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	protolog.Init(protolog.Config{Level: level, JSONOutput: jsonOutput})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
