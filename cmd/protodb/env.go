package main

import (
	"os"
	"strconv"

	"github.com/protodb/protodb/pkg/wal"
)

// walOptionsFromEnv overlays PROTODB_WAL_BUFFER_SIZE onto wal.DefaultOptions,
// the one WAL-side tunable §6 calls out by name; every other Options field
// keeps its default since the CLI has no flag surface for sync policy.
func walOptionsFromEnv() wal.Options {
	opts := wal.DefaultOptions()
	if v, ok := os.LookupEnv("PROTODB_WAL_BUFFER_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.BufferSize = n
		}
	}
	return opts
}
