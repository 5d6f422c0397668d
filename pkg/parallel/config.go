// Package parallel provides an adaptive, work-stealing parallel scan
// utility used by the query plan engine to fan a large scan out across
// goroutines without the caller hand-tuning chunk sizes.
package parallel

import (
	"os"
	"runtime"
	"strconv"
)

func intEnv(name string, fallback int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func floatEnv(name string, fallback float64) float64 {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Config tunes the worker pool and the adaptive chunk controller. Zero
// values are filled in by FromEnv/DefaultConfig, mirroring
// original_source/proto_db/parallel.py's ParallelConfig dataclass.
type Config struct {
	MaxWorkers                 int
	InitialChunkSize           int
	MinChunkSize               int
	MaxChunkSize               int
	TargetMsLow                float64
	TargetMsHigh               float64
	ChunkEMAAlpha              float64
	MaxInflightChunksPerWorker int
}

// DefaultConfig returns the built-in defaults, independent of environment.
func DefaultConfig() Config {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	if workers < 1 {
		workers = 1
	}
	return Config{
		MaxWorkers:                 workers,
		InitialChunkSize:           1000,
		MinChunkSize:               128,
		MaxChunkSize:               8192,
		TargetMsLow:                0.5,
		TargetMsHigh:               2.0,
		ChunkEMAAlpha:              0.2,
		MaxInflightChunksPerWorker: 2,
	}
}

// FromEnv overlays PROTODB_PARALLEL_* environment variables onto
// DefaultConfig, named after the new module's prefix rather than the
// original PROTO_PARALLEL_* names.
func FromEnv() Config {
	cfg := DefaultConfig()
	cfg.MaxWorkers = intEnv("PROTODB_PARALLEL_WORKERS", cfg.MaxWorkers)
	cfg.InitialChunkSize = intEnv("PROTODB_PARALLEL_INITIAL_CHUNK", cfg.InitialChunkSize)
	cfg.MinChunkSize = intEnv("PROTODB_PARALLEL_MIN_CHUNK", cfg.MinChunkSize)
	cfg.MaxChunkSize = intEnv("PROTODB_PARALLEL_MAX_CHUNK", cfg.MaxChunkSize)
	cfg.TargetMsLow = floatEnv("PROTODB_PARALLEL_TARGET_MS_LOW", cfg.TargetMsLow)
	cfg.TargetMsHigh = floatEnv("PROTODB_PARALLEL_TARGET_MS_HIGH", cfg.TargetMsHigh)
	cfg.ChunkEMAAlpha = floatEnv("PROTODB_PARALLEL_EMA_ALPHA", cfg.ChunkEMAAlpha)
	cfg.MaxInflightChunksPerWorker = intEnv("PROTODB_PARALLEL_MAX_INFLIGHT", cfg.MaxInflightChunksPerWorker)
	return cfg
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
