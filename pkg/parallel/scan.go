package parallel

import (
	"context"
	"sync"
	"time"
)

// FetchFunc returns up to count items starting at offset (offset, count)
// -> items, mirroring original_source/proto_db/parallel.py's fetch_fn.
type FetchFunc func(offset, count int) ([]interface{}, error)

// ProcessFunc transforms one fetched item, or returns keep=false to drop it.
type ProcessFunc func(item interface{}) (out interface{}, keep bool, err error)

// Scan executes fetchFn/processFn over a logical sequence of dataLen
// items using a WorkStealingPool with per-seed adaptive chunking. Results
// carry no ordering guarantee across seeds (spec.md §4.5, "a pool of N
// workers... results keep no strict ordering" per original_source). A
// single worker (cfg.MaxWorkers <= 1) runs the same fixed-chunk loop
// inline with no goroutines, matching original_source's thread_pool/
// single-worker fallback path.
func Scan(ctx context.Context, dataLen int, fetchFn FetchFunc, processFn ProcessFunc, cfg Config) ([]interface{}, error) {
	if cfg.MaxWorkers <= 1 {
		return scanInline(ctx, dataLen, fetchFn, processFn, cfg)
	}

	pool := NewWorkStealingPool(cfg.MaxWorkers)
	var (
		mu      sync.Mutex
		results []interface{}
	)

	seedSize := clamp(cfg.InitialChunkSize*4, cfg.MinChunkSize, cfg.MaxChunkSize)
	var seeds []Task
	for start := 0; start < dataLen; start += seedSize {
		count := seedSize
		if start+count > dataLen {
			count = dataLen - start
		}
		seeds = append(seeds, makeSeedTask(start, count, cfg, fetchFn, processFn, &mu, &results))
	}
	pool.SubmitGlobal(seeds)

	if err := pool.Run(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

func makeSeedTask(start, count int, cfg Config, fetchFn FetchFunc, processFn ProcessFunc, mu *sync.Mutex, results *[]interface{}) Task {
	return func(ctx context.Context) (int, error) {
		ctrl := NewAdaptiveChunkController(cfg)
		localStart := start
		end := start + count
		processed := 0

		for localStart < end {
			select {
			case <-ctx.Done():
				return processed, ctx.Err()
			default:
			}

			req := ctrl.NextSize()
			if remaining := end - localStart; req > remaining {
				req = remaining
			}

			t0 := time.Now()
			items, err := fetchFn(localStart, req)
			if err != nil {
				return processed, err
			}
			for _, item := range items {
				out, keep, err := processFn(item)
				if err != nil {
					return processed, err
				}
				if keep {
					mu.Lock()
					*results = append(*results, out)
					mu.Unlock()
				}
			}
			elapsedMs := float64(time.Since(t0)) / float64(time.Millisecond)
			ctrl.OnChunkTiming(elapsedMs)

			processed += len(items)
			localStart += len(items)
			if len(items) == 0 {
				break
			}
		}
		return processed, nil
	}
}

func scanInline(ctx context.Context, dataLen int, fetchFn FetchFunc, processFn ProcessFunc, cfg Config) ([]interface{}, error) {
	chunk := clamp(cfg.InitialChunkSize, cfg.MinChunkSize, cfg.MaxChunkSize)
	var results []interface{}
	for start := 0; start < dataLen; start += chunk {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		count := chunk
		if start+count > dataLen {
			count = dataLen - start
		}
		items, err := fetchFn(start, count)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			out, keep, err := processFn(item)
			if err != nil {
				return nil, err
			}
			if keep {
				results = append(results, out)
			}
		}
	}
	return results, nil
}
