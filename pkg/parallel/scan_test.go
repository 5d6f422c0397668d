package parallel

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func rangeFetch(total int) FetchFunc {
	return func(offset, count int) ([]interface{}, error) {
		if offset >= total {
			return nil, nil
		}
		if offset+count > total {
			count = total - offset
		}
		out := make([]interface{}, count)
		for i := 0; i < count; i++ {
			out[i] = offset + i
		}
		return out, nil
	}
}

func doubleEven(item interface{}) (interface{}, bool, error) {
	n := item.(int)
	if n%2 != 0 {
		return nil, false, nil
	}
	return n * 2, true, nil
}

func TestScan_InlineSingleWorker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWorkers = 1
	cfg.InitialChunkSize = 4
	cfg.MinChunkSize = 1
	cfg.MaxChunkSize = 100

	results, err := Scan(context.Background(), 10, rangeFetch(10), doubleEven, cfg)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	ints := toSortedInts(results)
	want := []int{0, 4, 8, 12, 16}
	if !equalInts(ints, want) {
		t.Fatalf("results = %v, want %v", ints, want)
	}
}

func TestScan_MultiWorker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWorkers = 4
	cfg.InitialChunkSize = 8
	cfg.MinChunkSize = 2
	cfg.MaxChunkSize = 64

	results, err := Scan(context.Background(), 200, rangeFetch(200), doubleEven, cfg)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	ints := toSortedInts(results)
	var want []int
	for i := 0; i < 200; i += 2 {
		want = append(want, i*2)
	}
	if !equalInts(ints, want) {
		t.Fatalf("len(results) = %d, want %d", len(ints), len(want))
	}
}

func TestScan_PropagatesFetchError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWorkers = 2
	boom := errors.New("fetch failed")
	fetchErr := func(offset, count int) ([]interface{}, error) {
		return nil, boom
	}

	_, err := Scan(context.Background(), 100, fetchErr, doubleEven, cfg)
	if !errors.Is(err, boom) {
		t.Fatalf("Scan error = %v, want boom", err)
	}
}

func toSortedInts(results []interface{}) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.(int)
	}
	sort.Ints(out)
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
