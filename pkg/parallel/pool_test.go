package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkStealingPool_RunsAllSeedTasks(t *testing.T) {
	pool := NewWorkStealingPool(4)
	var completed int32
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (int, error) {
			atomic.AddInt32(&completed, 1)
			return 1, nil
		}
	}
	pool.SubmitGlobal(tasks)

	if err := pool.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := atomic.LoadInt32(&completed); got != 20 {
		t.Fatalf("completed = %d, want 20", got)
	}
}

func TestWorkStealingPool_StealsFromBusyWorkers(t *testing.T) {
	// All tasks are pushed directly onto worker 0's queue of a multi-worker
	// pool, forcing the rest to steal.
	pool := NewWorkStealingPool(4)
	var completed int32
	var seeds []Task
	for i := 0; i < 40; i++ {
		seeds = append(seeds, func(ctx context.Context) (int, error) {
			atomic.AddInt32(&completed, 1)
			return 1, nil
		})
	}
	for _, s := range seeds {
		pool.workers[0].pushBottom(s)
	}

	if err := pool.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := atomic.LoadInt32(&completed); got != 40 {
		t.Fatalf("completed = %d, want 40", got)
	}

	metrics := pool.Metrics()
	stolenSomewhere := false
	for _, m := range metrics {
		if m.StealsSuccessful > 0 {
			stolenSomewhere = true
		}
	}
	if !stolenSomewhere {
		t.Fatal("expected at least one successful steal when all work starts on one worker's queue")
	}
}

func TestWorkStealingPool_PropagatesTaskError(t *testing.T) {
	pool := NewWorkStealingPool(2)
	boom := errors.New("boom")
	pool.SubmitGlobal([]Task{
		func(ctx context.Context) (int, error) { return 0, boom },
	})

	err := pool.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want boom", err)
	}
}

func TestWorkStealingPool_CancelStopsWorkers(t *testing.T) {
	pool := NewWorkStealingPool(2)
	ctx, cancel := context.WithCancel(context.Background())

	blocking := make(chan struct{})
	pool.SubmitGlobal([]Task{
		func(ctx context.Context) (int, error) {
			<-blocking
			return 0, nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	cancel()
	close(blocking)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestDeque_PushPopBottomIsLIFO(t *testing.T) {
	d := newDeque()
	order := []int{}
	for i := 0; i < 3; i++ {
		i := i
		d.pushBottom(func(ctx context.Context) (int, error) { order = append(order, i); return 0, nil })
	}
	for i := 0; i < 3; i++ {
		task, ok := d.popBottom()
		if !ok {
			t.Fatalf("popBottom() ok=false at i=%d", i)
		}
		task(context.Background())
	}
	if len(order) != 3 || order[0] != 2 || order[2] != 0 {
		t.Fatalf("order = %v, want [2 1 0] (LIFO)", order)
	}
}

func TestDeque_PopTopIsFIFO(t *testing.T) {
	d := newDeque()
	order := []int{}
	for i := 0; i < 3; i++ {
		i := i
		d.pushBottom(func(ctx context.Context) (int, error) { order = append(order, i); return 0, nil })
	}
	task, ok, contended := d.popTop(time.Millisecond)
	if !ok || contended {
		t.Fatalf("popTop ok=%v contended=%v", ok, contended)
	}
	task(context.Background())
	if len(order) != 1 || order[0] != 0 {
		t.Fatalf("order = %v, want [0] (FIFO steal takes the oldest task)", order)
	}
}
