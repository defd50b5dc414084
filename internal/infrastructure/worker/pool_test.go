package worker

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shopify-hubspot-sync/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := NewPool(2, 10, zerolog.Nop())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.True(t, p.Submit("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	p.Close()

	assert.Equal(t, int32(5), ran.Load())
}

func TestPool_FailuresAndPanicsDoNotStopWorkers(t *testing.T) {
	p := NewPool(1, 10, zerolog.Nop())

	var ran atomic.Int32
	p.Submit("fails", func(ctx context.Context) error { return errors.New("boom") })
	p.Submit("panics", func(ctx context.Context) error { panic("boom") })
	p.Submit("ok", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	p.Close()

	assert.Equal(t, int32(1), ran.Load())
}

func TestPool_QueueFull(t *testing.T) {
	p := NewPool(1, 1, zerolog.Nop())
	release := make(chan struct{})
	started := make(chan struct{})

	require.True(t, p.Submit("blocker", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.True(t, p.Submit("queued", func(ctx context.Context) error { return nil }))

	assert.False(t, p.Submit("dropped", func(ctx context.Context) error { return nil }))

	close(release)
	p.Close()
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := NewPool(1, 1, zerolog.Nop())
	p.Close()
	p.Close()

	assert.False(t, p.Submit("late", func(ctx context.Context) error { return nil }))
}

func TestRunBatch_KeepsOrderAndWaits(t *testing.T) {
	var mu sync.Mutex
	seen := map[int]bool{}

	results, errs := RunBatch(context.Background(), []int{1, 2, 3, 4}, func(ctx context.Context, n int) int {
		mu.Lock()
		seen[n] = true
		mu.Unlock()
		return n * 10
	})

	assert.Equal(t, []int{10, 20, 30, 40}, results)
	assert.Equal(t, []error{nil, nil, nil, nil}, errs)
	assert.Len(t, seen, 4)

	empty, emptyErrs := RunBatch(context.Background(), nil, func(ctx context.Context, n int) int { return n })
	assert.Empty(t, empty)
	assert.Empty(t, emptyErrs)
}

func TestRunBatch_ReportsPanicWithStack(t *testing.T) {
	results, errs := RunBatch(context.Background(), []string{"a", "boom", "c"}, func(ctx context.Context, s string) string {
		if s == "boom" {
			panic(s)
		}
		return s + "!"
	})

	assert.Equal(t, []string{"a!", "", "c!"}, results)
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[2])

	var pe *PanicError
	require.True(t, errors.As(errs[1], &pe))
	assert.Equal(t, "boom", pe.Value)
	assert.Equal(t, "panic: boom", pe.Error())
	assert.Contains(t, string(pe.Stack), "TestRunBatch_ReportsPanicWithStack")
}

func TestRecovered_Nil(t *testing.T) {
	assert.Nil(t, Recovered(nil))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestPool_PanicIsLoggedWithStack(t *testing.T) {
	var buf bytes.Buffer
	failures := metrics.BackgroundTasksTotal.WithLabelValues(metrics.StatusFailure)
	before := counterValue(t, failures)

	p := NewPool(1, 1, zerolog.New(&buf))
	p.Submit("explodes", func(ctx context.Context) error { panic("kaboom") })
	p.Close()

	assert.Equal(t, before+1, counterValue(t, failures))
	assert.Contains(t, buf.String(), `"task":"explodes"`)
	assert.Contains(t, buf.String(), `"panic":"kaboom"`)
	assert.Contains(t, buf.String(), `"stack":`)
}

func TestPool_SubmitTimeoutWaitsForSpace(t *testing.T) {
	p := NewPool(1, 1, zerolog.Nop(), WithSubmitTimeout(time.Second))
	release := make(chan struct{})
	started := make(chan struct{})

	require.True(t, p.Submit("blocker", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.True(t, p.Submit("queued", func(ctx context.Context) error { return nil }))

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	var ran atomic.Bool
	assert.True(t, p.Submit("waits", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}))
	p.Close()
	assert.True(t, ran.Load())
}

func TestPool_SubmitTimeoutExpires(t *testing.T) {
	dropped := metrics.BackgroundTasksTotal.WithLabelValues(metrics.StatusDropped)
	before := counterValue(t, dropped)

	p := NewPool(1, 1, zerolog.Nop(), WithSubmitTimeout(20*time.Millisecond))
	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, p.Submit("blocker", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.True(t, p.Submit("queued", func(ctx context.Context) error { return nil }))

	start := time.Now()
	assert.False(t, p.Submit("late", func(ctx context.Context) error { return nil }))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, before+1, counterValue(t, dropped))

	close(release)
	p.Close()
}

func TestChunk(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Chunk([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1, 2, 3}}, Chunk([]int{1, 2, 3}, 5))
	assert.Equal(t, [][]int{{1}, {2}}, Chunk([]int{1, 2}, 0))
	assert.Empty(t, Chunk([]int{}, 3))
}
