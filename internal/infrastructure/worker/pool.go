package worker

import (
	"context"
	"sync"
	"time"

	"shopify-hubspot-sync/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

const (
	// DefaultWorkers is the default number of background workers
	DefaultWorkers = 4
	// DefaultQueueSize is the default capacity of the background queue
	DefaultQueueSize = 256
)

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Pool is a bounded background task queue. Task failures are logged and
// counted, never returned to the submitter.
type Pool struct {
	tasks  chan task
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger

	submitTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// Option configures a Pool
type Option func(*Pool)

// WithSubmitTimeout makes Submit wait up to d for queue space before dropping a task
func WithSubmitTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.submitTimeout = d
	}
}

// NewPool starts workers goroutines reading from a queue of queueSize
func NewPool(workers, queueSize int, logger zerolog.Logger, opts ...Option) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:  make(chan task, queueSize),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues a task. It returns false when the queue is closed, or when
// it stays full for longer than the submit timeout.
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	t := task{name: name, fn: fn}
	select {
	case p.tasks <- t:
		return true
	default:
	}

	if p.submitTimeout > 0 {
		timer := time.NewTimer(p.submitTimeout)
		defer timer.Stop()
		select {
		case p.tasks <- t:
			return true
		case <-timer.C:
		}
	}

	metrics.BackgroundTasksTotal.WithLabelValues(metrics.StatusDropped).Inc()
	p.logger.Warn().Str("task", name).Msg("Background queue full, dropping task")
	return false
}

// Close stops accepting tasks and waits for queued ones to finish
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.run(t)
	}
}

func (p *Pool) run(t task) {
	metrics.BackgroundTasksInFlight.Inc()
	defer metrics.BackgroundTasksInFlight.Dec()

	defer func() {
		if pe := Recovered(recover()); pe != nil {
			metrics.BackgroundTasksTotal.WithLabelValues(metrics.StatusFailure).Inc()
			p.logger.Error().Str("task", t.name).Interface("panic", pe.Value).Bytes("stack", pe.Stack).Msg("Background task panicked")
		}
	}()

	if err := t.fn(p.ctx); err != nil {
		metrics.BackgroundTasksTotal.WithLabelValues(metrics.StatusFailure).Inc()
		p.logger.Error().Err(err).Str("task", t.name).Msg("Background task failed")
		return
	}
	metrics.BackgroundTasksTotal.WithLabelValues(metrics.StatusSuccess).Inc()
}
