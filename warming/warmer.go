// Package warming implements periodic, priority-ordered, concurrency-
// limited cache warming: a set of named operations are run in priority
// batches on an interval, with bounded concurrency and per-operation
// timeouts, producing cumulative cycle statistics.
package warming

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/arjunmehta/entitycache/internal/logx"
)

// Operation describes one warming task: how urgently it should run
// relative to its peers (Priority, 1-10, higher runs first) and how to
// actually warm the cache (Fetcher). Fetcher returns how many items it
// warmed, for statistics. TTLMultiplier, when non-zero, scales the TTL a
// warmed item is re-cached with relative to that item type's normal TTL,
// so a low-priority background warm can sit longer before going stale than
// a request-driven refresh would. A zero value means "use the normal TTL
// unmodified." Fetcher reads it via MultiplierFromContext.
type Operation struct {
	ID            string
	Params        map[string]interface{}
	Priority      int
	TTLMultiplier float64
	Fetcher       func(ctx context.Context) (itemsWarmed int, err error)
}

type ttlMultiplierKey struct{}

// MultiplierFromContext returns the TTLMultiplier of the operation
// currently running, if any, and whether one was set. A Fetcher closure
// calls this to learn how to scale the TTL it passes when re-caching a
// warmed item.
func MultiplierFromContext(ctx context.Context) (float64, bool) {
	m, ok := ctx.Value(ttlMultiplierKey{}).(float64)
	return m, ok
}

// Config controls batching, timeouts, and the warming interval.
type Config struct {
	MaxConcurrency   int
	OperationTimeout time.Duration
	Interval         time.Duration
	ContinueOnError  bool
	// RateLimiter optionally throttles the overall rate of fetcher
	// invocations across a cycle, protecting the origin from a thundering
	// warming herd. Nil disables rate limiting.
	RateLimiter *rate.Limiter
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrency:   5,
		OperationTimeout: 30 * time.Second,
		Interval:         5 * time.Minute,
		ContinueOnError:  true,
	}
}

func sanitize(cfg Config) Config {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 5
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 30 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return cfg
}

// Stats accumulates across every cycle run since the Warmer was created.
type Stats struct {
	TotalCycles              int
	TotalOperations          int
	SuccessfulOperations     int
	TotalItemsWarmed         int
	AverageItemsPerOperation float64
	SuccessRate              float64
	LastWarmingAt            time.Time
	NextWarmingAt            time.Time
}

// Warmer runs Operations on a timer. Re-entrancy is guarded by an
// atomic.Bool: a tick that arrives while a prior cycle is still running
// is skipped rather than overlapped.
type Warmer struct {
	mu  sync.Mutex
	ops map[string]Operation

	cfg   Config
	stats Stats
	log   *logx.Logger

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func New(cfg Config, log *logx.Logger) *Warmer {
	if log == nil {
		log = logx.New(false)
	}
	return &Warmer{
		ops: make(map[string]Operation),
		cfg: sanitize(cfg),
		log: log,
	}
}

// AddOperation inserts or replaces the operation with this ID.
func (w *Warmer) AddOperation(op Operation) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ops[op.ID] = op
}

// RemoveOperation drops the operation with this ID, if any.
func (w *Warmer) RemoveOperation(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.ops, id)
}

// Start runs an immediate warming cycle and then one every Config.Interval
// until Stop is called. Calling Start twice without an intervening Stop is
// a no-op on the second call.
func (w *Warmer) Start(ctx context.Context) {
	w.mu.Lock()
	if w.stopCh != nil {
		w.mu.Unlock()
		return
	}
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.RunCycle(ctx)

		ticker := time.NewTicker(w.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.RunCycle(ctx)
			}
		}
	}()
}

// Stop cancels the periodic timer and waits for any in-progress cycle to
// finish. Calling Stop when not started is a no-op.
func (w *Warmer) Stop() {
	w.mu.Lock()
	stopCh := w.stopCh
	w.stopCh = nil
	w.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	w.wg.Wait()
}

// Cleanup stops the warmer and clears every registered operation.
func (w *Warmer) Cleanup() {
	w.Stop()
	w.mu.Lock()
	w.ops = make(map[string]Operation)
	w.mu.Unlock()
}

// RunCycle executes one warming cycle synchronously: snapshot operations,
// sort by priority descending, partition into Config.MaxConcurrency-sized
// batches, and run each batch in parallel. A periodic tick that arrives
// while a prior cycle is still running is skipped, never overlapped.
func (w *Warmer) RunCycle(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.log.Info("warming", "cycle already running, skipping tick", nil)
		return
	}
	defer w.running.Store(false)

	ops := w.snapshotOpsByPriority()

	var (
		total, successful, itemsWarmed int
		aborted                        bool
	)

	for start := 0; start < len(ops) && !aborted; start += w.cfg.MaxConcurrency {
		end := start + w.cfg.MaxConcurrency
		if end > len(ops) {
			end = len(ops)
		}
		batch := ops[start:end]

		var batchWG sync.WaitGroup
		results := make([]struct {
			warmed int
			err    error
		}, len(batch))

		for i, op := range batch {
			batchWG.Add(1)
			go func(i int, op Operation) {
				defer batchWG.Done()
				results[i].warmed, results[i].err = w.runOne(ctx, op)
			}(i, op)
		}
		batchWG.Wait()

		for i, op := range batch {
			total++
			if results[i].err != nil {
				w.log.Warn("warming", "operation failed", logx.Fields{"id": op.ID, "error": results[i].err.Error()})
				if !w.cfg.ContinueOnError {
					aborted = true
				}
				continue
			}
			successful++
			itemsWarmed += results[i].warmed
		}
	}

	w.recordCycle(total, successful, itemsWarmed)
}

func (w *Warmer) runOne(ctx context.Context, op Operation) (int, error) {
	opCtx, cancel := context.WithTimeout(ctx, w.cfg.OperationTimeout)
	defer cancel()

	if op.TTLMultiplier != 0 {
		opCtx = context.WithValue(opCtx, ttlMultiplierKey{}, op.TTLMultiplier)
	}

	if w.cfg.RateLimiter != nil {
		if err := w.cfg.RateLimiter.Wait(opCtx); err != nil {
			return 0, err
		}
	}
	return op.Fetcher(opCtx)
}

func (w *Warmer) snapshotOpsByPriority() []Operation {
	w.mu.Lock()
	defer w.mu.Unlock()
	ops := make([]Operation, 0, len(w.ops))
	for _, op := range w.ops {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Priority > ops[j].Priority })
	return ops
}

func (w *Warmer) recordCycle(total, successful, itemsWarmed int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stats.TotalCycles++
	w.stats.TotalOperations += total
	w.stats.SuccessfulOperations += successful
	w.stats.TotalItemsWarmed += itemsWarmed
	if w.stats.SuccessfulOperations > 0 {
		w.stats.AverageItemsPerOperation = float64(w.stats.TotalItemsWarmed) / float64(w.stats.SuccessfulOperations)
	}
	if w.stats.TotalOperations > 0 {
		w.stats.SuccessRate = float64(w.stats.SuccessfulOperations) / float64(w.stats.TotalOperations)
	}
	w.stats.LastWarmingAt = time.Now()
	w.stats.NextWarmingAt = w.stats.LastWarmingAt.Add(w.cfg.Interval)
}

// GetStats returns a snapshot of cumulative warming statistics.
func (w *Warmer) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
