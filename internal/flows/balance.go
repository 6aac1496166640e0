package flows

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// BalanceFetcher returns the current credit balance
type BalanceFetcher func(ctx context.Context) (int, error)

// BalanceUpdate is one applied refresh
type BalanceUpdate struct {
	Seq     uint64
	Credits int
	Err     error
	At      time.Time
}

// BalanceWatcher refreshes the balance on a cron schedule. Refreshes may
// overlap; a result whose sequence number is older than the last applied
// one is dropped, so the newest balance is never overwritten.
type BalanceWatcher struct {
	fetch    BalanceFetcher
	schedule cron.Schedule
	spec     string
	logger   zerolog.Logger
	onUpdate func(BalanceUpdate)

	issued atomic.Uint64

	mu      sync.Mutex
	applied uint64
	last    BalanceUpdate

	cron *cron.Cron
}

// ParseSchedule parses a 5-field cron expression or a descriptor such as "@every 30s"
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// NewBalanceWatcher creates a watcher. onUpdate runs for every applied
// result, in sequence order, and must not call back into the watcher.
func NewBalanceWatcher(fetch BalanceFetcher, spec string, logger zerolog.Logger, onUpdate func(BalanceUpdate)) (*BalanceWatcher, error) {
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	if onUpdate == nil {
		onUpdate = func(BalanceUpdate) {}
	}

	return &BalanceWatcher{
		fetch:    fetch,
		schedule: schedule,
		spec:     spec,
		logger:   logger,
		onUpdate: onUpdate,
	}, nil
}

// Refresh fetches once and applies the result unless a newer one already landed.
// It reports whether the result was applied.
func (w *BalanceWatcher) Refresh(ctx context.Context) (BalanceUpdate, bool) {
	seq := w.issued.Add(1)
	credits, err := w.fetch(ctx)
	update := BalanceUpdate{Seq: seq, Credits: credits, Err: err, At: time.Now()}

	w.mu.Lock()
	defer w.mu.Unlock()

	if seq < w.applied {
		w.logger.Debug().
			Uint64("seq", seq).
			Uint64("applied", w.applied).
			Msg("Dropping stale balance refresh")
		return update, false
	}

	w.applied = seq
	w.last = update
	w.onUpdate(update)
	return update, true
}

// Latest returns the last applied result
func (w *BalanceWatcher) Latest() (BalanceUpdate, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.last, w.applied > 0
}

// Start refreshes immediately, then on every tick of the schedule until ctx
// is done or Stop is called
func (w *BalanceWatcher) Start(ctx context.Context) {
	w.Refresh(ctx)

	w.cron = cron.New(cron.WithLogger(cronLogger{w.logger}))
	w.cron.Schedule(w.schedule, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		w.Refresh(ctx)
	}))
	w.cron.Start()

	w.logger.Debug().Str("schedule", w.spec).Msg("Balance watcher started")

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
}

// Stop halts the schedule and waits for running refreshes to finish
func (w *BalanceWatcher) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
}

// cronLogger routes cron's own log lines through zerolog
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
