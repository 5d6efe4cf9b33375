// Package directory keeps a live, occupancy-ordered view of the publicly
// listed towns by polling the town record service while active.
package directory

import (
	"cmp"
	"context"
	"errors"
	"log"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/louisbranch/covey.town/internal/platform/timeouts"
	"github.com/louisbranch/covey.town/internal/town"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/louisbranch/covey.town/internal/directory"

// ErrAlreadyActive is returned by Activate while a refresh loop is running.
var ErrAlreadyActive = errors.New("directory poller is already active")

// Lister fetches the publicly listed towns.
type Lister interface {
	ListTowns(ctx context.Context) ([]town.Summary, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context) ([]town.Summary, error)

// ListTowns calls f.
func (f ListerFunc) ListTowns(ctx context.Context) ([]town.Summary, error) {
	return f(ctx)
}

// Entry is one town in a snapshot.
type Entry struct {
	town.Summary
	Full bool
}

// CanJoin reports whether the join action is available for the town.
func (e Entry) CanJoin() bool {
	return !e.Full
}

// Snapshot is the directory as of one successful refresh. Entries are ordered
// by current occupancy, busiest first. A snapshot is never mutated after it
// is published.
type Snapshot struct {
	Entries     []Entry
	RefreshedAt time.Time
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the refresh interval. Non-positive values keep the default.
func WithInterval(interval time.Duration) Option {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithClock sets the clock driving the refresh ticker.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Poller) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithLogf sets the function used to report failed refreshes.
func WithLogf(logf func(string, ...any)) Option {
	return func(p *Poller) {
		if logf != nil {
			p.logf = logf
		}
	}
}

// WithOnUpdate registers a callback invoked from the refresh loop after each
// new snapshot is published. The loop waits for fn to return, so fn must not
// block on the poller and must not call Deactivate.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(p *Poller) {
		p.onUpdate = fn
	}
}

// Poller owns the directory snapshot and its refresh timer.
type Poller struct {
	lister   Lister
	interval time.Duration
	clock    clockwork.Clock
	logf     func(string, ...any)
	onUpdate func(Snapshot)

	refreshes metric.Int64Counter
	failures  metric.Int64Counter

	snapshot atomic.Pointer[Snapshot]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds an inactive poller over lister.
func New(lister Lister, opts ...Option) *Poller {
	p := &Poller{
		lister:   lister,
		interval: timeouts.DirectoryPoll,
		clock:    clockwork.NewRealClock(),
		logf:     log.Printf,
	}
	for _, opt := range opts {
		opt(p)
	}

	meter := otel.Meter(meterName)
	var err error
	if p.refreshes, err = meter.Int64Counter("directory.refresh", metric.WithDescription("Successful directory refreshes")); err != nil {
		p.logf("directory refresh counter: %v", err)
	}
	if p.failures, err = meter.Int64Counter("directory.refresh.failed", metric.WithDescription("Failed directory refreshes")); err != nil {
		p.logf("directory failure counter: %v", err)
	}
	return p
}

// Activate fetches the directory now and then once per interval until
// Deactivate is called or ctx ends.
func (p *Poller) Activate(ctx context.Context) error {
	if p == nil || p.lister == nil {
		return errors.New("directory lister is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrAlreadyActive
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)
		p.run(loopCtx)
	}()
	return nil
}

// Deactivate stops the refresh loop and waits for it to exit. No fetch runs
// and no snapshot is published once it returns. It is safe to call when the
// poller is not active.
func (p *Poller) Deactivate() {
	if p == nil {
		return
	}
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Active reports whether the refresh loop is running.
func (p *Poller) Active() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Snapshot returns the latest published snapshot. It is empty until the first
// successful refresh.
func (p *Poller) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}
	if s := p.snapshot.Load(); s != nil {
		return s.clone()
	}
	return Snapshot{}
}

func (s Snapshot) clone() Snapshot {
	s.Entries = slices.Clone(s.Entries)
	return s
}

func (p *Poller) run(ctx context.Context) {
	p.refresh(ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.refresh(ctx)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	towns, err := p.lister.ListTowns(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		if p.failures != nil {
			p.failures.Add(ctx, 1)
		}
		p.logf("directory refresh failed: %v", err)
		return
	}

	snapshot := Snapshot{Entries: Order(towns), RefreshedAt: p.clock.Now()}
	p.snapshot.Store(&snapshot)
	if p.refreshes != nil {
		p.refreshes.Add(ctx, 1)
	}
	if p.onUpdate != nil {
		p.onUpdate(snapshot.clone())
	}
}

// Order returns the towns as entries sorted by current occupancy, busiest
// first, with full towns marked. Towns with equal occupancy keep their
// relative order. The input is not modified.
func Order(towns []town.Summary) []Entry {
	entries := make([]Entry, 0, len(towns))
	for _, t := range towns {
		entries = append(entries, Entry{Summary: t, Full: t.IsFull()})
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(b.CurrentOccupancy, a.CurrentOccupancy)
	})
	return entries
}
