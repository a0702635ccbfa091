// Package sampler polls a quote source for a set of tracked names and keeps
// their recent values in a bounded window.
//
// All state lives on the goroutine running Run. Track, Untrack, Tick and the
// read helpers hand work to that goroutine and wait for the answer, so the
// window and the Sink are only ever touched from one place. Network fetches
// happen on short-lived goroutines and come back as a single merge per tick.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockticker/src/common"
	"stockticker/src/quote"
	"stockticker/src/series"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidName    = errors.New("invalid ticker symbol")
	ErrAlreadyTracked = errors.New("ticker already being tracked")
	ErrNotTracked     = errors.New("ticker is not being tracked")
	ErrStopped        = errors.New("sampler stopped")

	errPanicked = errors.New("sampler command panicked")
)

// Sink draws the window. Every call happens on the Run goroutine.
type Sink interface {
	AddLine(name string)
	RemoveLine(name string) error
	Render(snap series.Snapshot) error
}

// Recorder receives every sample that made it into the window.
type Recorder interface {
	Record(at time.Time, name string, value decimal.Decimal)
}

type Config struct {
	Capacity int
	Period   time.Duration
	Interval string
	Lookback time.Duration
	// FetchConcurrency caps fetches in flight per tick; 0 means one per name.
	FetchConcurrency int
	// FetchTimeout bounds every single fetch; 0 means one period.
	FetchTimeout time.Duration
}

type Option func(*Sampler)

func WithRecorder(r Recorder) Option {
	return func(s *Sampler) { s.recorder = r }
}

type Sampler struct {
	cfg      Config
	source   quote.Source
	sink     Sink
	recorder Recorder

	// Owned by the Run goroutine.
	window *series.Window
	gens   map[string]uint64
	gen    uint64

	// Values of the newest axis second, held back from the recorder until
	// the axis moves past it.
	pendingAt    time.Time
	pendingNames []string
	pending      map[string]decimal.Decimal

	commands chan func()
	done     chan struct{}
}

func New(cfg Config, source quote.Source, sink Sink, opts ...Option) *Sampler {
	if cfg.Capacity < 1 {
		cfg.Capacity = common.DefaultCapacity
	}
	if cfg.Period <= 0 {
		cfg.Period = common.DefaultPeriod
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = cfg.Period
	}
	s := &Sampler{
		cfg:      cfg,
		source:   source,
		sink:     sink,
		window:   series.NewWindow(cfg.Capacity),
		gens:     make(map[string]uint64),
		pending:  make(map[string]decimal.Decimal),
		commands: make(chan func()),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run owns the sampler state and fires a tick every period until ctx is done.
func (s *Sampler) Run(ctx context.Context) error {
	common.Logger.Sugar().Infof("Sampler Run capacity %d period %s", s.cfg.Capacity, s.cfg.Period)
	defer close(s.done)
	defer s.flushRecords()
	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-s.commands:
			s.apply(cmd)
		case now := <-ticker.C:
			common.Go(func() {
				if _, err := s.Tick(ctx, now); err != nil && !errors.Is(err, ErrStopped) && !errors.Is(err, context.Canceled) {
					common.Logger.Sugar().Warnf("Sampler Tick %s error: %v", now.Format(series.LabelLayout), err)
				}
			})
		}
	}
}

func (s *Sampler) apply(cmd func()) {
	defer common.HandlePanic()
	cmd()
}

// do runs fn on the Run goroutine and waits for it.
func (s *Sampler) do(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	cmd := func() {
		err := errPanicked
		defer func() { errCh <- err }()
		err = fn()
	}
	select {
	case s.commands <- cmd:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errCh:
		return err
	case <-s.done:
		return ErrStopped
	}
}

func (s *Sampler) request(name string) quote.Request {
	return quote.Request{Symbol: name, Interval: s.cfg.Interval, Period: s.cfg.Lookback}
}

type fetchResult struct {
	value decimal.Decimal
	err   error
}

// fetch asks the source for name and gives up after FetchTimeout even when
// the source ignores its context.
func (s *Sampler) fetch(ctx context.Context, name string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	resCh := make(chan fetchResult, 1)
	common.Go(func() {
		res := fetchResult{err: errPanicked}
		defer func() { resCh <- res }()
		res.value, res.err = s.source.FetchLatest(ctx, s.request(name))
	})
	select {
	case res := <-resCh:
		return res.value, res.err
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	}
}

// Track validates name with one fetch and starts sampling it.
func (s *Sampler) Track(ctx context.Context, name string) error {
	name = quote.Normalize(name)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	err := s.do(ctx, func() error {
		if s.window.Has(name) {
			return fmt.Errorf("%w: %s", ErrAlreadyTracked, name)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if _, err = s.fetch(ctx, name); err != nil {
		common.Logger.Sugar().Infof("Sampler Track %s rejected: %v", name, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s", ErrInvalidName, name)
	}
	return s.do(ctx, func() error {
		// Another Track may have won while we were fetching.
		if !s.window.Add(name) {
			return fmt.Errorf("%w: %s", ErrAlreadyTracked, name)
		}
		s.gen++
		s.gens[name] = s.gen
		s.sink.AddLine(name)
		common.Logger.Sugar().Infof("Sampler Track %s", name)
		return nil
	})
}

// Untrack stops sampling name and drops its values and chart line. A source
// that holds per-name resources is told to release them.
func (s *Sampler) Untrack(ctx context.Context, name string) error {
	name = quote.Normalize(name)
	err := s.do(ctx, func() error {
		if !s.window.Remove(name) {
			return fmt.Errorf("%w: %s", ErrNotTracked, name)
		}
		delete(s.gens, name)
		if err := s.sink.RemoveLine(name); err != nil {
			common.Logger.Sugar().Warnf("Sampler Untrack %s RemoveLine error: %v", name, err)
		}
		common.Logger.Sugar().Infof("Sampler Untrack %s", name)
		return nil
	})
	if err != nil {
		return err
	}
	if r, ok := s.source.(quote.Releaser); ok {
		r.Release(name)
	}
	return nil
}

func (s *Sampler) Names(ctx context.Context) ([]string, error) {
	var names []string
	err := s.do(ctx, func() error {
		names = s.window.Names()
		return nil
	})
	return names, err
}

func (s *Sampler) Snapshot(ctx context.Context) (series.Snapshot, error) {
	var snap series.Snapshot
	err := s.do(ctx, func() error {
		snap = s.window.Snapshot()
		return nil
	})
	return snap, err
}

type target struct {
	name string
	gen  uint64
}

type result struct {
	target
	value decimal.Decimal
}

// Tick fetches every tracked name for the time point now, merges whatever
// came back in one pass, redraws the sink and returns the new state. A name
// whose fetch fails is logged and skipped. Tick blocks its caller until the
// merge is done; Run calls it on its own goroutine.
func (s *Sampler) Tick(ctx context.Context, now time.Time) (series.Snapshot, error) {
	var targets []target
	err := s.do(ctx, func() error {
		for _, name := range s.window.Names() {
			targets = append(targets, target{name: name, gen: s.gens[name]})
		}
		return nil
	})
	if err != nil {
		return series.Snapshot{}, err
	}

	results := s.collect(ctx, now, targets)

	var snap series.Snapshot
	err = s.do(context.WithoutCancel(ctx), func() error {
		snap = s.merge(now, results)
		return nil
	})
	return snap, err
}

func (s *Sampler) collect(ctx context.Context, now time.Time, targets []target) []result {
	out := make([]*result, len(targets))
	var g errgroup.Group
	if s.cfg.FetchConcurrency > 0 {
		g.SetLimit(s.cfg.FetchConcurrency)
	}
	for i, t := range targets {
		g.Go(func() error {
			defer common.HandlePanic()
			value, err := s.fetch(ctx, t.name)
			if err != nil {
				common.Logger.Sugar().Warnf("Sampler Tick %s fetch %s error: %v", now.Format(series.LabelLayout), t.name, err)
				return nil
			}
			out[i] = &result{target: t, value: value}
			return nil
		})
	}
	_ = g.Wait()
	results := make([]result, 0, len(out))
	for _, r := range out {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}

// merge runs on the Run goroutine.
func (s *Sampler) merge(now time.Time, results []result) series.Snapshot {
	values := make(map[string]decimal.Decimal, len(results))
	for _, r := range results {
		if gen, ok := s.gens[r.name]; !ok || gen != r.gen {
			// Untracked, or untracked and tracked again, while in flight.
			continue
		}
		values[r.name] = r.value
	}
	advanced := s.window.Merge(now, values)
	if s.recorder != nil {
		s.record(now, advanced, values)
	}
	snap := s.window.Snapshot()
	if err := s.sink.Render(snap); err != nil {
		common.Logger.Sugar().Warnf("Sampler Render error: %v", err)
	}
	return snap
}

// record keeps what the window keeps: a value overwritten within its second
// never reaches the recorder.
func (s *Sampler) record(now time.Time, advanced bool, values map[string]decimal.Decimal) {
	if advanced {
		s.flushRecords()
		s.pendingAt = now.Truncate(time.Second)
	}
	for _, name := range s.window.Names() {
		value, ok := values[name]
		if !ok {
			continue
		}
		if _, seen := s.pending[name]; !seen {
			s.pendingNames = append(s.pendingNames, name)
		}
		s.pending[name] = value
	}
}

func (s *Sampler) flushRecords() {
	if s.recorder == nil {
		return
	}
	for _, name := range s.pendingNames {
		s.recorder.Record(s.pendingAt, name, s.pending[name])
	}
	s.pendingNames = s.pendingNames[:0]
	clear(s.pending)
}
