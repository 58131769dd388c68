package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBufferSize is the record channel capacity used when none is given.
const DefaultBufferSize = 1000

// Stats reports replay progress.
type Stats struct {
	LinesRead      int64
	RecordsApplied int64
	UnknownEvents  int64
	Malformed      int64
}

// Options configures a Replayer.
type Options struct {
	// BufferSize is the record channel capacity
	BufferSize int

	// Realtime paces records by their t_ms, divided by Speed
	Realtime bool
	Speed    float64

	// AfterRecord runs on the applying goroutine after every record,
	// whether or not it was applied.
	AfterRecord func()

	Logger *slog.Logger
}

// Replayer reads an event log and applies it through a Driver.
//
// Two stages:
//
//	Reader: scans and parses lines, sends records on a bounded channel
//	Applier: receives records in order and calls Driver.Apply
//
// The channel send blocks when full: every record is applied, in order.
type Replayer struct {
	driver *Driver
	opts   Options
	logger *slog.Logger

	// Progress (atomic for concurrent readers such as the dashboard)
	linesRead      atomic.Int64
	recordsApplied atomic.Int64
	unknownEvents  atomic.Int64
	malformed      atomic.Int64

	// sleep waits for d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewReplayer creates a replayer applying records through driver.
func NewReplayer(driver *Driver, opts Options) *Replayer {
	if opts.BufferSize < 1 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Replayer{
		driver: driver,
		opts:   opts,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Stats returns replay progress. Safe to call from any goroutine.
func (r *Replayer) Stats() Stats {
	return Stats{
		LinesRead:      r.linesRead.Load(),
		RecordsApplied: r.recordsApplied.Load(),
		UnknownEvents:  r.unknownEvents.Load(),
		Malformed:      r.malformed.Load(),
	}
}

type parsedLine struct {
	lineNo int64
	rec    Record
}

// Run replays src until EOF or ctx is cancelled. Skipped records are
// counted, not returned; only read failures and cancellation are errors.
func (r *Replayer) Run(ctx context.Context, src io.Reader) error {
	records := make(chan parsedLine, r.opts.BufferSize)

	// Unblocks a reader stuck in Scan on cancellation
	if c, ok := src.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(records)
		return r.read(gctx, src, records)
	})
	g.Go(func() error {
		return r.apply(gctx, records)
	})

	err := g.Wait()
	s := r.Stats()
	r.logger.Info("replay_finished",
		"lines_read", s.LinesRead,
		"records_applied", s.RecordsApplied,
		"unknown_events", s.UnknownEvents,
		"malformed", s.Malformed,
	)
	return err
}

func (r *Replayer) read(ctx context.Context, src io.Reader, out chan<- parsedLine) error {
	scanner := bufio.NewScanner(src)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var lineNo int64
	for scanner.Scan() {
		lineNo++
		r.linesRead.Add(1)

		rec, ok, err := ParseLine(scanner.Text())
		if err != nil {
			r.skip(lineNo, err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case out <- parsedLine{lineNo: lineNo, rec: rec}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read events: %w", err)
	}
	return nil
}

func (r *Replayer) apply(ctx context.Context, in <-chan parsedLine) error {
	var (
		wallStart time.Time
		firstMs   int64
		started   bool
	)

	for {
		var pl parsedLine
		var ok bool
		select {
		case pl, ok = <-in:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !ok {
			return nil
		}

		if r.opts.Realtime {
			if !started {
				wallStart, firstMs, started = time.Now(), pl.rec.TMs, true
			}
			offset := time.Duration(float64(pl.rec.TMs-firstMs) / r.opts.Speed * float64(time.Millisecond))
			if wait := time.Until(wallStart.Add(offset)); wait > 0 {
				if err := r.sleep(ctx, wait); err != nil {
					return err
				}
			}
		}

		if err := r.driver.Apply(pl.rec); err != nil {
			r.skip(pl.lineNo, err)
		} else {
			r.recordsApplied.Add(1)
		}

		if r.opts.AfterRecord != nil {
			r.opts.AfterRecord()
		}
	}
}

func (r *Replayer) skip(lineNo int64, err error) {
	switch {
	case errors.Is(err, ErrUnknownEvent):
		r.unknownEvents.Add(1)
	default:
		r.malformed.Add(1)
	}
	r.logger.Debug("replay_record_skipped", "line", lineNo, "error", err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Open opens an event log. "-" reads standard input.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return f, nil
}
