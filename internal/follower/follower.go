// Package follower tails a VersaLex XML event log, surviving the rotations
// VersaLex performs when it archives the log, and publishes parsed events.
package follower

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
	"versalex-ingest/internal/extractor"
	"versalex-ingest/internal/model"
	"versalex-ingest/internal/parser"
	"versalex-ingest/internal/publisher"
	"versalex-ingest/internal/threads"

	"github.com/rs/zerolog/log"
)

const (
	DefaultBufferSize = 1 << 20
	DefaultInterval   = 2 * time.Second
)

type Options struct {
	// Follow keeps polling after the first end of file. When false Run
	// returns right after publishing the first MarkerEOF.
	Follow     bool
	BufferSize int
	Interval   time.Duration
	// Location is the time zone the log's dates are written in. Default time.Local.
	Location *time.Location
}

// Stats counts what a follower has seen since it was created.
type Stats struct {
	Events    int64 `json:"events"`
	Failures  int64 `json:"failures"`
	EOFs      int64 `json:"eofs"`
	Rotations int64 `json:"rotations"`
}

// Follower reads one log file. Subscribe before calling Run; items are
// delivered on the goroutine that called Run.
type Follower struct {
	*publisher.Publisher

	path      string
	opts      Options
	registry  *threads.Registry
	parser    parser.EventParser
	extractor *extractor.Extractor

	events    atomic.Int64
	failures  atomic.Int64
	eofs      atomic.Int64
	rotations atomic.Int64
}

func New(path string, opts Options) *Follower {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	registry := threads.NewRegistry()
	return &Follower{
		Publisher: publisher.New(),
		path:      path,
		opts:      opts,
		registry:  registry,
		parser:    parser.NewXMLParser(registry, parser.WithLocation(opts.Location)),
		extractor: extractor.New(),
	}
}

func (f *Follower) Path() string {
	return f.path
}

// Registry is the thread registry fed by this follower's parser.
func (f *Follower) Registry() *threads.Registry {
	return f.registry
}

func (f *Follower) Stats() Stats {
	return Stats{
		Events:    f.events.Load(),
		Failures:  f.failures.Load(),
		EOFs:      f.eofs.Load(),
		Rotations: f.rotations.Load(),
	}
}

// position is the loop's working state. It lives only for one Run call.
type position struct {
	file   *os.File
	offset int64
	// size is the offset at the last end of file.
	size  int64
	chunk []byte
	slop  []byte
}

func (p *position) close() {
	if p.file == nil {
		return
	}
	if err := p.file.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close log file")
	}
	p.file = nil
}

type stateFn func(context.Context, *position) (stateFn, error)

// Run reads the file from the beginning until the first end of file or,
// with Follow set, until ctx is cancelled. Cancellation is not an error.
func (f *Follower) Run(ctx context.Context) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	pos := &position{file: file, chunk: make([]byte, f.opts.BufferSize)}
	defer pos.close()

	log.Info().Str("path", f.path).Bool("follow", f.opts.Follow).Msg("Following VersaLex event log")

	for state := f.reading; state != nil; {
		if ctx.Err() != nil {
			return nil
		}
		state, err = state(ctx, pos)
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *Follower) reading(ctx context.Context, pos *position) (stateFn, error) {
	n, err := pos.file.Read(pos.chunk)
	if n > 0 {
		pos.offset += int64(n)
		pos.slop = append(pos.slop, pos.chunk[:n]...)
		consumed := f.extractor.Drain(pos.slop, func(frag extractor.Fragment) bool {
			f.handle(frag)
			return ctx.Err() == nil
		})
		pos.slop = append(pos.slop[:0], pos.slop[consumed:]...)
		if ctx.Err() != nil {
			return nil, nil
		}
	}

	switch {
	case errors.Is(err, io.EOF):
		return f.atEOF, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	case n == 0:
		return f.atEOF, nil
	}
	return f.reading, nil
}

func (f *Follower) handle(frag extractor.Fragment) {
	ev, err := f.parser.Parse(frag.Text)
	if err != nil {
		f.failures.Add(1)
		log.Warn().Err(err).Str("path", f.path).Str("fragment", string(frag.Text)).Msg("Skipping unparsable log fragment")
		return
	}
	f.events.Add(1)
	f.Publish(model.EventItem(ev))
}

func (f *Follower) atEOF(_ context.Context, pos *position) (stateFn, error) {
	f.eofs.Add(1)
	f.Publish(model.MarkerItem(model.MarkerEOF))
	if !f.opts.Follow {
		return nil, nil
	}
	pos.size = pos.offset
	return f.waiting, nil
}

func (f *Follower) waiting(ctx context.Context, _ *position) (stateFn, error) {
	timer := time.NewTimer(f.opts.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, nil
	case <-timer.C:
		return f.rotationCheck, nil
	}
}

// rotationCheck compares the open handle with a fresh handle on the same
// path. Growth of the open file is checked first so a tail written just
// before an archive is not lost.
func (f *Follower) rotationCheck(_ context.Context, pos *position) (stateFn, error) {
	current, err := pos.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", f.path, err)
	}
	fresh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("reopen %s: %w", f.path, err)
	}
	reopened, err := fresh.Stat()
	if err != nil {
		fresh.Close()
		return nil, fmt.Errorf("stat %s: %w", f.path, err)
	}

	switch {
	case current.Size() > pos.size:
		fresh.Close()
		// Re-read the slop from disk along with the new bytes.
		back := pos.offset - int64(len(pos.slop))
		if _, err := pos.file.Seek(back, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek %s: %w", f.path, err)
		}
		pos.offset = back
		pos.slop = pos.slop[:0]
		return f.reading, nil

	case reopened.Size() < pos.size || !os.SameFile(current, reopened):
		f.rotations.Add(1)
		log.Info().Str("path", f.path).Int64("previous_size", pos.size).Int64("new_size", reopened.Size()).Msg("Event log rotated")
		f.Publish(model.MarkerItem(model.MarkerRotated))
		pos.close()
		pos.file = fresh
		pos.offset = 0
		pos.size = 0
		pos.slop = pos.slop[:0]
		return f.reading, nil
	}

	fresh.Close()
	return f.waiting, nil
}
