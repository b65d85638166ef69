package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"versalex-ingest/config"
	"versalex-ingest/internal/adapter"
	"versalex-ingest/internal/archive"
	"versalex-ingest/internal/follower"
	"versalex-ingest/internal/kafka"
	"versalex-ingest/internal/locator"
	"versalex-ingest/internal/model"
	"versalex-ingest/internal/publisher"
	"versalex-ingest/internal/threads"

	"github.com/rs/zerolog/log"
)

var ErrNoLogFile = errors.New("no VersaLex event log configured or found")

// Sink receives every batch the shipper flushes.
type Sink interface {
	Send(ctx context.Context, records []model.Record) error
}

type SinkFunc func(ctx context.Context, records []model.Record) error

func (f SinkFunc) Send(ctx context.Context, records []model.Record) error {
	return f(ctx, records)
}

// NewSinks collects the configured destinations. archiver may be nil.
func NewSinks(producer kafka.EventProducer, archiver archive.Archiver) []Sink {
	sinks := []Sink{SinkFunc(producer.Produce)}
	if archiver != nil {
		sinks = append(sinks, SinkFunc(archiver.Put))
	}
	return sinks
}

type ShipperStatus struct {
	Path     string           `json:"path"`
	Host     string           `json:"host"`
	Running  bool             `json:"running"`
	Follower follower.Stats   `json:"follower"`
	Shipped  int64            `json:"shipped"`
	Dropped  int64            `json:"dropped"`
	Watchers int              `json:"watchers"`
	Threads  []threads.Thread `json:"threads"`
}

type ShipperService interface {
	Run(ctx context.Context, wg *sync.WaitGroup)
	Status() ShipperStatus
	// Watch streams every shipped record until cancel is called. Records are
	// dropped for a watcher whose buffer is full.
	Watch(buffer int) (records <-chan model.Record, cancel func())
}

type shipperService struct {
	cfg   *config.VersaLexConfig
	batch int
	sinks []Sink
	host  string

	mu       sync.RWMutex
	follower *follower.Follower

	pending []model.Record
	shipped atomic.Int64
	dropped atomic.Int64

	watchMu  sync.Mutex
	watchers map[uint64]chan model.Record
	nextID   uint64
}

func NewShipperService(cfg *config.Config, sinks []Sink) ShipperService {
	host, err := os.Hostname()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read hostname, using localhost")
		host = "localhost"
	}
	batch := cfg.Shipper.BatchSize
	if batch <= 0 {
		batch = 1
	}
	return &shipperService{
		cfg:      &cfg.VersaLex,
		batch:    batch,
		sinks:    sinks,
		host:     host,
		watchers: make(map[uint64]chan model.Record),
	}
}

func (s *shipperService) resolvePath() (string, error) {
	if s.cfg.LogFile != "" {
		return s.cfg.LogFile, nil
	}
	path, ok := locator.DefaultLog(s.cfg.InitDir, s.cfg.Service)
	if !ok {
		return "", fmt.Errorf("%w: service %s", ErrNoLogFile, s.cfg.Service)
	}
	return path, nil
}

func (s *shipperService) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	log.Info().Msg("Starting VersaLex shipper")
	if err := s.run(ctx); err != nil {
		log.Error().Err(err).Msg("VersaLex shipper stopped")
		return
	}
	log.Info().Msg("VersaLex shipper stopped")
}

func (s *shipperService) run(ctx context.Context) error {
	path, err := s.resolvePath()
	if err != nil {
		return err
	}

	f := follower.New(path, follower.Options{
		Follow:     s.cfg.Follow,
		BufferSize: s.cfg.BufferSize,
		Interval:   s.cfg.Interval,
	})
	s.mu.Lock()
	s.follower = f
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.follower = nil
		s.mu.Unlock()
	}()

	collect := func(e model.Event) error {
		s.add(ctx, adapter.ToRecord(e, s.host, path))
		return nil
	}
	var forward publisher.Handler
	if s.cfg.Rewind {
		forward = adapter.Skip(0, collect)
	} else {
		forward = adapter.Tail(collect)
	}

	f.Subscribe(func(it model.Item) error {
		if err := forward(it); err != nil {
			return err
		}
		if it.Marker == model.MarkerEOF {
			s.flush(ctx)
		}
		return nil
	})

	err = f.Run(ctx)
	s.flush(context.WithoutCancel(ctx))
	return err
}

func (s *shipperService) add(ctx context.Context, r model.Record) {
	s.pending = append(s.pending, r)
	s.broadcast(r)
	if len(s.pending) >= s.batch {
		s.flush(ctx)
	}
}

// flush sends the pending batch to every sink. A batch a sink rejects is
// counted as dropped for that sink; the other sinks still receive it.
func (s *shipperService) flush(ctx context.Context) {
	if len(s.pending) == 0 {
		return
	}
	batch := s.pending
	s.pending = nil

	failed := false
	for i, sink := range s.sinks {
		if err := sink.Send(ctx, batch); err != nil {
			failed = true
			log.Error().Err(err).Int("sink", i).Int("batch_size", len(batch)).Msg("Failed to ship batch")
		}
	}
	if failed {
		s.dropped.Add(int64(len(batch)))
		return
	}
	s.shipped.Add(int64(len(batch)))
	log.Debug().Int("batch_size", len(batch)).Msg("Shipped batch")
}

func (s *shipperService) broadcast(r model.Record) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- r:
		default:
		}
	}
}

func (s *shipperService) Watch(buffer int) (<-chan model.Record, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan model.Record, buffer)

	s.watchMu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.watchMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.watchMu.Lock()
			delete(s.watchers, id)
			s.watchMu.Unlock()
			close(ch)
		})
	}
}

func (s *shipperService) Status() ShipperStatus {
	s.watchMu.Lock()
	watchers := len(s.watchers)
	s.watchMu.Unlock()

	status := ShipperStatus{
		Host:     s.host,
		Shipped:  s.shipped.Load(),
		Dropped:  s.dropped.Load(),
		Watchers: watchers,
		Threads:  []threads.Thread{},
	}

	s.mu.RLock()
	f := s.follower
	s.mu.RUnlock()
	if f == nil {
		return status
	}
	status.Path = f.Path()
	status.Running = true
	status.Follower = f.Stats()
	status.Threads = f.Registry().Snapshot()
	return status
}
