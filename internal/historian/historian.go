// internal/historian/historian.go pops session event records off the Redis
// queue and persists them in batches.
package historian

import (
	"context"
	"errors"
	"time"

	"github.com/jason-s-yu/bang/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Store persists a batch of records atomically.
type Store interface {
	InsertSessionEvents(ctx context.Context, recs []cache.SessionEventRecord) error
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Queue         string
	BatchSize     int
	FlushInterval time.Duration
	// PollTimeout bounds each BLPOP so cancellation is noticed.
	PollTimeout time.Duration
}

// Service drains the queue into a Store. Run owns all batch state, so the
// service needs no locking.
type Service struct {
	rdb   *redis.Client
	store Store
	opts  Options
	log   logrus.FieldLogger

	batch   []cache.SessionEventRecord
	flushed int
}

// NewService returns a Service reading from rdb and writing to store.
func NewService(rdb *redis.Client, store Store, opts Options, logger logrus.FieldLogger) *Service {
	if opts.Queue == "" {
		opts.Queue = cache.DefaultQueueName
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 500 * time.Millisecond
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = time.Second
	}
	return &Service{
		rdb:   rdb,
		store: store,
		opts:  opts,
		log:   logger,
		batch: make([]cache.SessionEventRecord, 0, opts.BatchSize),
	}
}

// Flushed reports how many records have been handed to the store successfully.
// Only meaningful once Run has returned.
func (s *Service) Flushed() int {
	return s.flushed
}

// Run pops records until ctx is done, flushing whenever the batch fills or the
// flush interval passes. The batch never grows past BatchSize; while the store
// rejects a full batch, records stay on the queue. Whatever is pending is
// flushed before it returns.
func (s *Service) Run(ctx context.Context) error {
	s.log.Infof("Historian reading from %q.", s.opts.Queue)
	lastFlush := time.Now()

	for {
		if ctx.Err() != nil {
			s.flush(context.Background())
			s.log.Info("Historian shutting down.")
			return nil
		}

		// A full batch that failed to flush holds the queue until the store recovers.
		if len(s.batch) >= s.opts.BatchSize {
			if !s.flush(ctx) {
				sleep(ctx, s.opts.FlushInterval)
				continue
			}
			lastFlush = time.Now()
		}

		rec, ok, err := cache.Pop(ctx, s.rdb, s.opts.Queue, s.opts.PollTimeout)
		switch {
		case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
			continue
		case err != nil:
			s.log.WithError(err).Error("BLPop failed.")
			sleep(ctx, s.opts.PollTimeout)
		case ok:
			s.batch = append(s.batch, rec)
		}

		if len(s.batch) >= s.opts.BatchSize || time.Since(lastFlush) >= s.opts.FlushInterval {
			s.flush(ctx)
			lastFlush = time.Now()
		}
	}
}

// flush writes the pending batch and reports whether it is now empty. On
// failure the batch is kept for the next attempt.
func (s *Service) flush(ctx context.Context) bool {
	if len(s.batch) == 0 {
		return true
	}
	if err := s.store.InsertSessionEvents(ctx, s.batch); err != nil {
		s.log.WithError(err).Errorf("Failed to flush %d session events.", len(s.batch))
		return false
	}
	s.log.Debugf("Flushed %d session events.", len(s.batch))
	s.flushed += len(s.batch)
	s.batch = s.batch[:0]
	return true
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
