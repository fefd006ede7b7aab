package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/kafka"
)

// Publisher writes a batch of events. *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// KafkaSink buffers records and publishes them in batches, when the batch is
// full or on every flush interval. Failed batches are re-queued up to three
// batches' worth of records; older overflow is dropped.
type KafkaSink struct {
	publisher     Publisher
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	buffer  []kafka.Event
	started bool

	kick     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewKafkaSink(p Publisher, batchSize int, flushInterval time.Duration) *KafkaSink {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &KafkaSink{
		publisher:     p,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "audit-kafka"),
		buffer:        make([]kafka.Event, 0, batchSize),
		kick:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

func (s *KafkaSink) Name() string { return "kafka" }

// Start launches the background flush loop. It returns immediately.
func (s *KafkaSink) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.flushLogged(ctx)
			case <-s.kick:
				s.flushLogged(ctx)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()
	s.logger.Info("kafka audit sink started",
		"batch_size", s.batchSize,
		"flush_interval", s.flushInterval,
	)
}

func (s *KafkaSink) Accept(_ context.Context, rec CallRecord) error {
	s.mu.Lock()
	s.buffer = append(s.buffer, kafka.Event{Key: rec.Method, Value: rec})
	full := len(s.buffer) >= s.batchSize
	s.mu.Unlock()

	if full {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// Buffered returns the number of records awaiting publication.
func (s *KafkaSink) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// Flush publishes everything buffered.
func (s *KafkaSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return nil
	}
	batch := s.buffer
	s.buffer = make([]kafka.Event, 0, s.batchSize)
	s.mu.Unlock()

	if err := s.publisher.PublishBatch(ctx, batch); err != nil {
		s.requeue(batch)
		return fmt.Errorf("flushing %d audit records: %w", len(batch), err)
	}
	s.logger.Debug("audit batch flushed", "records", len(batch))
	return nil
}

func (s *KafkaSink) requeue(batch []kafka.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = append(batch, s.buffer...)
	if limit := s.batchSize * 3; len(s.buffer) > limit {
		dropped := len(s.buffer) - limit
		s.buffer = s.buffer[dropped:]
		s.logger.Warn("audit buffer overflow, records dropped", "dropped", dropped)
	}
}

func (s *KafkaSink) flushLogged(ctx context.Context) {
	if err := s.Flush(ctx); err != nil {
		s.logger.Error("audit batch flush failed", "error", err)
	}
}

// Close stops the flush loop and makes a final flush bounded by five seconds.
func (s *KafkaSink) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Flush(ctx)
	if n := s.Buffered(); n > 0 {
		err = errors.Join(err, fmt.Errorf("%d audit records not delivered", n))
	}
	return err
}
