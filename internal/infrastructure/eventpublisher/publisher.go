package eventpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
)

var (
	// ErrQueueFull is returned by Notify when the queue has no room.
	ErrQueueFull = errors.New("notification queue is full")
	// ErrStopped is returned by Notify once the dispatcher has shut down.
	ErrStopped = errors.New("notification dispatcher stopped")
)

// Notification outcomes reported to the Recorder.
const (
	OutcomeQueued    = "queued"
	OutcomeDropped   = "dropped"
	OutcomePublished = "published"
	OutcomeFailed    = "failed"
)

// Publisher defines the interface for publishing events to external systems.
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// Recorder receives delivery measurements.
type Recorder interface {
	Notified(outcome string)
	QueueDepth(n int)
}

type nopRecorder struct{}

func (nopRecorder) Notified(string) {}
func (nopRecorder) QueueDepth(int)  {}

// Config for Dispatcher.
type Config struct {
	Publisher    Publisher
	Logger       zerolog.Logger
	Recorder     Recorder
	QueueSize    int           // Events buffered before Notify drops
	Workers      int           // Concurrent publishers
	MaxRetries   uint64        // Publish retries per event
	RetryBackoff time.Duration // Initial retry interval
	DrainTimeout time.Duration // How long Run keeps publishing after cancellation
}

// Dispatcher queues committed events and publishes them in the background.
// Notify never blocks; delivery is best effort.
type Dispatcher struct {
	publisher    Publisher
	logger       zerolog.Logger
	recorder     Recorder
	queue        chan *domain.Event
	workers      int
	maxRetries   uint64
	retryBackoff time.Duration
	drainTimeout time.Duration
	stopped      atomic.Bool
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}

	return &Dispatcher{
		publisher:    cfg.Publisher,
		logger:       cfg.Logger,
		recorder:     cfg.Recorder,
		queue:        make(chan *domain.Event, cfg.QueueSize),
		workers:      cfg.Workers,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		drainTimeout: cfg.DrainTimeout,
	}
}

// Notify implements usecase.Notifier.
func (d *Dispatcher) Notify(_ context.Context, event *domain.Event) error {
	if d.stopped.Load() {
		d.recorder.Notified(OutcomeDropped)
		return ErrStopped
	}

	select {
	case d.queue <- event:
		d.recorder.Notified(OutcomeQueued)
		d.recorder.QueueDepth(len(d.queue))
		return nil
	default:
		d.recorder.Notified(OutcomeDropped)
		return ErrQueueFull
	}
}

// Run publishes queued events until ctx is cancelled, then drains what is
// left for at most the drain timeout.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info().
		Int("workers", d.workers).
		Int("queue_size", cap(d.queue)).
		Msg("notification dispatcher started")

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	wg.Wait()

	d.stopped.Store(true)
	d.drain()

	d.logger.Info().Msg("notification dispatcher stopped")
	return ctx.Err()
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.queue:
			d.recorder.QueueDepth(len(d.queue))
			d.publish(ctx, event)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), d.drainTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			if n := len(d.queue); n > 0 {
				d.logger.Warn().Int("pending", n).Msg("notifications abandoned at shutdown")
			}
			return
		case event := <-d.queue:
			d.publish(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event *domain.Event) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.retryBackoff

	policy := backoff.WithContext(backoff.WithMaxRetries(b, d.maxRetries), ctx)
	err := backoff.Retry(func() error {
		return d.publisher.Publish(ctx, event)
	}, policy)

	if err != nil {
		d.recorder.Notified(OutcomeFailed)
		d.logger.Error().
			Err(err).
			Str("event_id", event.ID).
			Str("event_type", event.EventType).
			Msg("failed to publish event")
		return
	}

	d.recorder.Notified(OutcomePublished)
	d.logger.Debug().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Msg("event published")
}

// message is the wire form of an event.
type message struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   int64          `json:"aggregate_id"`
	GroupID       int64          `json:"group_id"`
	MemberID      *int64         `json:"member_id,omitempty"`
	Payload       map[string]any `json:"payload"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

func encodeEvent(event *domain.Event) ([]byte, error) {
	return json.Marshal(message{
		ID:            event.ID,
		Type:          event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		GroupID:       event.GroupID,
		MemberID:      event.MemberID,
		Payload:       event.Payload,
		OccurredAt:    event.OccurredAt.UTC(),
	})
}

// LogPublisher is a simple publisher that logs events.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event *domain.Event) error {
	body, err := encodeEvent(event)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		RawJSON("event", body).
		Msg("event published")

	return nil
}

var _ usecase.Notifier = (*Dispatcher)(nil)
