package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const (
	defaultMaxDeliveries = 5
	defaultRetention     = 24 * time.Hour
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// Channel is the broker channel every event is published on.
	Channel string
	// MaxDeliveries is the number of batches an event may fail in before it
	// is marked failed.
	MaxDeliveries   int
	CleanupInterval time.Duration
	Retention       time.Duration
}

func (c OutboxProcessorConfig) validate() error {
	switch {
	case c.BatchSize <= 0:
		return errors.New("BatchSize must be greater than 0")
	case c.PollInterval <= 0:
		return errors.New("PollInterval must be greater than 0")
	case c.RetryAttempts <= 0:
		return errors.New("RetryAttempts must be greater than 0")
	case c.RetryDelay <= 0:
		return errors.New("RetryDelay must be greater than 0")
	case c.Channel == "":
		return errors.New("Channel must not be empty")
	}
	return nil
}

// Notifier alerts staff about a new booking.
type Notifier interface {
	AppointmentBooked(ctx context.Context, apt *model.Appointment) error
}

// OutboxProcessor drains the outbox onto the broker.
type OutboxProcessor struct {
	repo     repository.OutboxRepository
	broker   messaging.Broker
	notifier Notifier
	config   OutboxProcessorConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *zap.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid outbox processor config: %w", err)
	}
	if config.MaxDeliveries <= 0 {
		config.MaxDeliveries = defaultMaxDeliveries
	}
	if config.Retention <= 0 {
		config.Retention = defaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

func (p *OutboxProcessor) WithNotifier(n Notifier) *OutboxProcessor {
	p.notifier = n
	return p
}

func (p *OutboxProcessor) WithClock(now func() time.Time) *OutboxProcessor {
	p.now = now
	return p
}

// Start polls until ctx is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	var cleanup <-chan time.Time
	if p.config.CleanupInterval > 0 {
		cleanupTicker := time.NewTicker(p.config.CleanupInterval)
		defer cleanupTicker.Stop()
		cleanup = cleanupTicker.C
	}

	p.logger.Info("Starting outbox processor",
		zap.String("channel", p.config.Channel),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error("Failed to process events", zap.Error(err))
			}
		case <-cleanup:
			if _, err := p.Cleanup(ctx); err != nil {
				p.logger.Error("Failed to clean up processed events", zap.Error(err))
			}
		}
	}
}

// ProcessBatch claims one batch of due events and publishes them. It returns
// the number of events published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	start := time.Now()
	defer p.metrics.OutboxBatch(start)

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize)
	p.metrics.Database("claim_pending_events", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to claim pending events: %w", err)
	}

	published := 0
	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error("Failed to process event",
				zap.String("event_id", event.ID.String()),
				zap.String("event_type", event.EventType),
				zap.Error(err))
			continue
		}
		published++
	}
	return published, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	envelope := messaging.Envelope{
		ID:          event.ID,
		Type:        event.EventType,
		AggregateID: event.AggregateID,
		Actor:       event.Actor,
		Payload:     event.Payload,
		OccurredAt:  event.CreatedAt,
	}

	attempt := 0
	err := retry(ctx, p.config.RetryAttempts, p.config.RetryDelay, func() error {
		if attempt > 0 {
			p.metrics.OutboxRetry(event.EventType)
		}
		attempt++
		return p.broker.Publish(ctx, p.config.Channel, envelope)
	})
	p.metrics.OutboxProcessed(err)

	if err != nil {
		p.markUndelivered(ctx, event, err)
		return err
	}

	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil, nil); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	if event.EventType == model.EventAppointmentCreated {
		p.notify(ctx, event)
	}
	return nil
}

// markUndelivered schedules another delivery with exponential backoff, or
// marks the event failed once it has used up its deliveries.
func (p *OutboxProcessor) markUndelivered(ctx context.Context, event *model.OutboxEvent, cause error) {
	errMsg := cause.Error()
	status := model.OutboxStatusRetry
	var retryAt *time.Time

	if event.RetryCount+1 >= p.config.MaxDeliveries {
		status = model.OutboxStatusFailed
	} else {
		at := p.now().Add(p.config.RetryDelay << uint(event.RetryCount))
		retryAt = &at
	}

	if err := p.repo.UpdateStatus(ctx, event.ID, status, &errMsg, retryAt); err != nil {
		p.logger.Error("Failed to update event status",
			zap.String("event_id", event.ID.String()),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (p *OutboxProcessor) notify(ctx context.Context, event *model.OutboxEvent) {
	if p.notifier == nil {
		return
	}

	var apt model.Appointment
	if err := json.Unmarshal(event.Payload, &apt); err != nil {
		p.logger.Warn("Skipping notification for unreadable payload",
			zap.String("event_id", event.ID.String()),
			zap.Error(err))
		return
	}

	err := p.notifier.AppointmentBooked(ctx, &apt)
	p.metrics.Notification(err)
	if err != nil {
		p.logger.Error("Failed to notify staff",
			zap.String("event_id", event.ID.String()),
			zap.String("appointment_id", apt.ID.String()),
			zap.Error(err))
	}
}

// Cleanup deletes events processed longer ago than the retention period.
func (p *OutboxProcessor) Cleanup(ctx context.Context) (int64, error) {
	deleted, err := p.repo.DeleteProcessedBefore(ctx, p.now().Add(-p.config.Retention))
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}
	if deleted > 0 {
		p.logger.Info("Processed outbox events cleaned up", zap.Int64("deleted_count", deleted))
	}
	return deleted, nil
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
