package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// EventService records appointment changes in the outbox so the worker can
// publish them.
type EventService struct {
	outboxRepo repository.OutboxRepository
	metrics    *metrics.Metrics
	logger     *logger.Logger
	now        func() time.Time
}

func NewEventService(outboxRepo repository.OutboxRepository, m *metrics.Metrics, log *logger.Logger) *EventService {
	if log == nil {
		log = logger.Nop()
	}
	return &EventService{
		outboxRepo: outboxRepo,
		metrics:    m,
		logger:     log,
		now:        time.Now,
	}
}

func (s *EventService) WithClock(now func() time.Time) *EventService {
	s.now = now
	return s
}

func (s *EventService) Emit(ctx context.Context, aggregateID uuid.UUID, eventType, actor string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := s.now()
	event := &model.OutboxEvent{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     payloadJSON,
		Actor:       actor,
		Status:      model.OutboxStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	s.metrics.OutboxWritten(eventType)
	s.logger.Debug("Outbox event recorded",
		"event_id", event.ID.String(),
		"event_type", eventType,
		"aggregate_id", aggregateID.String())
	return nil
}

// AppointmentChanged writes the change to the outbox.
func (s *EventService) AppointmentChanged(ctx context.Context, change model.AppointmentChange) error {
	if change.Appointment == nil {
		return fmt.Errorf("appointment change %s has no appointment", change.EventType)
	}
	return s.Emit(ctx, change.Appointment.ID, change.EventType, change.Actor, change.Appointment)
}
