package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const (
	DefaultRejectionReason = "No reason provided"
	DefaultUpcomingLimit   = 20
	maxNotesLength         = 2000
	dateLayout             = "2006-01-02"
)

// Observer is notified after every successful write.
type Observer interface {
	AppointmentChanged(ctx context.Context, change model.AppointmentChange) error
}

type Config struct {
	// StrictTransitions enforces the lifecycle transition table. When false
	// any status may follow any other.
	StrictTransitions bool
	// DefaultActor is recorded when a staff operation arrives without an identity.
	DefaultActor string
}

type Service struct {
	repo      repository.AppointmentRepository
	validator validator.Validator
	config    Config
	observers []Observer
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(repo repository.AppointmentRepository, config Config, m *metrics.Metrics, log *logger.Logger, observers ...Observer) *Service {
	if config.DefaultActor == "" {
		config.DefaultActor = "staff"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:      repo,
		validator: validator.New(),
		config:    config,
		observers: observers,
		metrics:   m,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AddObserver registers an observer after construction.
func (s *Service) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

func (s *Service) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.Notes = strings.TrimSpace(req.Notes)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	apt := &model.Appointment{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		PatientID: req.PatientID,
		Name:      req.Name,
		Phone:     req.Phone,
		Date:      req.Date,
		Time:      req.Time,
		Type:      req.Type,
		Status:    model.AppointmentStatusPending,
		Notes:     req.Notes,
	}

	inserted, err := s.repo.InsertIfAbsent(ctx, apt)
	if err != nil {
		return nil, apperrors.NewStore("create appointment", fmt.Errorf("failed to create appointment: %w", err))
	}
	if !inserted {
		return nil, apperrors.NewDuplicateSlot(apt.Name, apt.Date, apt.Time)
	}

	s.metrics.AppointmentCreated(string(apt.Type))
	s.notify(ctx, model.EventAppointmentCreated, "", apt)
	return apt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.storeError("get appointment", err, nil)
	}
	return apt, nil
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters == nil {
		filters = &model.AppointmentFilters{}
	}
	filters.Search = strings.TrimSpace(filters.Search)
	if filters.Status != "" && filters.Status != model.StatusAll && !model.AppointmentStatus(filters.Status).Valid() {
		return nil, apperrors.NewValidation("invalid status filter", map[string]string{"status": "unknown status"})
	}

	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, s.storeError("list appointments", err, nil)
	}
	return appointments, nil
}

// UpdateAppointment merges the provided fields into the record.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest, actor string) (*model.Appointment, error) {
	trim(req.Name)
	trim(req.Phone)
	trim(req.Date)
	trim(req.Time)
	trim(req.Notes)

	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.storeError("get appointment", err, nil)
	}

	patch := &model.AppointmentPatch{
		PatientID: req.PatientID,
		Name:      req.Name,
		Phone:     req.Phone,
		Date:      req.Date,
		Time:      req.Time,
		Type:      req.Type,
		Notes:     req.Notes,
		UpdatedAt: s.now(),
	}

	target := *current
	patch.Apply(&target)

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, s.storeError("update appointment", err, &target)
	}

	s.notify(ctx, model.EventAppointmentUpdated, s.actor(actor), updated)
	return updated, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID, actor string) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return s.storeError("get appointment", err, nil)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.storeError("delete appointment", err, nil)
	}

	s.notify(ctx, model.EventAppointmentDeleted, s.actor(actor), current)
	return nil
}

// TodaySchedule lists today's appointments ordered by time.
func (s *Service) TodaySchedule(ctx context.Context) ([]*model.Appointment, error) {
	return s.ListAppointments(ctx, &model.AppointmentFilters{
		Date: s.now().Format(dateLayout),
		Sort: model.SortByDate,
	})
}

// UpcomingSchedule lists non-cancelled appointments from today onwards.
func (s *Service) UpcomingSchedule(ctx context.Context, limit int) ([]*model.Appointment, error) {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	return s.ListAppointments(ctx, &model.AppointmentFilters{
		DateFrom:      s.now().Format(dateLayout),
		ExcludeStatus: []model.AppointmentStatus{model.AppointmentStatusCancelled},
		Sort:          model.SortByDate,
		Limit:         limit,
	})
}

func (s *Service) actor(actor string) string {
	if actor = strings.TrimSpace(actor); actor != "" {
		return actor
	}
	return s.config.DefaultActor
}

func (s *Service) notify(ctx context.Context, eventType, actor string, apt *model.Appointment) {
	change := model.AppointmentChange{
		EventType:   eventType,
		Actor:       actor,
		Appointment: apt,
		OccurredAt:  s.now(),
	}
	for _, o := range s.observers {
		if err := o.AppointmentChanged(ctx, change); err != nil {
			s.logger.Error(err, "Failed to notify appointment observer",
				"event_type", eventType,
				"appointment_id", apt.ID.String())
		}
	}
}

// storeError converts repository failures into application errors. target
// is the record the write would have produced, used for duplicate reporting.
func (s *Service) storeError(op string, err error, target *model.Appointment) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("appointment", err)
	case errors.Is(err, repository.ErrDuplicateSlot) && target != nil:
		return apperrors.NewDuplicateSlot(target.Name, target.Date, target.Time)
	default:
		return apperrors.NewStore(op, fmt.Errorf("failed to %s: %w", op, err))
	}
}

// validateUpdate rejects provided fields that are blank after trimming.
func validateUpdate(req *model.UpdateAppointmentRequest) error {
	fields := make(map[string]string)
	for name, value := range map[string]*string{
		"name":  req.Name,
		"phone": req.Phone,
		"date":  req.Date,
		"time":  req.Time,
	} {
		if value != nil && *value == "" {
			fields[name] = "must not be empty"
		}
	}
	if req.Type != nil && !req.Type.Valid() {
		fields["type"] = "must be one of: regular urgent follow"
	}
	if req.Notes != nil && len(*req.Notes) > maxNotesLength {
		fields["notes"] = fmt.Sprintf("must be at most %d", maxNotesLength)
	}
	if len(fields) > 0 {
		return apperrors.NewValidation("invalid appointment update", fields)
	}
	return nil
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
