package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateSlot = errors.New("slot already booked")
)

// All repository interfaces in one file
type (
	// AppointmentRepository is the appointment store contract.
	AppointmentRepository interface {
		// InsertIfAbsent stores apt unless another appointment holds the same
		// (name, date, time). It reports false without error when the slot is taken.
		InsertIfAbsent(ctx context.Context, apt *model.Appointment) (bool, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// Update merges patch into the stored record and returns the result.
		Update(ctx context.Context, id uuid.UUID, patch *model.AppointmentPatch) (*model.Appointment, error)
		Delete(ctx context.Context, id uuid.UUID) error
		Count(ctx context.Context, filters *model.AppointmentFilters) (int, error)
		SlotExists(ctx context.Context, slot model.Slot) (bool, error)
		Ping(ctx context.Context) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending marks up to limit due events as processing and returns them.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
