package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusRetry      OutboxStatus = "RETRY"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusProcessed  OutboxStatus = "PROCESSED"
	OutboxStatusFailed     OutboxStatus = "FAILED"
)

// Appointment event types written to the outbox.
const (
	EventAppointmentCreated      = "appointment.created"
	EventAppointmentUpdated      = "appointment.updated"
	EventAppointmentApproved     = "appointment.approved"
	EventAppointmentRejected     = "appointment.rejected"
	EventAppointmentRescheduled  = "appointment.rescheduled"
	EventAppointmentStarted      = "appointment.started"
	EventAppointmentCompleted    = "appointment.completed"
	EventAppointmentCancelled    = "appointment.cancelled"
	EventAppointmentNotesUpdated = "appointment.notes_updated"
	EventAppointmentDeleted      = "appointment.deleted"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	AggregateID  uuid.UUID       `db:"aggregate_id" json:"aggregate_id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Actor        string          `db:"actor" json:"actor,omitempty"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
