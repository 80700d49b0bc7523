package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "pending"
	AppointmentStatusApproved    AppointmentStatus = "approved"
	AppointmentStatusRejected    AppointmentStatus = "rejected"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
	AppointmentStatusInProgress  AppointmentStatus = "in-progress"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
)

// StatusAll disables status filtering in list queries.
const StatusAll = "all"

// Normalize treats a missing status as pending.
func (s AppointmentStatus) Normalize() AppointmentStatus {
	if s == "" {
		return AppointmentStatusPending
	}
	return s
}

// IsTerminal reports whether no further transitions leave s.
func (s AppointmentStatus) IsTerminal() bool {
	switch s.Normalize() {
	case AppointmentStatusCompleted, AppointmentStatusRejected, AppointmentStatusCancelled:
		return true
	}
	return false
}

func (s AppointmentStatus) Valid() bool {
	switch s.Normalize() {
	case AppointmentStatusPending, AppointmentStatusApproved, AppointmentStatusRejected,
		AppointmentStatusRescheduled, AppointmentStatusInProgress,
		AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending: {
		AppointmentStatusApproved,
		AppointmentStatusRejected,
		AppointmentStatusRescheduled,
		AppointmentStatusInProgress,
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
	},
	AppointmentStatusApproved: {
		AppointmentStatusRescheduled,
		AppointmentStatusInProgress,
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
	},
	AppointmentStatusRescheduled: {
		AppointmentStatusApproved,
		AppointmentStatusRejected,
		AppointmentStatusRescheduled,
		AppointmentStatusInProgress,
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
	},
	AppointmentStatusInProgress: {
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
	},
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range allowedTransitions[s.Normalize()] {
		if allowed == next {
			return true
		}
	}
	return false
}

type AppointmentType string

const (
	AppointmentTypeRegular  AppointmentType = "regular"
	AppointmentTypeUrgent   AppointmentType = "urgent"
	AppointmentTypeFollowUp AppointmentType = "follow"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case AppointmentTypeRegular, AppointmentTypeUrgent, AppointmentTypeFollowUp:
		return true
	}
	return false
}

type Appointment struct {
	Base
	PatientID        *uuid.UUID        `db:"patient_id" json:"patient_id,omitempty"`
	Name             string            `db:"name" json:"name"`
	Phone            string            `db:"phone" json:"phone"`
	Date             string            `db:"date" json:"date"`
	Time             string            `db:"time" json:"time"`
	Type             AppointmentType   `db:"type" json:"type"`
	Status           AppointmentStatus `db:"status" json:"status"`
	Notes            string            `db:"notes" json:"notes,omitempty"`
	DoctorNotes      string            `db:"doctor_notes" json:"doctor_notes,omitempty"`
	ResolvedAt       *time.Time        `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy       string            `db:"resolved_by" json:"resolved_by,omitempty"`
	RescheduleReason string            `db:"reschedule_reason" json:"reschedule_reason,omitempty"`
	RejectionReason  string            `db:"rejection_reason" json:"rejection_reason,omitempty"`
	FollowUpOf       *uuid.UUID        `db:"follow_up_of" json:"follow_up_of,omitempty"`
	FollowUpID       *uuid.UUID        `db:"follow_up_id" json:"follow_up_id,omitempty"`
}

// Slot identifies the (name, date, time) triple that must be unique.
type Slot struct {
	Name string
	Date string
	Time string
}

func (a *Appointment) Slot() Slot {
	return Slot{Name: a.Name, Date: a.Date, Time: a.Time}
}

type CreateAppointmentRequest struct {
	PatientID *uuid.UUID      `json:"patient_id"`
	Name      string          `json:"name" validate:"required"`
	Phone     string          `json:"phone" validate:"required"`
	Date      string          `json:"date" validate:"required"`
	Time      string          `json:"time" validate:"required"`
	Type      AppointmentType `json:"type" validate:"required,oneof=regular urgent follow"`
	Notes     string          `json:"notes" validate:"max=2000"`
}

// UpdateAppointmentRequest carries a merge update; nil fields are left untouched.
type UpdateAppointmentRequest struct {
	PatientID *uuid.UUID       `json:"patient_id"`
	Name      *string          `json:"name"`
	Phone     *string          `json:"phone"`
	Date      *string          `json:"date"`
	Time      *string          `json:"time"`
	Type      *AppointmentType `json:"type"`
	Notes     *string          `json:"notes"`
}

// AppointmentPatch is the store-level merge update.
type AppointmentPatch struct {
	PatientID        *uuid.UUID
	Name             *string
	Phone            *string
	Date             *string
	Time             *string
	Type             *AppointmentType
	Status           *AppointmentStatus
	Notes            *string
	DoctorNotes      *string
	ResolvedAt       *time.Time
	ResolvedBy       *string
	RescheduleReason *string
	RejectionReason  *string
	FollowUpID       *uuid.UUID
	UpdatedAt        time.Time
}

// Apply merges the non-nil patch fields into a.
func (p *AppointmentPatch) Apply(a *Appointment) {
	if p.PatientID != nil {
		id := *p.PatientID
		a.PatientID = &id
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
	}
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.Time != nil {
		a.Time = *p.Time
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	if p.DoctorNotes != nil {
		a.DoctorNotes = *p.DoctorNotes
	}
	if p.ResolvedAt != nil {
		t := *p.ResolvedAt
		a.ResolvedAt = &t
	}
	if p.ResolvedBy != nil {
		a.ResolvedBy = *p.ResolvedBy
	}
	if p.RescheduleReason != nil {
		a.RescheduleReason = *p.RescheduleReason
	}
	if p.RejectionReason != nil {
		a.RejectionReason = *p.RejectionReason
	}
	if p.FollowUpID != nil {
		id := *p.FollowUpID
		a.FollowUpID = &id
	}
	if !p.UpdatedAt.IsZero() {
		a.UpdatedAt = p.UpdatedAt
	}
}

type SortOrder string

const (
	SortByDate     SortOrder = "date"
	SortByDateDesc SortOrder = "date-desc"
	SortByName     SortOrder = "name"
	SortByCreated  SortOrder = "created"
)

// ParseSortOrder falls back to date ordering for unknown values.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortByDateDesc, SortByName, SortByCreated:
		return SortOrder(s)
	}
	return SortByDate
}

type AppointmentFilters struct {
	Status        string
	Search        string
	Sort          SortOrder
	Date          string
	DateFrom      string
	ExcludeStatus []AppointmentStatus
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
}

// MatchesStatus applies the status filter semantics: "all" or empty matches
// everything and "pending" also matches records without a status.
func (f *AppointmentFilters) MatchesStatus(s AppointmentStatus) bool {
	if f.Status == "" || f.Status == StatusAll {
		return true
	}
	return s.Normalize() == AppointmentStatus(f.Status)
}

// Transition kinds accepted by the lifecycle dispatcher.
type TransitionKind string

const (
	TransitionAccept      TransitionKind = "accept"
	TransitionReject      TransitionKind = "reject"
	TransitionReschedule  TransitionKind = "reschedule"
	TransitionStart       TransitionKind = "start"
	TransitionComplete    TransitionKind = "complete"
	TransitionCancel      TransitionKind = "cancel"
	TransitionUpdateNotes TransitionKind = "updateNotes"
)

type RejectRequest struct {
	Reason string `json:"reason"`
}

type RescheduleRequest struct {
	NewDate string `json:"new_date" validate:"required"`
	NewTime string `json:"new_time" validate:"required"`
	Reason  string `json:"reschedule_reason"`
}

type CompleteRequest struct {
	DoctorNotes      string `json:"doctor_notes"`
	RequiresFollowUp bool   `json:"requires_follow_up"`
	FollowUpDate     string `json:"follow_up_date" validate:"required_if=RequiresFollowUp true"`
	FollowUpTime     string `json:"follow_up_time"`
	FollowUpReason   string `json:"follow_up_reason"`
}

type NotesRequest struct {
	DoctorNotes string `json:"doctor_notes"`
}

// TransitionRequest is the generic transition payload; only the fields
// relevant to Kind are read.
type TransitionRequest struct {
	Kind             TransitionKind `json:"kind" validate:"required"`
	Reason           string         `json:"reason"`
	NewDate          string         `json:"new_date"`
	NewTime          string         `json:"new_time"`
	DoctorNotes      string         `json:"doctor_notes"`
	RequiresFollowUp bool           `json:"requires_follow_up"`
	FollowUpDate     string         `json:"follow_up_date"`
	FollowUpTime     string         `json:"follow_up_time"`
	FollowUpReason   string         `json:"follow_up_reason"`
}

// AppointmentChange describes a successful write, delivered to lifecycle observers.
type AppointmentChange struct {
	EventType   string
	Actor       string
	Appointment *Appointment
	OccurredAt  time.Time
}
