package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// patchFunc adds kind-specific fields to a transition patch. It runs after
// the transition has been checked against the lifecycle table.
type patchFunc func(ctx context.Context, current *model.Appointment, patch *model.AppointmentPatch) error

func (s *Service) Accept(ctx context.Context, id uuid.UUID, actor string) (*model.Appointment, error) {
	return s.transition(ctx, id, model.TransitionAccept, model.AppointmentStatusApproved,
		model.EventAppointmentApproved, actor, nil)
}

// Reject stores reason, or a default when it is blank.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason, actor string) (*model.Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}
	return s.transition(ctx, id, model.TransitionReject, model.AppointmentStatusRejected,
		model.EventAppointmentRejected, actor,
		func(_ context.Context, _ *model.Appointment, patch *model.AppointmentPatch) error {
			patch.RejectionReason = &reason
			return nil
		})
}

func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleRequest, actor string) (*model.Appointment, error) {
	req.NewDate = strings.TrimSpace(req.NewDate)
	req.NewTime = strings.TrimSpace(req.NewTime)
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	return s.transition(ctx, id, model.TransitionReschedule, model.AppointmentStatusRescheduled,
		model.EventAppointmentRescheduled, actor,
		func(_ context.Context, _ *model.Appointment, patch *model.AppointmentPatch) error {
			patch.Date = &req.NewDate
			patch.Time = &req.NewTime
			patch.RescheduleReason = &req.Reason
			return nil
		})
}

// Start marks the patient as being seen.
func (s *Service) Start(ctx context.Context, id uuid.UUID, actor string) (*model.Appointment, error) {
	return s.transition(ctx, id, model.TransitionStart, model.AppointmentStatusInProgress,
		model.EventAppointmentStarted, actor, nil)
}

// Complete closes the appointment. When a follow-up is required a linked
// follow appointment is booked first; a taken slot fails the whole operation
// and a failed update of the original removes the booked follow-up again.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, req *model.CompleteRequest, actor string) (*model.Appointment, error) {
	req.DoctorNotes = strings.TrimSpace(req.DoctorNotes)
	req.FollowUpDate = strings.TrimSpace(req.FollowUpDate)
	req.FollowUpTime = strings.TrimSpace(req.FollowUpTime)
	req.FollowUpReason = strings.TrimSpace(req.FollowUpReason)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var followUp *model.Appointment
	updated, err := s.transition(ctx, id, model.TransitionComplete, model.AppointmentStatusCompleted,
		model.EventAppointmentCompleted, actor,
		func(ctx context.Context, current *model.Appointment, patch *model.AppointmentPatch) error {
			patch.DoctorNotes = &req.DoctorNotes
			if !req.RequiresFollowUp {
				return nil
			}

			apt, err := s.bookFollowUp(ctx, current, req)
			if err != nil {
				return err
			}
			followUp = apt
			patch.FollowUpID = &apt.ID
			return nil
		})
	if err != nil {
		if followUp != nil {
			s.discardFollowUp(ctx, followUp)
		}
		return nil, err
	}

	if followUp != nil {
		s.metrics.AppointmentCreated(string(followUp.Type))
		s.notify(ctx, model.EventAppointmentCreated, s.actor(actor), followUp)
	}
	return updated, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor string) (*model.Appointment, error) {
	return s.transition(ctx, id, model.TransitionCancel, model.AppointmentStatusCancelled,
		model.EventAppointmentCancelled, actor, nil)
}

// UpdateNotes replaces the doctor's notes without touching the status.
func (s *Service) UpdateNotes(ctx context.Context, id uuid.UUID, notes, actor string) (result *model.Appointment, err error) {
	defer func() { s.metrics.Transition(string(model.TransitionUpdateNotes), err) }()

	notes = strings.TrimSpace(notes)
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, s.storeError("get appointment", err, nil)
	}

	updated, err := s.repo.Update(ctx, id, &model.AppointmentPatch{
		DoctorNotes: &notes,
		UpdatedAt:   s.now(),
	})
	if err != nil {
		return nil, s.storeError("update notes", err, nil)
	}

	s.notify(ctx, model.EventAppointmentNotesUpdated, s.actor(actor), updated)
	return updated, nil
}

// Transition dispatches a generic transition request by kind.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, req *model.TransitionRequest, actor string) (*model.Appointment, error) {
	switch req.Kind {
	case model.TransitionAccept:
		return s.Accept(ctx, id, actor)
	case model.TransitionReject:
		return s.Reject(ctx, id, req.Reason, actor)
	case model.TransitionReschedule:
		return s.Reschedule(ctx, id, &model.RescheduleRequest{
			NewDate: req.NewDate,
			NewTime: req.NewTime,
			Reason:  req.Reason,
		}, actor)
	case model.TransitionStart:
		return s.Start(ctx, id, actor)
	case model.TransitionComplete:
		return s.Complete(ctx, id, &model.CompleteRequest{
			DoctorNotes:      req.DoctorNotes,
			RequiresFollowUp: req.RequiresFollowUp,
			FollowUpDate:     req.FollowUpDate,
			FollowUpTime:     req.FollowUpTime,
			FollowUpReason:   req.FollowUpReason,
		}, actor)
	case model.TransitionCancel:
		return s.Cancel(ctx, id, actor)
	case model.TransitionUpdateNotes:
		return s.UpdateNotes(ctx, id, req.DoctorNotes, actor)
	default:
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown transition %q", req.Kind),
			map[string]string{"kind": "unknown transition"})
	}
}

func (s *Service) transition(
	ctx context.Context,
	id uuid.UUID,
	kind model.TransitionKind,
	target model.AppointmentStatus,
	eventType string,
	actor string,
	build patchFunc,
) (result *model.Appointment, err error) {
	defer func() { s.metrics.Transition(string(kind), err) }()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.storeError("get appointment", err, nil)
	}

	if s.config.StrictTransitions && !current.Status.CanTransitionTo(target) {
		return nil, apperrors.NewInvalidTransition(string(current.Status.Normalize()), string(target))
	}

	actor = s.actor(actor)
	now := s.now()
	patch := &model.AppointmentPatch{
		Status:    &target,
		UpdatedAt: now,
	}
	if target.IsTerminal() {
		patch.ResolvedAt = &now
		patch.ResolvedBy = &actor
	}

	if build != nil {
		if err := build(ctx, current, patch); err != nil {
			return nil, err
		}
	}

	resulting := *current
	patch.Apply(&resulting)

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, s.storeError(fmt.Sprintf("%s appointment", kind), err, &resulting)
	}

	s.logger.Debug("Appointment transitioned",
		"appointment_id", id.String(),
		"from", string(current.Status.Normalize()),
		"to", string(target),
		"actor", actor)

	s.notify(ctx, eventType, actor, updated)
	return updated, nil
}

func (s *Service) bookFollowUp(ctx context.Context, current *model.Appointment, req *model.CompleteRequest) (*model.Appointment, error) {
	followUpTime := req.FollowUpTime
	if followUpTime == "" {
		followUpTime = current.Time
	}

	now := s.now()
	originalID := current.ID
	apt := &model.Appointment{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		PatientID:  current.PatientID,
		Name:       current.Name,
		Phone:      current.Phone,
		Date:       req.FollowUpDate,
		Time:       followUpTime,
		Type:       model.AppointmentTypeFollowUp,
		Status:     model.AppointmentStatusPending,
		Notes:      req.FollowUpReason,
		FollowUpOf: &originalID,
	}

	inserted, err := s.repo.InsertIfAbsent(ctx, apt)
	if err != nil {
		return nil, apperrors.NewStore("book follow-up", fmt.Errorf("failed to book follow-up: %w", err))
	}
	if !inserted {
		return nil, apperrors.NewDuplicateSlot(apt.Name, apt.Date, apt.Time)
	}
	return apt, nil
}

func (s *Service) discardFollowUp(ctx context.Context, apt *model.Appointment) {
	if err := s.repo.Delete(context.WithoutCancel(ctx), apt.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error(err, "Failed to discard follow-up",
			"appointment_id", apt.ID.String(),
			"follow_up_of", apt.FollowUpOf.String())
	}
}
