package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStatusNormalize(t *testing.T) {
	assert.Equal(t, AppointmentStatusPending, AppointmentStatus("").Normalize())
	assert.Equal(t, AppointmentStatusApproved, AppointmentStatusApproved.Normalize())
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []AppointmentStatus{AppointmentStatusCompleted, AppointmentStatusRejected, AppointmentStatusCancelled} {
		assert.True(t, s.IsTerminal(), s)
		for _, next := range []AppointmentStatus{AppointmentStatusPending, AppointmentStatusApproved, AppointmentStatusCompleted} {
			assert.False(t, s.CanTransitionTo(next), "%s -> %s", s, next)
		}
	}
	assert.False(t, AppointmentStatus("").IsTerminal())
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to AppointmentStatus
		want     bool
	}{
		{"", AppointmentStatusApproved, true},
		{AppointmentStatusPending, AppointmentStatusRejected, true},
		{AppointmentStatusApproved, AppointmentStatusRejected, false},
		{AppointmentStatusApproved, AppointmentStatusInProgress, true},
		{AppointmentStatusRescheduled, AppointmentStatusRescheduled, true},
		{AppointmentStatusRescheduled, AppointmentStatusApproved, true},
		{AppointmentStatusInProgress, AppointmentStatusCompleted, true},
		{AppointmentStatusInProgress, AppointmentStatusApproved, false},
		{AppointmentStatusInProgress, AppointmentStatusRescheduled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%q -> %q", tt.from, tt.to)
	}
}

func TestStatusAndTypeValid(t *testing.T) {
	assert.True(t, AppointmentStatus("").Valid())
	assert.True(t, AppointmentStatusInProgress.Valid())
	assert.False(t, AppointmentStatus("no-show").Valid())

	assert.True(t, AppointmentTypeFollowUp.Valid())
	assert.False(t, AppointmentType("follow-up").Valid())
	assert.False(t, AppointmentType("").Valid())
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortByDate, ParseSortOrder(""))
	assert.Equal(t, SortByDate, ParseSortOrder("random"))
	assert.Equal(t, SortByName, ParseSortOrder("name"))
	assert.Equal(t, SortByDateDesc, ParseSortOrder("date-desc"))
	assert.Equal(t, SortByCreated, ParseSortOrder("created"))
}

func TestMatchesStatus(t *testing.T) {
	all := &AppointmentFilters{Status: StatusAll}
	assert.True(t, all.MatchesStatus(AppointmentStatusCancelled))

	none := &AppointmentFilters{}
	assert.True(t, none.MatchesStatus(""))

	pending := &AppointmentFilters{Status: string(AppointmentStatusPending)}
	assert.True(t, pending.MatchesStatus(""))
	assert.True(t, pending.MatchesStatus(AppointmentStatusPending))
	assert.False(t, pending.MatchesStatus(AppointmentStatusApproved))
}

func TestPatchApply(t *testing.T) {
	followUp := uuid.New()
	apt := &Appointment{Name: "Alice", Phone: "555", Notes: "keep"}
	name := "Alice Smith"
	status := AppointmentStatusApproved
	resolvedBy := "Dr. Adams"
	updated := time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC)

	patch := &AppointmentPatch{
		Name:       &name,
		Status:     &status,
		ResolvedBy: &resolvedBy,
		FollowUpID: &followUp,
		UpdatedAt:  updated,
	}
	patch.Apply(apt)

	assert.Equal(t, "Alice Smith", apt.Name)
	assert.Equal(t, "555", apt.Phone)
	assert.Equal(t, "keep", apt.Notes)
	assert.Equal(t, AppointmentStatusApproved, apt.Status)
	assert.Equal(t, "Dr. Adams", apt.ResolvedBy)
	assert.Equal(t, followUp, *apt.FollowUpID)
	assert.Equal(t, updated, apt.UpdatedAt)

	name = "changed later"
	assert.Equal(t, "Alice Smith", apt.Name)
}

func TestSlot(t *testing.T) {
	apt := &Appointment{Name: "Alice", Date: "2024-06-12", Time: "09:00", Phone: "555"}
	assert.Equal(t, Slot{Name: "Alice", Date: "2024-06-12", Time: "09:00"}, apt.Slot())
}
