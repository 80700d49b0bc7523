package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const appointmentColumns = `
	id, patient_id, name, phone, date, "time", type, status,
	notes, doctor_notes, resolved_at, resolved_by,
	reschedule_reason, rejection_reason, follow_up_of, follow_up_id,
	created_at, updated_at`

func (r *appointmentRepository) InsertIfAbsent(ctx context.Context, apt *model.Appointment) (bool, error) {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (name, date, "time") DO NOTHING
	`
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	if apt.CreatedAt.IsZero() {
		apt.CreatedAt = time.Now()
	}
	if apt.UpdatedAt.IsZero() {
		apt.UpdatedAt = apt.CreatedAt
	}

	result, err := r.db.ExecContext(ctx, query,
		apt.ID,
		apt.PatientID,
		apt.Name,
		apt.Phone,
		apt.Date,
		apt.Time,
		apt.Type,
		apt.Status,
		apt.Notes,
		apt.DoctorNotes,
		apt.ResolvedAt,
		apt.ResolvedBy,
		apt.RescheduleReason,
		apt.RejectionReason,
		apt.FollowUpOf,
		apt.FollowUpID,
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters == nil {
		filters = &model.AppointmentFilters{}
	}

	where, args := buildAppointmentWhere(filters)
	query := `SELECT ` + appointmentColumns + ` FROM appointments` + where + orderBy(filters.Sort)
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	appointments := make([]*model.Appointment, 0)
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) Update(ctx context.Context, id uuid.UUID, patch *model.AppointmentPatch) (*model.Appointment, error) {
	var updated model.Appointment

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &updated, query, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("failed to lock appointment: %w", err)
		}

		patch.Apply(&updated)
		if patch.UpdatedAt.IsZero() {
			updated.UpdatedAt = time.Now()
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE appointments
			SET patient_id = $1, name = $2, phone = $3, date = $4, "time" = $5, type = $6,
				status = $7, notes = $8, doctor_notes = $9, resolved_at = $10, resolved_by = $11,
				reschedule_reason = $12, rejection_reason = $13, follow_up_id = $14, updated_at = $15
			WHERE id = $16
		`,
			updated.PatientID,
			updated.Name,
			updated.Phone,
			updated.Date,
			updated.Time,
			updated.Type,
			updated.Status,
			updated.Notes,
			updated.DoctorNotes,
			updated.ResolvedAt,
			updated.ResolvedBy,
			updated.RescheduleReason,
			updated.RejectionReason,
			updated.FollowUpID,
			updated.UpdatedAt,
			id,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrDuplicateSlot
			}
			return fmt.Errorf("failed to update appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) Count(ctx context.Context, filters *model.AppointmentFilters) (int, error) {
	if filters == nil {
		filters = &model.AppointmentFilters{}
	}

	where, args := buildAppointmentWhere(filters)
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM appointments`+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

func (r *appointmentRepository) SlotExists(ctx context.Context, slot model.Slot) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM appointments WHERE name = $1 AND date = $2 AND "time" = $3)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, slot.Name, slot.Date, slot.Time); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return exists, nil
}

// likeEscaper makes a search term match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildAppointmentWhere(f *model.AppointmentFilters) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case f.Status == "" || f.Status == model.StatusAll:
	case model.AppointmentStatus(f.Status) == model.AppointmentStatusPending:
		conditions = append(conditions, fmt.Sprintf("(status = %s OR status = '')", next(f.Status)))
	default:
		conditions = append(conditions, "status = "+next(f.Status))
	}

	if len(f.ExcludeStatus) > 0 {
		excluded := make([]string, 0, len(f.ExcludeStatus))
		for _, s := range f.ExcludeStatus {
			excluded = append(excluded, string(s))
		}
		conditions = append(conditions, fmt.Sprintf("NOT (status = ANY(%s))", next(pq.Array(excluded))))
	}

	if f.Search != "" {
		p := next("%" + likeEscaper.Replace(f.Search) + "%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE %s OR phone ILIKE %s)", p, p))
	}
	if f.Date != "" {
		conditions = append(conditions, "date = "+next(f.Date))
	}
	if f.DateFrom != "" {
		conditions = append(conditions, "date >= "+next(f.DateFrom))
	}
	if f.CreatedFrom != nil {
		conditions = append(conditions, "created_at >= "+next(*f.CreatedFrom))
	}
	if f.CreatedTo != nil {
		conditions = append(conditions, "created_at < "+next(*f.CreatedTo))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func orderBy(order model.SortOrder) string {
	switch order {
	case model.SortByDateDesc:
		return ` ORDER BY date DESC, "time" DESC`
	case model.SortByName:
		return ` ORDER BY name COLLATE "C" ASC`
	case model.SortByCreated:
		return ` ORDER BY created_at DESC`
	default:
		return ` ORDER BY date ASC, "time" ASC`
	}
}
