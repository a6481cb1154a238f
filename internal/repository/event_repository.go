package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// EventRepository управляет событиями календаря в базе данных.
// Хранятся только шаблоны; вхождения вычисляются при чтении.
type EventRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewEventRepository создаёт новый репозиторий
func NewEventRepository(b *base.Repository, logger *zap.Logger) *EventRepository {
	return &EventRepository{Repository: b, logger: logger}
}

const eventColumns = `id, title, description, location, meeting_point, all_day, start_at, end_at,
	rsvp_deadline, recurrence, recurrence_until, team_ids, import_uid, created_by, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	e := &model.Event{}
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.Location,
		&e.MeetingPoint,
		&e.AllDay,
		&e.StartAt,
		&e.EndAt,
		&e.RSVPDeadline,
		&e.Recurrence,
		&e.RecurrenceUntil,
		&e.TeamIDs,
		&e.ImportUID,
		&e.CreatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Create создаёт новое событие
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	query := `
		INSERT INTO events (title, description, location, meeting_point, all_day, start_at, end_at,
			rsvp_deadline, recurrence, recurrence_until, team_ids, import_uid, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx,
		query,
		e.Title,
		e.Description,
		e.Location,
		e.MeetingPoint,
		e.AllDay,
		e.StartAt,
		e.EndAt,
		e.RSVPDeadline,
		e.Recurrence,
		e.RecurrenceUntil,
		e.TeamIDs,
		e.ImportUID,
		e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}

	return nil
}

// GetByID получает событие по ID
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	e, err := scanEvent(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event by id: %w", err)
	}

	return e, nil
}

// GetForWindow получает события, у которых могут быть вхождения в окне.
// Повторяющиеся события, начавшиеся раньше окна, тоже попадают в выборку:
// их вхождения вычисляет разворот.
func (r *EventRepository) GetForWindow(ctx context.Context, from, to time.Time) ([]*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE start_at <= $2
		  AND (recurrence <> 'none' OR start_at >= $1)
		  AND (recurrence_until IS NULL OR recurrence_until >= $1::date)
		ORDER BY start_at
	`

	rows, err := r.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("get events for window: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// Update обновляет событие
func (r *EventRepository) Update(ctx context.Context, e *model.Event) error {
	query := `
		UPDATE events
		SET title = $2, description = $3, location = $4, meeting_point = $5, all_day = $6,
		    start_at = $7, end_at = $8, rsvp_deadline = $9, recurrence = $10,
		    recurrence_until = $11, team_ids = $12, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.QueryRow(
		ctx,
		query,
		e.ID,
		e.Title,
		e.Description,
		e.Location,
		e.MeetingPoint,
		e.AllDay,
		e.StartAt,
		e.EndAt,
		e.RSVPDeadline,
		e.Recurrence,
		e.RecurrenceUntil,
		e.TeamIDs,
	).Scan(&e.UpdatedAt)

	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	return nil
}

// Delete удаляет событие вместе с ответами участников
func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM events WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("event not found")
	}

	return nil
}

// UpsertImported создаёт или обновляет импортированное событие по import_uid
func (r *EventRepository) UpsertImported(ctx context.Context, e *model.Event) error {
	if e.ImportUID == nil {
		return fmt.Errorf("imported event requires import uid")
	}

	query := `
		INSERT INTO events (title, description, location, meeting_point, all_day, start_at, end_at,
			rsvp_deadline, recurrence, recurrence_until, team_ids, import_uid, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (import_uid) DO UPDATE
		SET title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    location = EXCLUDED.location,
		    all_day = EXCLUDED.all_day,
		    start_at = EXCLUDED.start_at,
		    end_at = EXCLUDED.end_at,
		    team_ids = EXCLUDED.team_ids,
		    updated_at = now()
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx,
		query,
		e.Title,
		e.Description,
		e.Location,
		e.MeetingPoint,
		e.AllDay,
		e.StartAt,
		e.EndAt,
		e.RSVPDeadline,
		e.Recurrence,
		e.RecurrenceUntil,
		e.TeamIDs,
		e.ImportUID,
		e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert imported event: %w", err)
	}

	return nil
}

// DeleteImportedExcept удаляет импортированные события источника, пропавшие
// из внешнего календаря. Префикс отделяет события одного источника.
// Затрагивается только окно синхронизации: события, начавшиеся раньше
// since, остаются историей вместе с ответами участников.
func (r *EventRepository) DeleteImportedExcept(ctx context.Context, uidPrefix string, keep []string, since time.Time) (int64, error) {
	query := `
		DELETE FROM events
		WHERE import_uid LIKE $1 || '%'
		  AND NOT (import_uid = ANY($2))
		  AND start_at >= $3
	`

	affected, err := r.ExecAffected(ctx, query, uidPrefix, keep, since)
	if err != nil {
		return 0, fmt.Errorf("delete stale imported events: %w", err)
	}

	return affected, nil
}
