package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/repository/base"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResponseRepository управляет ответами участников на вхождения событий.
// Ключ ответа: событие, дата вхождения без времени, участник.
type ResponseRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewResponseRepository создаёт новый репозиторий
func NewResponseRepository(b *base.Repository, logger *zap.Logger) *ResponseRepository {
	return &ResponseRepository{Repository: b, logger: logger}
}

// Get получает ответ участника на вхождение
func (r *ResponseRepository) Get(ctx context.Context, eventID uuid.UUID, date time.Time, memberID uuid.UUID) (*model.EventResponse, error) {
	query := `
		SELECT id, event_id, occurrence_date, member_id, status, comment, updated_at
		FROM event_responses
		WHERE event_id = $1 AND occurrence_date = $2 AND member_id = $3
	`

	resp := &model.EventResponse{}
	err := r.QueryRow(ctx, query, eventID, date, memberID).Scan(
		&resp.ID,
		&resp.EventID,
		&resp.Date,
		&resp.MemberID,
		&resp.Status,
		&resp.Comment,
		&resp.UpdatedAt,
	)

	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event response: %w", err)
	}

	return resp, nil
}

// Upsert создаёт или перезаписывает ответ участника
func (r *ResponseRepository) Upsert(ctx context.Context, resp *model.EventResponse) error {
	query := `
		INSERT INTO event_responses (event_id, occurrence_date, member_id, status, comment)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, occurrence_date, member_id) DO UPDATE
		SET status = EXCLUDED.status, comment = EXCLUDED.comment, updated_at = now()
		RETURNING id, updated_at
	`

	err := r.QueryRow(ctx, query, resp.EventID, resp.Date, resp.MemberID, resp.Status, resp.Comment).
		Scan(&resp.ID, &resp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert event response: %w", err)
	}

	return nil
}

// Delete снимает ответ участника
func (r *ResponseRepository) Delete(ctx context.Context, eventID uuid.UUID, date time.Time, memberID uuid.UUID) error {
	query := `DELETE FROM event_responses WHERE event_id = $1 AND occurrence_date = $2 AND member_id = $3`

	if err := r.Exec(ctx, query, eventID, date, memberID); err != nil {
		return fmt.Errorf("delete event response: %w", err)
	}

	return nil
}

// ListForOccurrence получает все ответы на вхождение с данными участников
func (r *ResponseRepository) ListForOccurrence(ctx context.Context, eventID uuid.UUID, date time.Time) ([]*model.EventResponse, error) {
	query := `
		SELECT er.id, er.event_id, er.occurrence_date, er.member_id, er.status, er.comment, er.updated_at,
		       ` + prefixedMemberColumns("m") + `
		FROM event_responses er
		JOIN members m ON m.id = er.member_id
		WHERE er.event_id = $1 AND er.occurrence_date = $2
		ORDER BY m.last_name, m.first_name
	`

	rows, err := r.Query(ctx, query, eventID, date)
	if err != nil {
		return nil, fmt.Errorf("list responses for occurrence: %w", err)
	}
	defer rows.Close()

	var responses []*model.EventResponse
	for rows.Next() {
		resp := &model.EventResponse{Member: &model.Member{}}
		err := rows.Scan(
			&resp.ID,
			&resp.EventID,
			&resp.Date,
			&resp.MemberID,
			&resp.Status,
			&resp.Comment,
			&resp.UpdatedAt,
			&resp.Member.ID,
			&resp.Member.AuthSubject,
			&resp.Member.FirstName,
			&resp.Member.LastName,
			&resp.Member.Nickname,
			&resp.Member.Email,
			&resp.Member.Phone,
			&resp.Member.Role,
			&resp.Member.IsActive,
			&resp.Member.CreatedAt,
			&resp.Member.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event response: %w", err)
		}
		responses = append(responses, resp)
	}

	return responses, rows.Err()
}

// CountsForEvent получает количество идущих по каждой дате события.
// Используется календарём для бейджей на карточках.
func (r *ResponseRepository) CountsForEvent(ctx context.Context, eventID uuid.UUID) (map[string]int, error) {
	query := `
		SELECT occurrence_date, count(*)
		FROM event_responses
		WHERE event_id = $1 AND status = $2
		GROUP BY occurrence_date
	`

	rows, err := r.Query(ctx, query, eventID, model.ResponseAttending)
	if err != nil {
		return nil, fmt.Errorf("count responses for event: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var date time.Time
		var count int
		if err := rows.Scan(&date, &count); err != nil {
			return nil, fmt.Errorf("scan response count: %w", err)
		}
		counts[date.Format("2006-01-02")] = count
	}

	return counts, rows.Err()
}
