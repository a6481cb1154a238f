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

// ReminderRepository хранит отметки об отправленных напоминаниях
type ReminderRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewReminderRepository создаёт новый репозиторий
func NewReminderRepository(b *base.Repository, logger *zap.Logger) *ReminderRepository {
	return &ReminderRepository{Repository: b, logger: logger}
}

// WasSent проверяет, отправлялось ли напоминание
func (r *ReminderRepository) WasSent(ctx context.Context, eventID uuid.UUID, date time.Time, kind model.ReminderKind) (bool, error) {
	query := `SELECT exists(SELECT 1 FROM reminders_sent WHERE event_id = $1 AND occurrence_date = $2 AND kind = $3)`

	var sent bool
	if err := r.QueryRow(ctx, query, eventID, date, kind).Scan(&sent); err != nil {
		return false, fmt.Errorf("check reminder: %w", err)
	}

	return sent, nil
}

// MarkSent фиксирует отправленное напоминание.
// Повторная отметка не ошибка: проход планировщика может перекрываться.
func (r *ReminderRepository) MarkSent(ctx context.Context, eventID uuid.UUID, date time.Time, kind model.ReminderKind) error {
	query := `
		INSERT INTO reminders_sent (event_id, occurrence_date, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, occurrence_date, kind) DO NOTHING
	`

	if err := r.Exec(ctx, query, eventID, date, kind); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}

	return nil
}
