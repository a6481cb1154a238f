package repository

import (
	"context"
	"fmt"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/repository/base"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TreasuryRepository управляет кассой команд в базе данных
type TreasuryRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewTreasuryRepository создаёт новый репозиторий
func NewTreasuryRepository(b *base.Repository, logger *zap.Logger) *TreasuryRepository {
	return &TreasuryRepository{Repository: b, logger: logger}
}

// CreateEntry добавляет запись в кассу
func (r *TreasuryRepository) CreateEntry(ctx context.Context, e *model.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (team_id, member_id, kind, amount_cents, currency, reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx,
		query,
		e.TeamID,
		e.MemberID,
		e.Kind,
		e.AmountCents,
		e.Currency,
		e.Reason,
		e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt)

	if err != nil {
		return fmt.Errorf("create ledger entry: %w", err)
	}

	return nil
}

// ListByTeam получает записи кассы команды от новых к старым
func (r *TreasuryRepository) ListByTeam(ctx context.Context, teamID uuid.UUID, limit, offset int) ([]*model.LedgerEntry, error) {
	query := `
		SELECT le.id, le.team_id, le.member_id, le.kind, le.amount_cents, le.currency, le.reason,
		       le.created_by, le.created_at
		FROM ledger_entries le
		WHERE le.team_id = $1
		ORDER BY le.created_at DESC, le.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.Query(ctx, query, teamID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		e := &model.LedgerEntry{}
		err := rows.Scan(
			&e.ID,
			&e.TeamID,
			&e.MemberID,
			&e.Kind,
			&e.AmountCents,
			&e.Currency,
			&e.Reason,
			&e.CreatedBy,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// MemberBalances считает баланс каждого участника в кассе команды
func (r *TreasuryRepository) MemberBalances(ctx context.Context, teamID uuid.UUID) ([]*model.MemberBalance, error) {
	query := `
		SELECT le.member_id, sum(le.amount_cents), ` + prefixedMemberColumns("m") + `
		FROM ledger_entries le
		JOIN members m ON m.id = le.member_id
		WHERE le.team_id = $1 AND le.member_id IS NOT NULL
		GROUP BY le.member_id, m.id
		ORDER BY m.last_name, m.first_name
	`

	rows, err := r.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("member balances: %w", err)
	}
	defer rows.Close()

	var balances []*model.MemberBalance
	for rows.Next() {
		b := &model.MemberBalance{Member: &model.Member{}}
		err := rows.Scan(
			&b.MemberID,
			&b.AmountCents,
			&b.Member.ID,
			&b.Member.AuthSubject,
			&b.Member.FirstName,
			&b.Member.LastName,
			&b.Member.Nickname,
			&b.Member.Email,
			&b.Member.Phone,
			&b.Member.Role,
			&b.Member.IsActive,
			&b.Member.CreatedAt,
			&b.Member.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan member balance: %w", err)
		}
		balances = append(balances, b)
	}

	return balances, rows.Err()
}

// TeamTotal считает общий баланс кассы команды
func (r *TreasuryRepository) TeamTotal(ctx context.Context, teamID uuid.UUID) (int64, error) {
	query := `SELECT coalesce(sum(amount_cents), 0) FROM ledger_entries WHERE team_id = $1`

	var total int64
	if err := r.QueryRow(ctx, query, teamID).Scan(&total); err != nil {
		return 0, fmt.Errorf("team total: %w", err)
	}

	return total, nil
}

// MemberTotal считает баланс одного участника в кассе команды
func (r *TreasuryRepository) MemberTotal(ctx context.Context, teamID, memberID uuid.UUID) (int64, error) {
	query := `SELECT coalesce(sum(amount_cents), 0) FROM ledger_entries WHERE team_id = $1 AND member_id = $2`

	var total int64
	if err := r.QueryRow(ctx, query, teamID, memberID).Scan(&total); err != nil {
		return 0, fmt.Errorf("member total: %w", err)
	}

	return total, nil
}
