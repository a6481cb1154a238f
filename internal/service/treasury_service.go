package service

import (
	"context"
	"fmt"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Валюта кассы по умолчанию
const defaultCurrency = "EUR"

// LedgerStore хранилище записей кассы
type LedgerStore interface {
	CreateEntry(ctx context.Context, e *model.LedgerEntry) error
	ListByTeam(ctx context.Context, teamID uuid.UUID, limit, offset int) ([]*model.LedgerEntry, error)
	MemberBalances(ctx context.Context, teamID uuid.UUID) ([]*model.MemberBalance, error)
	TeamTotal(ctx context.Context, teamID uuid.UUID) (int64, error)
	MemberTotal(ctx context.Context, teamID, memberID uuid.UUID) (int64, error)
}

// TeamGetter чтение команды по идентификатору
type TeamGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Team, error)
}

// EntryInput входные данные для записи в кассу. Сумма всегда положительная,
// знак определяется видом записи.
type EntryInput struct {
	TeamID      uuid.UUID
	MemberID    *uuid.UUID
	Kind        model.EntryKind
	AmountCents int64
	Currency    string
	Reason      string
}

// TreasuryBalances сводка кассы команды
type TreasuryBalances struct {
	TeamID     uuid.UUID              `json:"team_id"`
	TotalCents int64                  `json:"total_cents"`
	Members    []*model.MemberBalance `json:"members"`
}

// TreasuryService ведёт кассу команды: штрафы, взносы, оплаты и расходы.
// Записи не правятся и не удаляются, ошибку исправляет обратная запись.
type TreasuryService struct {
	ledger LedgerStore
	teams  TeamGetter
	logger *zap.Logger
}

// NewTreasuryService создаёт новый сервис кассы
func NewTreasuryService(ledger LedgerStore, teams TeamGetter, logger *zap.Logger) *TreasuryService {
	return &TreasuryService{
		ledger: ledger,
		teams:  teams,
		logger: logger,
	}
}

// AddEntry добавляет запись в кассу. Доступно администраторам и тренерам.
func (s *TreasuryService) AddEntry(ctx context.Context, actor *model.Member, input EntryInput) (*model.LedgerEntry, error) {
	if !actor.CanManage() {
		return nil, fmt.Errorf("member is not allowed to manage the treasury")
	}
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("entry amount must be positive")
	}
	if input.Reason == "" {
		return nil, fmt.Errorf("entry reason is required")
	}

	var signed int64
	switch input.Kind {
	case model.EntryPenalty, model.EntryContribution, model.EntryExpense:
		signed = -input.AmountCents
	case model.EntryPayment:
		signed = input.AmountCents
	default:
		return nil, fmt.Errorf("unknown entry kind: %q", input.Kind)
	}

	// Расход относится ко всей команде, остальные виды к участнику
	if input.Kind == model.EntryExpense {
		if input.MemberID != nil {
			return nil, fmt.Errorf("expense entry must not name a member")
		}
	} else if input.MemberID == nil {
		return nil, fmt.Errorf("entry member is required")
	}

	team, err := s.teams.GetByID(ctx, input.TeamID)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	if team == nil {
		return nil, fmt.Errorf("team not found")
	}

	currency := input.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	entry := &model.LedgerEntry{
		TeamID:      input.TeamID,
		MemberID:    input.MemberID,
		Kind:        input.Kind,
		AmountCents: signed,
		Currency:    currency,
		Reason:      input.Reason,
		CreatedBy:   actor.ID,
	}
	if err := s.ledger.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("create ledger entry: %w", err)
	}

	s.logger.Info("Ledger entry created",
		zap.String("team_id", input.TeamID.String()),
		zap.String("kind", string(input.Kind)),
		zap.Int64("amount_cents", signed),
		zap.String("created_by", actor.ID.String()))

	return entry, nil
}

// Entries возвращает записи кассы команды, новые первыми
func (s *TreasuryService) Entries(ctx context.Context, teamID uuid.UUID, limit, offset int) ([]*model.LedgerEntry, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	if team == nil {
		return nil, fmt.Errorf("team not found")
	}

	entries, err := s.ledger.ListByTeam(ctx, teamID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

// Balances возвращает сводку кассы: общий итог и балансы участников
func (s *TreasuryService) Balances(ctx context.Context, teamID uuid.UUID) (*TreasuryBalances, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	if team == nil {
		return nil, fmt.Errorf("team not found")
	}

	total, err := s.ledger.TeamTotal(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("get team total: %w", err)
	}

	members, err := s.ledger.MemberBalances(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("get member balances: %w", err)
	}

	return &TreasuryBalances{
		TeamID:     teamID,
		TotalCents: total,
		Members:    members,
	}, nil
}

// MemberBalance возвращает баланс одного участника в кассе команды
func (s *TreasuryService) MemberBalance(ctx context.Context, teamID, memberID uuid.UUID) (int64, error) {
	total, err := s.ledger.MemberTotal(ctx, teamID, memberID)
	if err != nil {
		return 0, fmt.Errorf("get member total: %w", err)
	}
	return total, nil
}
