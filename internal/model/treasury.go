package model

import (
	"time"

	"github.com/google/uuid"
)

type EntryKind string

const (
	EntryPenalty      EntryKind = "penalty"      // штраф, списание с участника
	EntryContribution EntryKind = "contribution" // взнос, списание с участника
	EntryPayment      EntryKind = "payment"      // оплата участником
	EntryExpense      EntryKind = "expense"      // расход кассы команды
)

// LedgerEntry представляет запись в кассе команды.
// Суммы в копейках: начисления отрицательные, оплаты положительные.
type LedgerEntry struct {
	ID          int64      `json:"id"`
	TeamID      uuid.UUID  `json:"team_id"`
	MemberID    *uuid.UUID `json:"member_id"` // nil для общекомандных расходов
	Kind        EntryKind  `json:"kind"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	Reason      string     `json:"reason"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	Member      *Member    `json:"member,omitempty"`
}

// MemberBalance баланс участника в кассе команды
type MemberBalance struct {
	MemberID    uuid.UUID `json:"member_id"`
	Member      *Member   `json:"member,omitempty"`
	AmountCents int64     `json:"amount_cents"`
}
