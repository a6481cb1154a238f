package http

import (
	"context"
	"net/http"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/service"
	"github.com/google/uuid"
)

// TreasuryBook касса команды: записи и балансы
type TreasuryBook interface {
	AddEntry(ctx context.Context, actor *model.Member, input service.EntryInput) (*model.LedgerEntry, error)
	Entries(ctx context.Context, teamID uuid.UUID, limit, offset int) ([]*model.LedgerEntry, error)
	Balances(ctx context.Context, teamID uuid.UUID) (*service.TreasuryBalances, error)
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}
	limit, offset := pageParams(r.URL.Query())

	entries, err := s.treasury.Entries(r.Context(), teamID, limit, offset)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]*model.LedgerEntry{"entries": nonNil(entries)})
}

type entryRequest struct {
	MemberID    *uuid.UUID `json:"member_id"`
	Kind        string     `json:"kind"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	Reason      string     `json:"reason"`
}

func (s *Server) handleEntryAdd(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	var req entryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := s.treasury.AddEntry(r.Context(), memberFrom(r), service.EntryInput{
		TeamID:      teamID,
		MemberID:    req.MemberID,
		Kind:        model.EntryKind(req.Kind),
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Reason:      req.Reason,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	balances, err := s.treasury.Balances(r.Context(), teamID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}
