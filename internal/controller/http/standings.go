package http

import (
	"context"
	"net/http"

	"github.com/atlasov/club_portal/internal/standings"
)

// LeagueTable источник турнирной таблицы лиги
type LeagueTable interface {
	Enabled() bool
	Table(ctx context.Context) (*standings.Table, error)
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	if s.standings == nil || !s.standings.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "standings are not configured")
		return
	}

	table, err := s.standings.Table(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}
