package http

import (
	"net/http"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/standings"
	"go.uber.org/zap"
)

const (
	homeUpcomingLimit = 8
	homeNewsLimit     = 5
)

type homeResponse struct {
	ClubName  string                   `json:"club_name"`
	Upcoming  []*model.EventOccurrence `json:"upcoming"`
	News      []*model.NewsPost        `json:"news"`
	Standings *standings.Table         `json:"standings,omitempty"`
}

// handleHome отдаёт главную страницу: ближайшие вхождения, новости
// и виджет турнирной таблицы. Недоступная таблица страницу не ломает.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	upcoming, err := s.calendar.Upcoming(ctx, homeUpcomingLimit, nil)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	news, err := s.news.List(ctx, homeNewsLimit, 0)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	resp := homeResponse{
		ClubName: s.clubName,
		Upcoming: upcoming,
		News:     news,
	}

	if s.standings != nil && s.standings.Enabled() {
		table, err := s.standings.Table(ctx)
		if err != nil {
			s.logger.Warn("Standings unavailable for home page", zap.Error(err))
		} else {
			resp.Standings = table
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
