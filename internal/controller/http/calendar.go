package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/google/uuid"
)

// CalendarReader разворачивает события в календарные вхождения
type CalendarReader interface {
	Month(ctx context.Context, year int, month time.Month, teamID *uuid.UUID) ([]*model.EventOccurrence, error)
	Week(ctx context.Context, anchor time.Time, teamID *uuid.UUID) ([]*model.EventOccurrence, error)
	Upcoming(ctx context.Context, limit int, teamID *uuid.UUID) ([]*model.EventOccurrence, error)
}

// PosterRenderer рисует афишу недели
type PosterRenderer interface {
	WeekPoster(anchor time.Time, occurrences []*model.EventOccurrence, teams []*model.Team) ([]byte, error)
}

type occurrencesResponse struct {
	Occurrences []*model.EventOccurrence `json:"occurrences"`
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	year, err := strconv.Atoi(q.Get("year"))
	if err != nil || year < 1970 || year > 2200 {
		writeError(w, http.StatusBadRequest, "year must be a four-digit number")
		return
	}
	monthNum, err := strconv.Atoi(q.Get("month"))
	if err != nil || monthNum < 1 || monthNum > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}
	teamID, err := teamFilter(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "team must be a valid uuid")
		return
	}

	occurrences, err := s.calendar.Month(r.Context(), year, time.Month(monthNum), teamID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, occurrencesResponse{Occurrences: nonNil(occurrences)})
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	anchor, err := s.dateOrToday(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must look like 2006-01-02")
		return
	}
	teamID, err := teamFilter(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "team must be a valid uuid")
		return
	}

	occurrences, err := s.calendar.Week(r.Context(), anchor, teamID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, occurrencesResponse{Occurrences: nonNil(occurrences)})
}

// handleWeekPoster отдаёт афишу недели картинкой
func (s *Server) handleWeekPoster(w http.ResponseWriter, r *http.Request) {
	if s.posters == nil {
		writeError(w, http.StatusServiceUnavailable, "poster rendering is not configured")
		return
	}

	anchor, err := s.dateOrToday(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must look like 2006-01-02")
		return
	}

	occurrences, err := s.calendar.Week(r.Context(), anchor, nil)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	teams, err := s.teams.List(r.Context(), false)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	png, err := s.posters.WeekPoster(anchor, occurrences, teams)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// dateOrToday разбирает параметр даты, пустой значит сегодня
func (s *Server) dateOrToday(v string) (time.Time, error) {
	if v == "" {
		return s.clock.Now().In(s.zone), nil
	}
	return time.ParseInLocation("2006-01-02", v, s.zone)
}

func teamFilter(q url.Values) (*uuid.UUID, error) {
	v := q.Get("team")
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
