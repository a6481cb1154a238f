package http

import (
	"context"
	"net/http"
	"time"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/service"
	"github.com/google/uuid"
)

// EventManager управляет жизненным циклом событий
type EventManager interface {
	Create(ctx context.Context, actor *model.Member, input service.EventInput) (*model.Event, error)
	Update(ctx context.Context, actor *model.Member, id uuid.UUID, input service.EventInput) (*model.Event, error)
	Delete(ctx context.Context, actor *model.Member, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*model.Event, error)
}

// AttendanceBook принимает ответы на вхождения и считает сводки
type AttendanceBook interface {
	Respond(ctx context.Context, eventID uuid.UUID, date time.Time, member *model.Member, status model.ResponseStatus, comment string) (*model.EventResponse, error)
	Summary(ctx context.Context, eventID uuid.UUID, date time.Time, memberID uuid.UUID) (*model.ResponseSummary, error)
}

type eventRequest struct {
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Location        string      `json:"location"`
	MeetingPoint    string      `json:"meeting_point"`
	AllDay          bool        `json:"all_day"`
	StartAt         time.Time   `json:"start_at"`
	EndAt           *time.Time  `json:"end_at"`
	RSVPDeadline    *time.Time  `json:"rsvp_deadline"`
	Recurrence      string      `json:"recurrence"`
	RecurrenceUntil *time.Time  `json:"recurrence_until"`
	TeamIDs         []uuid.UUID `json:"team_ids"`
}

func (req eventRequest) input() service.EventInput {
	return service.EventInput{
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		MeetingPoint:    req.MeetingPoint,
		AllDay:          req.AllDay,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		RSVPDeadline:    req.RSVPDeadline,
		Recurrence:      req.Recurrence,
		RecurrenceUntil: req.RecurrenceUntil,
		TeamIDs:         req.TeamIDs,
	}
}

func (s *Server) handleEventCreate(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := s.events.Create(r.Context(), memberFrom(r), req.input())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) handleEventGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	event, err := s.events.Get(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleEventUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req eventRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := s.events.Update(r.Context(), memberFrom(r), id, req.input())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleEventDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.events.Delete(r.Context(), memberFrom(r), id); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type respondRequest struct {
	Date    string `json:"date"`
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// handleEventRespond записывает ответ участника на одно вхождение
func (s *Server) handleEventRespond(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req respondRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := occurrenceDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must look like 2006-01-02")
		return
	}

	response, err := s.rsvps.Respond(r.Context(), id, date, memberFrom(r), model.ResponseStatus(req.Status), req.Comment)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	// nil при политике toggle означает снятый ответ
	if response == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleEventResponses(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	date, err := occurrenceDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must look like 2006-01-02")
		return
	}

	summary, err := s.rsvps.Summary(r.Context(), id, date, memberFrom(r).ID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// occurrenceDate разбирает дату вхождения, ключ ответов её день в UTC
func occurrenceDate(v string) (time.Time, error) {
	return time.Parse("2006-01-02", v)
}

// pathID разбирает uuid из пути, при ошибке сам отвечает 400
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a valid uuid")
		return uuid.Nil, false
	}
	return id, true
}
