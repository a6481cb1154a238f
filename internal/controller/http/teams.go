package http

import (
	"context"
	"net/http"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/service"
	"github.com/google/uuid"
)

// TeamDirectory управляет командами и составами
type TeamDirectory interface {
	Create(ctx context.Context, actor *model.Member, input service.TeamInput) (*model.Team, error)
	Update(ctx context.Context, actor *model.Member, id uuid.UUID, input service.TeamInput) (*model.Team, error)
	Delete(ctx context.Context, actor *model.Member, id uuid.UUID) error
	List(ctx context.Context, includeInactive bool) ([]*model.Team, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Team, error)
	Roster(ctx context.Context, teamID uuid.UUID) ([]*model.TeamMember, error)
	AddMember(ctx context.Context, actor *model.Member, teamID, memberID uuid.UUID, role model.TeamRole) error
	RemoveMember(ctx context.Context, actor *model.Member, teamID, memberID uuid.UUID) error
}

type teamRequest struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Color     string `json:"color"`
	SortOrder int    `json:"sort_order"`
}

func (req teamRequest) input() service.TeamInput {
	return service.TeamInput{
		Name:      req.Name,
		ShortName: req.ShortName,
		Color:     req.Color,
		SortOrder: req.SortOrder,
	}
}

func (s *Server) handleTeamList(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	teams, err := s.teams.List(r.Context(), includeInactive)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]*model.Team{"teams": nonNil(teams)})
}

func (s *Server) handleTeamCreate(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	team, err := s.teams.Create(r.Context(), memberFrom(r), req.input())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (s *Server) handleTeamGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	team, err := s.teams.Get(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *Server) handleTeamUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req teamRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	team, err := s.teams.Update(r.Context(), memberFrom(r), id, req.input())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *Server) handleTeamDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.teams.Delete(r.Context(), memberFrom(r), id); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	roster, err := s.teams.Roster(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]*model.TeamMember{"roster": nonNil(roster)})
}

type rosterRequest struct {
	MemberID uuid.UUID `json:"member_id"`
	Role     string    `json:"role"`
}

func (s *Server) handleRosterAdd(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req rosterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role := model.TeamRole(req.Role)
	if role == "" {
		role = model.TeamRolePlayer
	}

	if err := s.teams.AddMember(r.Context(), memberFrom(r), id, req.MemberID, role); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRosterRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "memberID")
	if !ok {
		return
	}

	if err := s.teams.RemoveMember(r.Context(), memberFrom(r), id, memberID); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
