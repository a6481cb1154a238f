package http

import (
	"context"
	"net/http"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/service"
	"github.com/google/uuid"
)

// MemberDirectory ведёт учёт участников клуба
type MemberDirectory interface {
	MemberResolver
	Register(ctx context.Context, subject string, input service.ProfileInput) (*model.Member, error)
	UpdateProfile(ctx context.Context, actor *model.Member, input service.ProfileInput) (*model.Member, error)
	List(ctx context.Context, actor *model.Member, includeInactive bool) ([]*model.Member, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Member, error)
	SetRole(ctx context.Context, actor *model.Member, id uuid.UUID, role model.MemberRole) error
	SetActive(ctx context.Context, actor *model.Member, id uuid.UUID, active bool) error
}

type profileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (req profileRequest) input() service.ProfileInput {
	return service.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Nickname:  req.Nickname,
		Email:     req.Email,
		Phone:     req.Phone,
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, memberFrom(r))
}

func (s *Server) handleMeUpdate(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	member, err := s.members.UpdateProfile(r.Context(), memberFrom(r), req.input())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// handleMemberRegister заводит участника для нового subject. Единственный
// маршрут, которому достаточно токена без существующей учётной записи.
func (s *Server) handleMemberRegister(w http.ResponseWriter, r *http.Request) {
	subject := subjectFrom(r)
	if subject == "" {
		writeError(w, http.StatusUnauthorized, "member token required")
		return
	}
	if memberFrom(r) != nil {
		writeError(w, http.StatusConflict, "member already registered")
		return
	}

	var req profileRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	member, err := s.members.Register(r.Context(), subject, req.input())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (s *Server) handleMemberList(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	members, err := s.members.List(r.Context(), memberFrom(r), includeInactive)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]*model.Member{"members": nonNil(members)})
}

type memberPatchRequest struct {
	Role   *string `json:"role"`
	Active *bool   `json:"active"`
}

// handleMemberPatch меняет роль и статус активности участника
func (s *Server) handleMemberPatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req memberPatchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role == nil && req.Active == nil {
		writeError(w, http.StatusBadRequest, "nothing to change")
		return
	}

	actor := memberFrom(r)
	if req.Role != nil {
		if err := s.members.SetRole(r.Context(), actor, id, model.MemberRole(*req.Role)); err != nil {
			s.serviceError(w, err)
			return
		}
	}
	if req.Active != nil {
		if err := s.members.SetActive(r.Context(), actor, id, *req.Active); err != nil {
			s.serviceError(w, err)
			return
		}
	}

	member, err := s.members.Get(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}
