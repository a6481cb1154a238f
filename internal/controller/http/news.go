package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/google/uuid"
)

// NewsBoard управляет новостями клуба
type NewsBoard interface {
	Publish(ctx context.Context, actor *model.Member, title, body string, pinned bool) (*model.NewsPost, error)
	Update(ctx context.Context, actor *model.Member, id uuid.UUID, title, body string, pinned bool) (*model.NewsPost, error)
	Delete(ctx context.Context, actor *model.Member, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*model.NewsPost, error)
	List(ctx context.Context, limit, offset int) ([]*model.NewsPost, error)
}

type newsRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Pinned bool   `json:"pinned"`
}

func (s *Server) handleNewsList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r.URL.Query())

	posts, err := s.news.List(r.Context(), limit, offset)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]*model.NewsPost{"posts": nonNil(posts)})
}

func (s *Server) handleNewsPublish(w http.ResponseWriter, r *http.Request) {
	var req newsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := s.news.Publish(r.Context(), memberFrom(r), req.Title, req.Body, req.Pinned)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleNewsGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	post, err := s.news.Get(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleNewsUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req newsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := s.news.Update(r.Context(), memberFrom(r), id, req.Title, req.Body, req.Pinned)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleNewsDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.news.Delete(r.Context(), memberFrom(r), id); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pageParams читает limit и offset, кривые значения падают в умолчания
func pageParams(q url.Values) (limit, offset int) {
	limit = 20
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
