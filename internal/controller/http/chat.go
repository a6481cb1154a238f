package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/google/uuid"
)

// ChatBoard комнаты чата и их сообщения
type ChatBoard interface {
	CreateRoom(ctx context.Context, actor *model.Member, name string) (*model.ChatRoom, error)
	DeleteRoom(ctx context.Context, actor *model.Member, id uuid.UUID) error
	Rooms(ctx context.Context, member *model.Member) ([]*model.ChatRoom, error)
	History(ctx context.Context, member *model.Member, roomID uuid.UUID, beforeID int64, limit int) ([]*model.ChatMessage, error)
	Post(ctx context.Context, member *model.Member, roomID uuid.UUID, body string) (*model.ChatMessage, error)
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.chat.Rooms(r.Context(), memberFrom(r))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]*model.ChatRoom{"rooms": nonNil(rooms)})
}

type roomRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRoomCreate(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := s.chat.CreateRoom(r.Context(), memberFrom(r), req.Name)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (s *Server) handleRoomDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.chat.DeleteRoom(r.Context(), memberFrom(r), id); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMessages отдаёт историю комнаты, страницами от новых к старым.
// Параметр before задаёт верхнюю границу по id сообщения.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	q := r.URL.Query()
	var beforeID int64
	if v := q.Get("before"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "before must be a positive message id")
			return
		}
		beforeID = n
	}
	limit, _ := pageParams(q)

	messages, err := s.chat.History(r.Context(), memberFrom(r), id, beforeID, limit)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]*model.ChatMessage{"messages": nonNil(messages)})
}

type messageRequest struct {
	Body string `json:"body"`
}

func (s *Server) handleMessagePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req messageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := s.chat.Post(r.Context(), memberFrom(r), id, req.Body)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}
