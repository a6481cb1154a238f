package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatRoom представляет чат: общий для клуба или командный
type ChatRoom struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	TeamID    *uuid.UUID `json:"team_id"` // nil = общий чат клуба
	CreatedAt time.Time  `json:"created_at"`
}

type ChatMessage struct {
	ID       int64     `json:"id"`
	RoomID   uuid.UUID `json:"room_id"`
	AuthorID uuid.UUID `json:"author_id"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
	Author   *Member   `json:"author,omitempty"`
}
