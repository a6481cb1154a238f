package model

import (
	"time"

	"github.com/google/uuid"
)

// NewsPost представляет новость клуба, текст в Markdown
type NewsPost struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	BodyHTML    string    `json:"body_html,omitempty"` // заполняется при чтении, в базе не хранится
	IsPinned    bool      `json:"is_pinned"`
	AuthorID    uuid.UUID `json:"author_id"`
	PublishedAt time.Time `json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
