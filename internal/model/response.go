package model

import (
	"time"

	"github.com/google/uuid"
)

type ResponseStatus string

const (
	ResponseAttending ResponseStatus = "attending"
	ResponseDeclined  ResponseStatus = "declined"
	ResponseUncertain ResponseStatus = "uncertain"
)

// EventResponse представляет ответ участника на конкретное вхождение события.
// Ключ вхождения - дата начала без времени.
type EventResponse struct {
	ID        int64          `json:"id"`
	EventID   uuid.UUID      `json:"event_id"`
	Date      time.Time      `json:"date"` // только дата, время обнулено
	MemberID  uuid.UUID      `json:"member_id"`
	Status    ResponseStatus `json:"status"`
	Comment   string         `json:"comment"`
	UpdatedAt time.Time      `json:"updated_at"`
	Member    *Member        `json:"member,omitempty"` // заполняется при выборке сводки
}

// ResponseSummary сводка ответов по одному вхождению события
type ResponseSummary struct {
	EventID   uuid.UUID        `json:"event_id"`
	Date      string           `json:"date"`
	Attending []*EventResponse `json:"attending"`
	Declined  []*EventResponse `json:"declined"`
	Uncertain []*EventResponse `json:"uncertain"`
	Own       *EventResponse   `json:"own,omitempty"`
}
