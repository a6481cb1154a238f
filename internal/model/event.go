package model

import (
	"time"

	"github.com/google/uuid"
)

type Recurrence string

const (
	RecurrenceNone     Recurrence = "none"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceBiweekly Recurrence = "biweekly"
	RecurrenceMonthly  Recurrence = "monthly"
)

// Event представляет событие клуба: тренировку, матч или встречу.
// Хранится только шаблон; конкретные даты разворачиваются при чтении
// и никогда не записываются обратно.
type Event struct {
	ID              uuid.UUID   `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Location        string      `json:"location"`
	MeetingPoint    string      `json:"meeting_point"`
	AllDay          bool        `json:"all_day"`
	StartAt         time.Time   `json:"start_at"`
	EndAt           *time.Time  `json:"end_at"`           // может быть nil или на следующий день
	RSVPDeadline    *time.Time  `json:"rsvp_deadline"`    // срок ответа для первого вхождения
	Recurrence      Recurrence  `json:"recurrence"`
	RecurrenceUntil *time.Time  `json:"recurrence_until"` // последняя допустимая дата вхождения
	TeamIDs         []uuid.UUID `json:"team_ids"`         // пустой список = событие видно всем
	ImportUID       *string     `json:"import_uid,omitempty"` // UID из внешнего календаря
	CreatedBy       uuid.UUID   `json:"created_by"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ForTeam проверяет видимость события для команды
func (e *Event) ForTeam(teamID uuid.UUID) bool {
	if len(e.TeamIDs) == 0 {
		return true
	}
	for _, id := range e.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// EventOccurrence представляет конкретное вхождение события в календаре
type EventOccurrence struct {
	Event        *Event     `json:"event"`
	Start        time.Time  `json:"start"`
	End          *time.Time `json:"end,omitempty"`
	RSVPDeadline *time.Time `json:"rsvp_deadline,omitempty"`
	DateKey      string     `json:"date_key"` // YYYY-MM-DD, ключ для RSVP
}
