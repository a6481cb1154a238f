package model

import (
	"time"

	"github.com/google/uuid"
)

type ReminderKind string

const (
	ReminderRSVPDeadline ReminderKind = "rsvp_deadline"
)

// ReminderMark фиксирует отправленное напоминание, чтобы не дублировать его
// при следующем проходе планировщика
type ReminderMark struct {
	EventID uuid.UUID    `json:"event_id"`
	Date    time.Time    `json:"date"`
	Kind    ReminderKind `json:"kind"`
	SentAt  time.Time    `json:"sent_at"`
}
