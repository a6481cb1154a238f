package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/atlasov/club_portal/internal/model"
)

// EventTemplates шаблоны событий, чьё окно пересекает интервал экспорта
type EventTemplates interface {
	GetForWindow(ctx context.Context, from, to time.Time) ([]*model.Event, error)
}

const (
	feedPastHorizon  = 30 * 24 * time.Hour
	feedAheadHorizon = 365 * 24 * time.Hour
)

// handleCalendarFeed отдаёт события клуба календарным фидом. Приложения
// календарей не умеют слать заголовки, поэтому токен принимается и
// параметром token в адресе подписки.
func (s *Server) handleCalendarFeed(w http.ResponseWriter, r *http.Request) {
	if memberFrom(r) == nil {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeError(w, http.StatusUnauthorized, "member token required")
			return
		}
		member, err := s.members.Identify(r.Context(), token)
		if err != nil {
			s.serviceError(w, err)
			return
		}
		if member == nil {
			writeError(w, http.StatusUnauthorized, "member token required")
			return
		}
	}

	now := s.clock.Now()
	events, err := s.templates.GetForWindow(r.Context(), now.Add(-feedPastHorizon), now.Add(feedAheadHorizon))
	if err != nil {
		s.serviceError(w, err)
		return
	}

	cal := buildCalendarFeed(s.clubName, events, s.zone, now)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="club.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(cal.Serialize()))
}

// buildCalendarFeed собирает VCALENDAR. Шаблон уходит одним VEVENT с
// RRULE, разворачивает его уже приложение подписчика.
func buildCalendarFeed(clubName string, events []*model.Event, zone *time.Location, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//" + clubName + "//club-portal//EN")

	for _, e := range events {
		ve := cal.AddEvent(fmt.Sprintf("%s@club-portal", e.ID))
		ve.SetDtStampTime(now)
		ve.SetSummary(e.Title)
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}

		if e.AllDay {
			start := e.StartAt.In(zone)
			ve.SetAllDayStartAt(start)
			// DTEND у событий на весь день исключающий, следующий день
			end := start.AddDate(0, 0, 1)
			if e.EndAt != nil {
				end = e.EndAt.In(zone).AddDate(0, 0, 1)
			}
			ve.SetAllDayEndAt(end)
		} else {
			ve.SetStartAt(e.StartAt)
			if e.EndAt != nil {
				ve.SetEndAt(*e.EndAt)
			}
		}

		if rule := rruleFor(e, zone); rule != "" {
			ve.AddRrule(rule)
		}
	}

	return cal
}

// rruleFor переводит правило повторения в RRULE. Месячное правило с
// числами 29-31 получает связку BYMONTHDAY и BYSETPOS=-1: в коротких
// месяцах берётся последний существующий день, как и в календаре портала.
func rruleFor(e *model.Event, zone *time.Location) string {
	var rule string
	switch e.Recurrence {
	case model.RecurrenceWeekly:
		rule = "FREQ=WEEKLY"
	case model.RecurrenceBiweekly:
		rule = "FREQ=WEEKLY;INTERVAL=2"
	case model.RecurrenceMonthly:
		day := e.StartAt.In(zone).Day()
		if day >= 29 {
			days := make([]string, 0, day-27)
			for d := 28; d <= day; d++ {
				days = append(days, strconv.Itoa(d))
			}
			rule = "FREQ=MONTHLY;BYMONTHDAY=" + strings.Join(days, ",") + ";BYSETPOS=-1"
		} else {
			rule = "FREQ=MONTHLY"
		}
	default:
		return ""
	}

	if e.RecurrenceUntil != nil {
		// Дата конца хранится компонентами, зонной конвертации не нужно
		u := *e.RecurrenceUntil
		if e.AllDay {
			rule += ";UNTIL=" + u.Format("20060102")
		} else {
			endOfDay := time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 0, zone)
			rule += ";UNTIL=" + endOfDay.UTC().Format("20060102T150405Z")
		}
	}

	return rule
}
