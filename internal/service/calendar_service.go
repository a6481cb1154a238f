package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/atlasov/club_portal/internal/clock"
	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/recurrence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Горизонт ленты ближайших событий
const upcomingHorizonDays = 90

// EventSource выборка событий-кандидатов для календарных представлений
type EventSource interface {
	GetForWindow(ctx context.Context, from, to time.Time) ([]*model.Event, error)
}

// CalendarService строит календарные представления: месяц, неделю и ленту
// ближайших событий. Повторяющиеся события разворачиваются в конкретные
// вхождения на лету, ничего не записывая обратно.
type CalendarService struct {
	events EventSource
	clock  clock.Clock
	zone   *time.Location
	logger *zap.Logger
}

// NewCalendarService создаёт новый сервис календаря
func NewCalendarService(events EventSource, clk clock.Clock, zone *time.Location, logger *zap.Logger) *CalendarService {
	return &CalendarService{
		events: events,
		clock:  clk,
		zone:   zone,
		logger: logger,
	}
}

// Month возвращает вхождения календарного месяца
func (s *CalendarService) Month(ctx context.Context, year int, month time.Month, teamID *uuid.UUID) ([]*model.EventOccurrence, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, s.zone)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return s.expandWindow(ctx, from, to, teamID)
}

// Week возвращает вхождения недели (понедельник-воскресенье), содержащей дату
func (s *CalendarService) Week(ctx context.Context, anchor time.Time, teamID *uuid.UUID) ([]*model.EventOccurrence, error) {
	from := StartOfWeek(anchor.In(s.zone))
	to := from.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return s.expandWindow(ctx, from, to, teamID)
}

// Upcoming возвращает ближайшие вхождения, начиная с текущего момента
func (s *CalendarService) Upcoming(ctx context.Context, limit int, teamID *uuid.UUID) ([]*model.EventOccurrence, error) {
	now := s.clock.Now().In(s.zone)

	occurrences, err := s.expandWindow(ctx, now, now.AddDate(0, 0, upcomingHorizonDays), teamID)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(occurrences) > limit {
		occurrences = occurrences[:limit]
	}
	return occurrences, nil
}

// expandWindow получает события-кандидаты, фильтрует по команде и
// разворачивает каждое внутри окна
func (s *CalendarService) expandWindow(ctx context.Context, from, to time.Time, teamID *uuid.UUID) ([]*model.EventOccurrence, error) {
	events, err := s.events.GetForWindow(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("get events for window: %w", err)
	}

	var occurrences []*model.EventOccurrence
	for _, event := range events {
		if teamID != nil && !event.ForTeam(*teamID) {
			continue
		}

		res := recurrence.Expand(EventPattern(event, s.zone), recurrence.Window{From: from, To: to})
		if res.Truncated {
			s.logger.Warn("Occurrence expansion truncated",
				zap.String("event_id", event.ID.String()),
				zap.Int("cap", recurrence.MaxIterations))
		}

		for _, occ := range res.Occurrences {
			occurrences = append(occurrences, &model.EventOccurrence{
				Event:        event,
				Start:        occ.Start,
				End:          occ.End,
				RSVPDeadline: occ.RSVPDeadline,
				DateKey:      occ.Start.In(s.zone).Format("2006-01-02"),
			})
		}
	}

	sort.Slice(occurrences, func(i, j int) bool {
		if occurrences[i].Start.Equal(occurrences[j].Start) {
			return occurrences[i].Event.Title < occurrences[j].Event.Title
		}
		return occurrences[i].Start.Before(occurrences[j].Start)
	})

	return occurrences, nil
}

// EventPattern переводит событие в шаблон разворота. Времена приводятся к
// зоне клуба, чтобы шаг повторения сохранял местное время через переходы
// на летнее время.
func EventPattern(e *model.Event, zone *time.Location) recurrence.Pattern {
	p := recurrence.Pattern{
		Start: e.StartAt.In(zone),
		Rule:  recurrence.Rule(e.Recurrence),
	}
	if e.EndAt != nil {
		end := e.EndAt.In(zone)
		p.End = &end
	}
	if e.RSVPDeadline != nil {
		deadline := e.RSVPDeadline.In(zone)
		p.RSVPDeadline = &deadline
	}
	if e.RecurrenceUntil != nil {
		// Дата без времени: берём компоненты как есть, без сдвига зоны
		u := *e.RecurrenceUntil
		until := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, zone)
		p.Until = &until
	}
	return p
}

// StartOfWeek нормализует дату к понедельнику её недели
func StartOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := int(day.Weekday()) - 1
	if day.Weekday() == time.Sunday {
		offset = 6
	}
	return day.AddDate(0, 0, -offset)
}
