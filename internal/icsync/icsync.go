// Package icsync загружает внешние ICS календари и переводит их события
// в события портала. Повторяющиеся события разворачиваются заранее в
// границах горизонта импорта: портал хранит каждое вхождение отдельной
// записью и перезаписывает их при следующей синхронизации.
package icsync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/atlasov/club_portal/internal/config"
	"github.com/atlasov/club_portal/internal/model"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"
)

// Предел вхождений одного правила в границах горизонта
const maxRuleOccurrences = 500

// Client реализует service.FeedSource
type Client struct {
	http   *http.Client
	zone   *time.Location
	logger *zap.Logger
}

// NewClient создаёт новый клиент импорта
func NewClient(zone *time.Location, logger *zap.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: 15 * time.Second},
		zone:   zone,
		logger: logger,
	}
}

// Fetch загружает календарь фида и возвращает его события в окне импорта
func (c *Client) Fetch(ctx context.Context, feed config.Feed, from, to time.Time) ([]*model.Event, error) {
	body, err := c.download(ctx, feed.URL)
	if err != nil {
		return nil, err
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var teamIDs []uuid.UUID
	if feed.TeamID != "" {
		teamID, err := uuid.Parse(feed.TeamID)
		if err != nil {
			c.logger.Warn("Feed team id is not a valid uuid, events stay club-wide",
				zap.String("feed", feed.ID),
				zap.String("team_id", feed.TeamID))
		} else {
			teamIDs = []uuid.UUID{teamID}
		}
	}

	var events []*model.Event
	for _, ve := range cal.Events() {
		converted, err := c.convert(ve, feed, teamIDs, from, to)
		if err != nil {
			// Один кривой VEVENT не должен ронять весь фид
			c.logger.Warn("Skipping calendar event",
				zap.String("feed", feed.ID),
				zap.Error(err))
			continue
		}
		events = append(events, converted...)
	}

	c.logger.Info("Calendar fetched",
		zap.String("feed", feed.ID),
		zap.Int("events", len(events)))

	return events, nil
}

// download выполняет запрос с повторами на сетевых ошибках и ответах 5xx
func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("fetch calendar: %s", resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetch calendar: %s", resp.Status)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}

// convert переводит один VEVENT в события портала. Правило RRULE даёт
// отдельное событие на каждое вхождение внутри окна.
func (c *Client) convert(ve *ical.VEvent, feed config.Feed, teamIDs []uuid.UUID, from, to time.Time) ([]*model.Event, error) {
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return nil, fmt.Errorf("event without uid")
	}
	uid := uidProp.Value

	// Переопределения отдельных вхождений не поддерживаем
	if ve.GetProperty("RECURRENCE-ID") != nil {
		return nil, fmt.Errorf("event %s overrides a recurring instance", uid)
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return nil, fmt.Errorf("event %s: start: %w", uid, err)
	}

	var duration time.Duration
	if end, err := ve.GetEndAt(); err == nil && end.After(start) {
		duration = end.Sub(start)
	}

	allDay := false
	if dtStart := ve.GetProperty(ical.ComponentPropertyDtStart); dtStart != nil {
		if params := dtStart.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				allDay = true
			}
		}
		if !strings.Contains(dtStart.Value, "T") {
			allDay = true
		}
	}

	title := "(без названия)"
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil && p.Value != "" {
		title = p.Value
	}
	description := ""
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		description = p.Value
	}
	location := ""
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		location = p.Value
	}

	build := func(importUID string, occStart time.Time) *model.Event {
		event := &model.Event{
			Title:       title,
			Description: description,
			Location:    location,
			AllDay:      allDay,
			StartAt:     occStart,
			Recurrence:  model.RecurrenceNone,
			TeamIDs:     teamIDs,
			ImportUID:   &importUID,
		}
		if allDay {
			day := occStart.In(c.zone)
			event.StartAt = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, c.zone)
		} else if duration > 0 {
			end := occStart.Add(duration)
			event.EndAt = &end
		}
		return event
	}

	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil {
		end := start.Add(duration)
		if end.Before(from) || start.After(to) {
			return nil, nil
		}
		return []*model.Event{build(feed.ID+":"+uid, start)}, nil
	}

	rule, err := rrule.StrToRRule(rruleProp.Value)
	if err != nil {
		return nil, fmt.Errorf("event %s: rrule %q: %w", uid, rruleProp.Value, err)
	}
	rule.DTStart(start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range c.exDates(ve, start) {
		set.ExDate(ex)
	}

	starts := set.Between(from.In(start.Location()), to.In(start.Location()), true)
	if len(starts) > maxRuleOccurrences {
		c.logger.Warn("Recurrence rule truncated",
			zap.String("feed", feed.ID),
			zap.String("uid", uid),
			zap.Int("cap", maxRuleOccurrences))
		starts = starts[:maxRuleOccurrences]
	}

	events := make([]*model.Event, 0, len(starts))
	for _, occStart := range starts {
		importUID := fmt.Sprintf("%s:%s:%s", feed.ID, uid, occStart.UTC().Format("20060102T150405Z"))
		events = append(events, build(importUID, occStart))
	}
	return events, nil
}

// exDates собирает даты-исключения в зоне начала события
func (c *Client) exDates(ve *ical.VEvent, start time.Time) []time.Time {
	var out []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, start.Location()); err == nil {
				out = append(out, t.In(start.Location()))
			}
		}
	}
	return out
}

// parseICSTime разбирает базовые формы даты и даты-времени ICS
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
