package service

import (
	"context"
	"fmt"
	"time"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/recurrence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventStore хранилище событий для административных операций
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TeamChecker проверка существования команд
type TeamChecker interface {
	Exists(ctx context.Context, ids []uuid.UUID) (bool, error)
}

// Announcer рассылает уведомления об изменениях афиши. Реализация не должна
// блокировать вызывающего: отправка идёт в фоне.
type Announcer interface {
	EventCreated(e *model.Event)
	EventUpdated(e *model.Event)
	EventDeleted(e *model.Event)
	NewsPublished(p *model.NewsPost)
}

// EventInput входные данные для создания и правки события
type EventInput struct {
	Title           string
	Description     string
	Location        string
	MeetingPoint    string
	AllDay          bool
	StartAt         time.Time
	EndAt           *time.Time
	RSVPDeadline    *time.Time
	Recurrence      string
	RecurrenceUntil *time.Time
	TeamIDs         []uuid.UUID
}

// EventService отвечает за жизненный цикл событий: создание, правку и
// удаление. Читающие операции живут в CalendarService.
type EventService struct {
	events    EventStore
	teams     TeamChecker
	announcer Announcer
	zone      *time.Location
	logger    *zap.Logger
}

// NewEventService создаёт новый сервис событий. Announcer может быть nil,
// тогда уведомления не рассылаются.
func NewEventService(events EventStore, teams TeamChecker, announcer Announcer, zone *time.Location, logger *zap.Logger) *EventService {
	return &EventService{
		events:    events,
		teams:     teams,
		announcer: announcer,
		zone:      zone,
		logger:    logger,
	}
}

// Create создаёт событие. Доступно администраторам и тренерам.
func (s *EventService) Create(ctx context.Context, actor *model.Member, input EventInput) (*model.Event, error) {
	if !actor.CanManage() {
		return nil, fmt.Errorf("member is not allowed to manage events")
	}

	rule, err := s.validate(ctx, &input)
	if err != nil {
		return nil, err
	}

	event := &model.Event{
		Title:           input.Title,
		Description:     input.Description,
		Location:        input.Location,
		MeetingPoint:    input.MeetingPoint,
		AllDay:          input.AllDay,
		StartAt:         input.StartAt,
		EndAt:           input.EndAt,
		RSVPDeadline:    input.RSVPDeadline,
		Recurrence:      model.Recurrence(rule),
		RecurrenceUntil: input.RecurrenceUntil,
		TeamIDs:         input.TeamIDs,
		CreatedBy:       actor.ID,
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.logger.Info("Event created",
		zap.String("event_id", event.ID.String()),
		zap.String("title", event.Title),
		zap.String("recurrence", string(event.Recurrence)),
		zap.String("created_by", actor.ID.String()))

	if s.announcer != nil {
		s.announcer.EventCreated(event)
	}

	return event, nil
}

// Update правит событие. Импортированные события менять нельзя: их
// перезапишет следующая синхронизация.
func (s *EventService) Update(ctx context.Context, actor *model.Member, id uuid.UUID, input EventInput) (*model.Event, error) {
	if !actor.CanManage() {
		return nil, fmt.Errorf("member is not allowed to manage events")
	}

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event not found")
	}
	if event.ImportUID != nil {
		return nil, fmt.Errorf("imported event is read-only")
	}

	rule, err := s.validate(ctx, &input)
	if err != nil {
		return nil, err
	}

	event.Title = input.Title
	event.Description = input.Description
	event.Location = input.Location
	event.MeetingPoint = input.MeetingPoint
	event.AllDay = input.AllDay
	event.StartAt = input.StartAt
	event.EndAt = input.EndAt
	event.RSVPDeadline = input.RSVPDeadline
	event.Recurrence = model.Recurrence(rule)
	event.RecurrenceUntil = input.RecurrenceUntil
	event.TeamIDs = input.TeamIDs

	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	s.logger.Info("Event updated",
		zap.String("event_id", event.ID.String()),
		zap.String("title", event.Title))

	if s.announcer != nil {
		s.announcer.EventUpdated(event)
	}

	return event, nil
}

// Delete удаляет событие вместе с ответами участников
func (s *EventService) Delete(ctx context.Context, actor *model.Member, id uuid.UUID) error {
	if !actor.CanManage() {
		return fmt.Errorf("member is not allowed to manage events")
	}

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return fmt.Errorf("event not found")
	}

	if err := s.events.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	s.logger.Info("Event deleted",
		zap.String("event_id", id.String()),
		zap.String("title", event.Title))

	if s.announcer != nil {
		s.announcer.EventDeleted(event)
	}

	return nil
}

// Get возвращает событие по идентификатору
func (s *EventService) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event not found")
	}
	return event, nil
}

// validate проверяет входные данные, разбирает правило повторения и
// нормализует дату окончания повторения до календарного дня
func (s *EventService) validate(ctx context.Context, input *EventInput) (recurrence.Rule, error) {
	if input.Title == "" {
		return "", fmt.Errorf("event title is required")
	}
	if input.StartAt.IsZero() {
		return "", fmt.Errorf("event start is required")
	}
	if input.EndAt != nil && !input.EndAt.After(input.StartAt) {
		return "", fmt.Errorf("event end must be after start")
	}
	if input.RSVPDeadline != nil && input.RSVPDeadline.After(input.StartAt) {
		return "", fmt.Errorf("rsvp deadline must not be after event start")
	}

	rule, err := recurrence.ParseRule(input.Recurrence)
	if err != nil {
		return "", err
	}
	if input.RecurrenceUntil != nil {
		if !rule.Recurring() {
			return "", fmt.Errorf("recurrence end date requires a recurrence rule")
		}
		// Клиент присылает дату с произвольным смещением; границей служит
		// её календарный день в зоне клуба. Полночь UTC хранится в колонке
		// DATE и возвращается с теми же компонентами.
		u := input.RecurrenceUntil.In(s.zone)
		untilDay := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		input.RecurrenceUntil = &untilDay

		st := input.StartAt.In(s.zone)
		startDay := time.Date(st.Year(), st.Month(), st.Day(), 0, 0, 0, 0, time.UTC)
		if untilDay.Before(startDay) {
			return "", fmt.Errorf("recurrence end date is before event start")
		}
	}

	if len(input.TeamIDs) > 0 {
		ok, err := s.teams.Exists(ctx, input.TeamIDs)
		if err != nil {
			return "", fmt.Errorf("check teams: %w", err)
		}
		if !ok {
			return "", fmt.Errorf("team not found")
		}
	}

	return rule, nil
}
