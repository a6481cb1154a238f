package service

import (
	"context"
	"fmt"
	"time"

	"github.com/atlasov/club_portal/internal/clock"
	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/recurrence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RSVPPolicy определяет реакцию на повторный ответ тем же статусом
type RSVPPolicy string

const (
	// PolicyUpsert повторный ответ просто перезаписывает предыдущий
	PolicyUpsert RSVPPolicy = "upsert"
	// PolicyToggle повторный ответ тем же статусом снимает отметку
	PolicyToggle RSVPPolicy = "toggle"
)

// ResponseStore хранилище ответов участников
type ResponseStore interface {
	Get(ctx context.Context, eventID uuid.UUID, date time.Time, memberID uuid.UUID) (*model.EventResponse, error)
	Upsert(ctx context.Context, response *model.EventResponse) error
	Delete(ctx context.Context, eventID uuid.UUID, date time.Time, memberID uuid.UUID) error
	ListForOccurrence(ctx context.Context, eventID uuid.UUID, date time.Time) ([]*model.EventResponse, error)
}

// EventGetter чтение события по идентификатору
type EventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
}

// RSVPService принимает и сводит ответы участников на вхождения событий.
// Ответ привязан к дате вхождения, а не к событию целиком, поэтому каждое
// повторение собирает собственный список.
type RSVPService struct {
	responses ResponseStore
	events    EventGetter
	policy    RSVPPolicy
	clock     clock.Clock
	zone      *time.Location
	logger    *zap.Logger
}

// NewRSVPService создаёт новый сервис ответов
func NewRSVPService(responses ResponseStore, events EventGetter, policy RSVPPolicy, clk clock.Clock, zone *time.Location, logger *zap.Logger) *RSVPService {
	return &RSVPService{
		responses: responses,
		events:    events,
		policy:    policy,
		clock:     clk,
		zone:      zone,
		logger:    logger,
	}
}

// Respond сохраняет ответ участника на вхождение события. При политике
// toggle повторный ответ тем же статусом снимает отметку, тогда
// возвращается nil. Дата должна совпадать с реальным вхождением события.
func (s *RSVPService) Respond(ctx context.Context, eventID uuid.UUID, date time.Time, member *model.Member, status model.ResponseStatus, comment string) (*model.EventResponse, error) {
	switch status {
	case model.ResponseAttending, model.ResponseDeclined, model.ResponseUncertain:
	default:
		return nil, fmt.Errorf("unknown response status: %q", status)
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event not found")
	}

	day := DateOnly(date, s.zone)

	occ, err := s.occurrenceOn(event, day)
	if err != nil {
		return nil, err
	}

	// Администраторы и тренеры отвечают и после срока
	if occ.RSVPDeadline != nil && s.clock.Now().After(*occ.RSVPDeadline) && !member.CanManage() {
		return nil, fmt.Errorf("rsvp deadline passed")
	}

	if s.policy == PolicyToggle {
		existing, err := s.responses.Get(ctx, eventID, day, member.ID)
		if err != nil {
			return nil, fmt.Errorf("get existing response: %w", err)
		}
		if existing != nil && existing.Status == status {
			if err := s.responses.Delete(ctx, eventID, day, member.ID); err != nil {
				return nil, fmt.Errorf("delete response: %w", err)
			}
			s.logger.Info("Response toggled off",
				zap.String("event_id", eventID.String()),
				zap.String("date", day.Format("2006-01-02")),
				zap.String("member_id", member.ID.String()))
			return nil, nil
		}
	}

	response := &model.EventResponse{
		EventID:  eventID,
		Date:     day,
		MemberID: member.ID,
		Status:   status,
		Comment:  comment,
	}
	if err := s.responses.Upsert(ctx, response); err != nil {
		return nil, fmt.Errorf("save response: %w", err)
	}

	s.logger.Info("Response saved",
		zap.String("event_id", eventID.String()),
		zap.String("date", day.Format("2006-01-02")),
		zap.String("member_id", member.ID.String()),
		zap.String("status", string(status)))

	return response, nil
}

// Summary собирает сводку ответов по вхождению, сгруппированную по статусам
func (s *RSVPService) Summary(ctx context.Context, eventID uuid.UUID, date time.Time, memberID uuid.UUID) (*model.ResponseSummary, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event not found")
	}

	day := DateOnly(date, s.zone)

	responses, err := s.responses.ListForOccurrence(ctx, eventID, day)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	summary := &model.ResponseSummary{
		EventID: eventID,
		Date:    day.Format("2006-01-02"),
	}
	for _, response := range responses {
		switch response.Status {
		case model.ResponseAttending:
			summary.Attending = append(summary.Attending, response)
		case model.ResponseDeclined:
			summary.Declined = append(summary.Declined, response)
		case model.ResponseUncertain:
			summary.Uncertain = append(summary.Uncertain, response)
		}
		if response.MemberID == memberID {
			summary.Own = response
		}
	}

	return summary, nil
}

// occurrenceOn проверяет, что у события есть вхождение в указанный день
func (s *RSVPService) occurrenceOn(event *model.Event, day time.Time) (*recurrence.Occurrence, error) {
	window := recurrence.Window{
		From: day,
		To:   day.AddDate(0, 0, 1).Add(-time.Nanosecond),
	}
	res := recurrence.Expand(EventPattern(event, s.zone), window)
	if len(res.Occurrences) == 0 {
		return nil, fmt.Errorf("event has no occurrence on %s", day.Format("2006-01-02"))
	}

	occ := res.Occurrences[0]
	return &occ, nil
}

// DateOnly отбрасывает время, оставляя полночь календарного дня в зоне клуба.
// Компоненты даты берутся как есть: значения из колонок DATE приходят
// полуночью UTC и не должны сдвигаться конвертацией зоны.
func DateOnly(t time.Time, zone *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, zone)
}
