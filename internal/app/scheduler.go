package app

import (
	"context"
	"time"

	"github.com/atlasov/club_portal/internal/clock"
	"github.com/atlasov/club_portal/internal/model"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// За сколько до срока ответа уходит напоминание
const reminderLead = 24 * time.Hour

// Предел времени одной фоновой задачи
const jobTimeout = 5 * time.Minute

// OccurrenceSource календарные выборки для фоновых задач
type OccurrenceSource interface {
	Upcoming(ctx context.Context, limit int, teamID *uuid.UUID) ([]*model.EventOccurrence, error)
	Week(ctx context.Context, anchor time.Time, teamID *uuid.UUID) ([]*model.EventOccurrence, error)
}

// AttendanceSource сводка ответов по вхождению
type AttendanceSource interface {
	Summary(ctx context.Context, eventID uuid.UUID, date time.Time, memberID uuid.UUID) (*model.ResponseSummary, error)
}

// ReminderLog отметки об отправленных напоминаниях
type ReminderLog interface {
	WasSent(ctx context.Context, eventID uuid.UUID, date time.Time, kind model.ReminderKind) (bool, error)
	MarkSent(ctx context.Context, eventID uuid.UUID, date time.Time, kind model.ReminderKind) error
}

// TeamSource команды для легенды афиши
type TeamSource interface {
	List(ctx context.Context, includeInactive bool) ([]*model.Team, error)
}

// ChannelNotifier исходящие сообщения в канал клуба
type ChannelNotifier interface {
	Reminder(ctx context.Context, occ *model.EventOccurrence, attending int) error
	Digest(ctx context.Context, occurrences []*model.EventOccurrence) error
	DigestPoster(ctx context.Context, caption string, png []byte) error
}

// PosterRenderer картинка афиши недели
type PosterRenderer interface {
	WeekPoster(anchor time.Time, occurrences []*model.EventOccurrence, teams []*model.Team) ([]byte, error)
}

// FeedSyncer импорт внешних календарей
type FeedSyncer interface {
	SyncAll(ctx context.Context) error
}

// SchedulerConfig расписание фоновых задач
type SchedulerConfig struct {
	SweepInterval time.Duration // период прохода напоминаний
	DigestCron    string        // cron выражение еженедельной афиши
	ImportCron    string        // cron выражение импорта, пустое отключает
}

// Scheduler управляет фоновыми задачами портала: напоминаниями о сроке
// ответа, еженедельной афишей и импортом внешних календарей
type Scheduler struct {
	occurrences OccurrenceSource
	attendance  AttendanceSource
	reminders   ReminderLog
	teams       TeamSource
	notify      ChannelNotifier
	posters     PosterRenderer
	importer    FeedSyncer

	cfg     SchedulerConfig
	clock   clock.Clock
	zone    *time.Location
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context

	stopChan chan struct{}
}

// NewScheduler создаёт новый планировщик. Notify и importer могут быть nil:
// без канала пропускаются напоминания и афиша, без фидов - импорт.
func NewScheduler(
	occurrences OccurrenceSource,
	attendance AttendanceSource,
	reminders ReminderLog,
	teams TeamSource,
	notify ChannelNotifier,
	posters PosterRenderer,
	importer FeedSyncer,
	cfg SchedulerConfig,
	clk clock.Clock,
	zone *time.Location,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		occurrences: occurrences,
		attendance:  attendance,
		reminders:   reminders,
		teams:       teams,
		notify:      notify,
		posters:     posters,
		importer:    importer,
		cfg:         cfg,
		clock:       clk,
		zone:        zone,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting background scheduler")
	s.baseCtx = ctx

	if s.notify != nil {
		go s.runReminderSweep(ctx)
	}

	s.cron = cron.New(cron.WithLocation(s.zone))

	if s.notify != nil && s.cfg.DigestCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.DigestCron, s.runDigest); err != nil {
			return err
		}
	}
	if s.importer != nil && s.cfg.ImportCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.ImportCron, s.runImport); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// runReminderSweep периодически ищет вхождения с закрывающимся сроком ответа
func (s *Scheduler) runReminderSweep(ctx context.Context) {
	// Первый проход сразу при старте
	s.sweepReminders(ctx)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepReminders(ctx)
		case <-s.stopChan:
			s.logger.Info("Reminder sweep stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Reminder sweep cancelled")
			return
		}
	}
}

// sweepReminders отправляет напоминания о вхождениях, чей срок ответа
// закрывается в ближайшие сутки. Отметка пишется после успешной отправки,
// поэтому неудачная попытка повторится на следующем проходе.
func (s *Scheduler) sweepReminders(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	occurrences, err := s.occurrences.Upcoming(ctx, 0, nil)
	if err != nil {
		s.logger.Error("Failed to load upcoming occurrences", zap.Error(err))
		return
	}

	now := s.clock.Now().In(s.zone)
	sent := 0
	for _, occ := range due(occurrences, now) {
		day := occurrenceDay(occ, s.zone)

		already, err := s.reminders.WasSent(ctx, occ.Event.ID, day, model.ReminderRSVPDeadline)
		if err != nil {
			s.logger.Error("Failed to check reminder mark", zap.Error(err))
			continue
		}
		if already {
			continue
		}

		attending := 0
		if summary, err := s.attendance.Summary(ctx, occ.Event.ID, day, uuid.Nil); err == nil {
			attending = len(summary.Attending)
		}

		if err := s.notify.Reminder(ctx, occ, attending); err != nil {
			s.logger.Error("Failed to send reminder",
				zap.String("event_id", occ.Event.ID.String()),
				zap.Error(err))
			continue
		}
		if err := s.reminders.MarkSent(ctx, occ.Event.ID, day, model.ReminderRSVPDeadline); err != nil {
			s.logger.Error("Failed to mark reminder sent", zap.Error(err))
			continue
		}
		sent++
	}

	if sent > 0 {
		s.logger.Info("Reminder sweep completed", zap.Int("sent", sent))
	}
}

// due отбирает вхождения, чей срок ответа попадает в окно напоминания
func due(occurrences []*model.EventOccurrence, now time.Time) []*model.EventOccurrence {
	var out []*model.EventOccurrence
	for _, occ := range occurrences {
		if occ.RSVPDeadline == nil {
			continue
		}
		deadline := *occ.RSVPDeadline
		if deadline.Before(now) || deadline.After(now.Add(reminderLead)) {
			continue
		}
		out = append(out, occ)
	}
	return out
}

// occurrenceDay возвращает календарный день вхождения, ключ отметок и ответов
func occurrenceDay(occ *model.EventOccurrence, zone *time.Location) time.Time {
	local := occ.Start.In(zone)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// runDigest отправляет афишу текущей недели: картинку и текст по дням
func (s *Scheduler) runDigest() {
	ctx, cancel := context.WithTimeout(s.baseCtx, jobTimeout)
	defer cancel()

	now := s.clock.Now().In(s.zone)

	occurrences, err := s.occurrences.Week(ctx, now, nil)
	if err != nil {
		s.logger.Error("Failed to load week occurrences for digest", zap.Error(err))
		return
	}

	teams, err := s.teams.List(ctx, false)
	if err != nil {
		s.logger.Error("Failed to load teams for digest", zap.Error(err))
		teams = nil
	}

	if png, err := s.posters.WeekPoster(now, occurrences, teams); err != nil {
		s.logger.Error("Failed to render week poster", zap.Error(err))
	} else if err := s.notify.DigestPoster(ctx, "📬 <b>Афиша недели</b>", png); err != nil {
		s.logger.Error("Failed to send week poster", zap.Error(err))
	}

	if err := s.notify.Digest(ctx, occurrences); err != nil {
		s.logger.Error("Failed to send digest", zap.Error(err))
		return
	}

	s.logger.Info("Weekly digest sent", zap.Int("occurrences", len(occurrences)))
}

// runImport синхронизирует внешние календари
func (s *Scheduler) runImport() {
	ctx, cancel := context.WithTimeout(s.baseCtx, jobTimeout)
	defer cancel()

	if err := s.importer.SyncAll(ctx); err != nil {
		s.logger.Error("Feed import failed", zap.Error(err))
		return
	}
	s.logger.Info("Feed import completed")
}
