package service

import (
	"context"
	"fmt"
	"time"

	"github.com/atlasov/club_portal/internal/clock"
	"github.com/atlasov/club_portal/internal/config"
	"github.com/atlasov/club_portal/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ImportedEventStore запись импортированных событий
type ImportedEventStore interface {
	UpsertImported(ctx context.Context, e *model.Event) error
	DeleteImportedExcept(ctx context.Context, uidPrefix string, keep []string, since time.Time) (int64, error)
}

// FeedSource загрузка и разбор внешнего календаря
type FeedSource interface {
	Fetch(ctx context.Context, feed config.Feed, from, to time.Time) ([]*model.Event, error)
}

// ImportService синхронизирует события из внешних ICS календарей.
// Фиды обрабатываются параллельно и независимо: сломанный фид пишется
// в лог и не мешает остальным.
type ImportService struct {
	events  ImportedEventStore
	fetcher FeedSource
	feeds   *config.Feeds
	clock   clock.Clock
	logger  *zap.Logger
}

// NewImportService создаёт новый сервис импорта
func NewImportService(events ImportedEventStore, fetcher FeedSource, feeds *config.Feeds, clk clock.Clock, logger *zap.Logger) *ImportService {
	return &ImportService{
		events:  events,
		fetcher: fetcher,
		feeds:   feeds,
		clock:   clk,
		logger:  logger,
	}
}

// SyncAll синхронизирует все настроенные фиды
func (s *ImportService) SyncAll(ctx context.Context) error {
	if len(s.feeds.Sources) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, feed := range s.feeds.Sources {
		feed := feed
		g.Go(func() error {
			if err := s.SyncFeed(ctx, feed); err != nil {
				s.logger.Error("Feed sync failed",
					zap.String("feed", feed.ID),
					zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// SyncFeed синхронизирует один фид: вносит события из календаря и удаляет
// те, что из него пропали. События за пределами горизонта не трогаются.
func (s *ImportService) SyncFeed(ctx context.Context, feed config.Feed) error {
	now := s.clock.Now()
	from := now.AddDate(0, 0, -1)
	to := now.AddDate(0, 0, s.feeds.HorizonDays)

	fetched, err := s.fetcher.Fetch(ctx, feed, from, to)
	if err != nil {
		return fmt.Errorf("fetch feed %s: %w", feed.ID, err)
	}

	keep := make([]string, 0, len(fetched))
	for _, event := range fetched {
		if event.ImportUID == nil {
			return fmt.Errorf("feed %s: fetched event without import uid", feed.ID)
		}
		if err := s.events.UpsertImported(ctx, event); err != nil {
			return fmt.Errorf("upsert imported event %s: %w", *event.ImportUID, err)
		}
		keep = append(keep, *event.ImportUID)
	}

	// Нижняя граница не даёт чистке выйти за окно выборки: прошедшие
	// матчи и история ответов на них переживают синхронизацию
	removed, err := s.events.DeleteImportedExcept(ctx, feed.ID+":", keep, from)
	if err != nil {
		return fmt.Errorf("prune feed %s: %w", feed.ID, err)
	}

	s.logger.Info("Feed synced",
		zap.String("feed", feed.ID),
		zap.Int("imported", len(fetched)),
		zap.Int64("removed", removed))

	return nil
}
