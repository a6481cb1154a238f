package service

import (
	"context"
	"testing"
	"time"

	"github.com/atlasov/club_portal/internal/clock"
	"github.com/atlasov/club_portal/internal/config"
	"github.com/atlasov/club_portal/internal/model"
	"go.uber.org/zap"
)

// fakeImportedStore воспроизводит контракт ImportedEventStore: чистка
// не трогает события, начавшиеся раньше since.
type fakeImportedStore struct {
	byUID      map[string]*model.Event
	pruneSince time.Time
	pruneKeep  []string
}

func newFakeImportedStore(events ...*model.Event) *fakeImportedStore {
	f := &fakeImportedStore{byUID: make(map[string]*model.Event)}
	for _, e := range events {
		f.byUID[*e.ImportUID] = e
	}
	return f
}

func (f *fakeImportedStore) UpsertImported(_ context.Context, e *model.Event) error {
	f.byUID[*e.ImportUID] = e
	return nil
}

func (f *fakeImportedStore) DeleteImportedExcept(_ context.Context, uidPrefix string, keep []string, since time.Time) (int64, error) {
	f.pruneSince = since
	f.pruneKeep = keep

	kept := make(map[string]bool, len(keep))
	for _, uid := range keep {
		kept[uid] = true
	}

	var removed int64
	for uid, e := range f.byUID {
		if len(uid) < len(uidPrefix) || uid[:len(uidPrefix)] != uidPrefix {
			continue
		}
		if kept[uid] || e.StartAt.Before(since) {
			continue
		}
		delete(f.byUID, uid)
		removed++
	}
	return removed, nil
}

type fakeFeedSource struct {
	events []*model.Event
}

func (f *fakeFeedSource) Fetch(_ context.Context, _ config.Feed, _, _ time.Time) ([]*model.Event, error) {
	return f.events, nil
}

func importedEvent(uid string, start time.Time) *model.Event {
	return &model.Event{
		Title:      "Матч лиги",
		StartAt:    start,
		Recurrence: model.RecurrenceNone,
		ImportUID:  &uid,
	}
}

func TestImportServiceSyncFeed(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	feed := config.Feed{ID: "liga", Name: "Лига", URL: "http://example.test/liga.ics"}
	feeds := &config.Feeds{HorizonDays: 90, Sources: []config.Feed{feed}}

	past := importedEvent("liga:game1:20240101T150000Z", time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC))
	stale := importedEvent("liga:game2:20240615T150000Z", time.Date(2024, 6, 15, 15, 0, 0, 0, time.UTC))
	current := importedEvent("liga:game3:20240622T150000Z", time.Date(2024, 6, 22, 15, 0, 0, 0, time.UTC))

	store := newFakeImportedStore(past, stale, current)
	fetcher := &fakeFeedSource{events: []*model.Event{current}}

	svc := NewImportService(store, fetcher, feeds, clock.NewFixed(now), zap.NewNop())

	if err := svc.SyncFeed(context.Background(), feed); err != nil {
		t.Fatalf("SyncFeed: %v", err)
	}

	// Чистка ограничена началом окна выборки
	wantSince := now.AddDate(0, 0, -1)
	if !store.pruneSince.Equal(wantSince) {
		t.Errorf("prune since = %v, want %v", store.pruneSince, wantSince)
	}
	if len(store.pruneKeep) != 1 || store.pruneKeep[0] != *current.ImportUID {
		t.Errorf("prune keep = %v, want [%s]", store.pruneKeep, *current.ImportUID)
	}

	// Прошедший матч остаётся историей, пропавший из фида внутри окна удалён
	if _, ok := store.byUID[*past.ImportUID]; !ok {
		t.Error("past imported event was pruned")
	}
	if _, ok := store.byUID[*stale.ImportUID]; ok {
		t.Error("stale in-window event survived the prune")
	}
	if _, ok := store.byUID[*current.ImportUID]; !ok {
		t.Error("current event missing after sync")
	}
}

func TestImportServiceSyncAllEmpty(t *testing.T) {
	svc := NewImportService(newFakeImportedStore(), &fakeFeedSource{}, &config.Feeds{}, clock.NewFixed(time.Now()), zap.NewNop())
	if err := svc.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
}
