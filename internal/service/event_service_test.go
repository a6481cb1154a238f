package service

import (
	"context"
	"testing"
	"time"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/recurrence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeEventStore struct {
	byID    map[uuid.UUID]*model.Event
	deleted []uuid.UUID
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{byID: make(map[uuid.UUID]*model.Event)}
}

func (f *fakeEventStore) Create(_ context.Context, e *model.Event) error {
	e.ID = uuid.New()
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEventStore) GetByID(_ context.Context, id uuid.UUID) (*model.Event, error) {
	return f.byID[id], nil
}

func (f *fakeEventStore) Update(_ context.Context, e *model.Event) error {
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEventStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeTeamChecker struct {
	exists bool
}

func (f *fakeTeamChecker) Exists(_ context.Context, _ []uuid.UUID) (bool, error) {
	return f.exists, nil
}

type fakeAnnouncer struct {
	created int
	updated int
	deleted int
	news    int
}

func (f *fakeAnnouncer) EventCreated(*model.Event) { f.created++ }

func (f *fakeAnnouncer) EventUpdated(*model.Event) { f.updated++ }

func (f *fakeAnnouncer) EventDeleted(*model.Event) { f.deleted++ }

func (f *fakeAnnouncer) NewsPublished(*model.NewsPost) { f.news++ }

func validEventInput() EventInput {
	return EventInput{
		Title:      "Тренировка",
		StartAt:    time.Date(2024, 6, 4, 18, 0, 0, 0, time.UTC),
		Recurrence: "weekly",
	}
}

func TestEventServiceCreate(t *testing.T) {
	store := newFakeEventStore()
	announcer := &fakeAnnouncer{}
	svc := NewEventService(store, &fakeTeamChecker{exists: true}, announcer, time.UTC, zap.NewNop())
	staff := testMember(model.RoleStaff)

	event, err := svc.Create(context.Background(), staff, validEventInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if event.ID == uuid.Nil {
		t.Error("event ID is not set")
	}
	if event.CreatedBy != staff.ID {
		t.Errorf("created_by = %s, want %s", event.CreatedBy, staff.ID)
	}
	if event.Recurrence != model.RecurrenceWeekly {
		t.Errorf("recurrence = %q, want weekly", event.Recurrence)
	}
	if announcer.created != 1 {
		t.Errorf("announcer called %d times, want 1", announcer.created)
	}
}

func TestEventServiceCreateValidation(t *testing.T) {
	until := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	lateDeadline := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	earlyEnd := time.Date(2024, 6, 4, 17, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		actor  *model.Member
		teams  bool
		mutate func(*EventInput)
	}{
		{
			name:   "regular member is rejected",
			actor:  testMember(model.RoleMember),
			teams:  true,
			mutate: func(*EventInput) {},
		},
		{
			name:   "missing title",
			actor:  testMember(model.RoleStaff),
			teams:  true,
			mutate: func(in *EventInput) { in.Title = "" },
		},
		{
			name:   "missing start",
			actor:  testMember(model.RoleStaff),
			teams:  true,
			mutate: func(in *EventInput) { in.StartAt = time.Time{} },
		},
		{
			name:   "end before start",
			actor:  testMember(model.RoleStaff),
			teams:  true,
			mutate: func(in *EventInput) { in.EndAt = &earlyEnd },
		},
		{
			name:   "deadline after start",
			actor:  testMember(model.RoleStaff),
			teams:  true,
			mutate: func(in *EventInput) { in.RSVPDeadline = &lateDeadline },
		},
		{
			name:   "unknown recurrence rule",
			actor:  testMember(model.RoleStaff),
			teams:  true,
			mutate: func(in *EventInput) { in.Recurrence = "daily" },
		},
		{
			name:   "until without recurrence",
			actor:  testMember(model.RoleStaff),
			teams:  true,
			mutate: func(in *EventInput) { in.Recurrence = "none"; in.RecurrenceUntil = &until },
		},
		{
			name:   "until before start",
			actor:  testMember(model.RoleStaff),
			teams:  true,
			mutate: func(in *EventInput) { in.RecurrenceUntil = &until },
		},
		{
			name:   "unknown team",
			actor:  testMember(model.RoleStaff),
			teams:  false,
			mutate: func(in *EventInput) { in.TeamIDs = []uuid.UUID{uuid.New()} },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeEventStore()
			svc := NewEventService(store, &fakeTeamChecker{exists: tc.teams}, nil, time.UTC, zap.NewNop())

			input := validEventInput()
			tc.mutate(&input)

			if _, err := svc.Create(context.Background(), tc.actor, input); err == nil {
				t.Error("Create accepted invalid input")
			}
			if len(store.byID) != 0 {
				t.Errorf("store holds %d events, want 0", len(store.byID))
			}
		})
	}
}

func TestEventServiceNormalizesRecurrenceUntil(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	store := newFakeEventStore()
	svc := NewEventService(store, &fakeTeamChecker{exists: true}, nil, berlin, zap.NewNop())
	staff := testMember(model.RoleStaff)

	// Полночь 18 июня по клубному времени; тот же момент по UTC ещё 17 июня
	until := time.Date(2024, 6, 18, 0, 0, 0, 0, berlin)
	input := validEventInput()
	input.RecurrenceUntil = &until

	event, err := svc.Create(context.Background(), staff, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got := *event.RecurrenceUntil
	if !got.Equal(time.Date(2024, 6, 18, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("recurrence_until = %v, want 2024-06-18 00:00 UTC", got)
	}

	// Последнее вхождение 18 июня не должно пропасть при развороте
	res := recurrence.Expand(EventPattern(event, berlin), recurrence.Window{
		From: time.Date(2024, 6, 1, 0, 0, 0, 0, berlin),
		To:   time.Date(2024, 6, 30, 23, 59, 0, 0, berlin),
	})
	if len(res.Occurrences) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(res.Occurrences))
	}
	last := res.Occurrences[len(res.Occurrences)-1].Start
	if last.Day() != 18 || last.Month() != time.June {
		t.Fatalf("last occurrence on %v, want June 18", last)
	}
}

func TestEventServiceUpdate(t *testing.T) {
	store := newFakeEventStore()
	announcer := &fakeAnnouncer{}
	svc := NewEventService(store, &fakeTeamChecker{exists: true}, announcer, time.UTC, zap.NewNop())
	staff := testMember(model.RoleStaff)

	event, err := svc.Create(context.Background(), staff, validEventInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	input := validEventInput()
	input.Title = "Тренировка в зале"
	input.Recurrence = "biweekly"

	updated, err := svc.Update(context.Background(), staff, event.ID, input)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Тренировка в зале" {
		t.Errorf("title = %q, want updated title", updated.Title)
	}
	if updated.Recurrence != model.RecurrenceBiweekly {
		t.Errorf("recurrence = %q, want biweekly", updated.Recurrence)
	}
	if announcer.updated != 1 {
		t.Errorf("announcer called %d times, want 1", announcer.updated)
	}
}

func TestEventServiceUpdateRejectsImported(t *testing.T) {
	store := newFakeEventStore()
	svc := NewEventService(store, &fakeTeamChecker{exists: true}, nil, time.UTC, zap.NewNop())
	staff := testMember(model.RoleStaff)

	uid := "liga:abc123"
	imported := &model.Event{
		Title:      "Матч лиги",
		StartAt:    time.Date(2024, 6, 8, 15, 0, 0, 0, time.UTC),
		Recurrence: model.RecurrenceNone,
		ImportUID:  &uid,
	}
	if err := store.Create(context.Background(), imported); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.Update(context.Background(), staff, imported.ID, validEventInput()); err == nil {
		t.Error("Update accepted an imported event")
	}
}

func TestEventServiceDelete(t *testing.T) {
	store := newFakeEventStore()
	announcer := &fakeAnnouncer{}
	svc := NewEventService(store, &fakeTeamChecker{exists: true}, announcer, time.UTC, zap.NewNop())
	staff := testMember(model.RoleStaff)

	event, err := svc.Create(context.Background(), staff, validEventInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(context.Background(), staff, event.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != event.ID {
		t.Errorf("deleted = %v, want [%s]", store.deleted, event.ID)
	}
	if announcer.deleted != 1 {
		t.Errorf("announcer called %d times, want 1", announcer.deleted)
	}

	if err := svc.Delete(context.Background(), staff, event.ID); err == nil {
		t.Error("Delete accepted a missing event")
	}
}
