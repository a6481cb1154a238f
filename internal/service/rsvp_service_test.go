package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/atlasov/club_portal/internal/clock"
	"github.com/atlasov/club_portal/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeResponseStore struct {
	responses map[string]*model.EventResponse
	nextID    int64
}

func newFakeResponseStore() *fakeResponseStore {
	return &fakeResponseStore{responses: make(map[string]*model.EventResponse)}
}

func (f *fakeResponseStore) key(eventID uuid.UUID, date time.Time, memberID uuid.UUID) string {
	return fmt.Sprintf("%s|%s|%s", eventID, date.Format("2006-01-02"), memberID)
}

func (f *fakeResponseStore) Get(_ context.Context, eventID uuid.UUID, date time.Time, memberID uuid.UUID) (*model.EventResponse, error) {
	return f.responses[f.key(eventID, date, memberID)], nil
}

func (f *fakeResponseStore) Upsert(_ context.Context, response *model.EventResponse) error {
	f.nextID++
	response.ID = f.nextID
	f.responses[f.key(response.EventID, response.Date, response.MemberID)] = response
	return nil
}

func (f *fakeResponseStore) Delete(_ context.Context, eventID uuid.UUID, date time.Time, memberID uuid.UUID) error {
	delete(f.responses, f.key(eventID, date, memberID))
	return nil
}

func (f *fakeResponseStore) ListForOccurrence(_ context.Context, eventID uuid.UUID, date time.Time) ([]*model.EventResponse, error) {
	var out []*model.EventResponse
	prefix := fmt.Sprintf("%s|%s|", eventID, date.Format("2006-01-02"))
	for key, response := range f.responses {
		if strings.HasPrefix(key, prefix) {
			out = append(out, response)
		}
	}
	return out, nil
}

type fakeEventGetter struct {
	event *model.Event
}

func (f *fakeEventGetter) GetByID(_ context.Context, id uuid.UUID) (*model.Event, error) {
	if f.event != nil && f.event.ID == id {
		return f.event, nil
	}
	return nil, nil
}

func testMember(role model.MemberRole) *model.Member {
	return &model.Member{
		ID:        uuid.New(),
		FirstName: "Мария",
		Role:      role,
		IsActive:  true,
	}
}

func newRSVPService(event *model.Event, policy RSVPPolicy, now time.Time) (*RSVPService, *fakeResponseStore) {
	store := newFakeResponseStore()
	svc := NewRSVPService(store, &fakeEventGetter{event: event}, policy, clock.NewFixed(now), time.UTC, zap.NewNop())
	return svc, store
}

func TestRSVPRespondOnOccurrenceDate(t *testing.T) {
	event := weeklyEvent("Тренировка", time.Date(2024, 6, 4, 18, 0, 0, 0, time.UTC))
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	svc, store := newRSVPService(event, PolicyUpsert, now)
	member := testMember(model.RoleMember)

	date := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	response, err := svc.Respond(context.Background(), event.ID, date, member, model.ResponseAttending, "приду пораньше")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if response == nil {
		t.Fatal("Respond returned nil response")
	}
	if response.Status != model.ResponseAttending {
		t.Errorf("status = %q, want attending", response.Status)
	}
	if got := response.Date.Format("2006-01-02"); got != "2024-06-11" {
		t.Errorf("date = %s, want 2024-06-11", got)
	}
	if len(store.responses) != 1 {
		t.Errorf("store holds %d responses, want 1", len(store.responses))
	}
}

func TestRSVPRespondRejectsNonOccurrenceDate(t *testing.T) {
	event := weeklyEvent("Тренировка", time.Date(2024, 6, 4, 18, 0, 0, 0, time.UTC))
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	svc, store := newRSVPService(event, PolicyUpsert, now)
	member := testMember(model.RoleMember)

	// 12 июня — среда, тренировка по вторникам
	date := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)
	_, err := svc.Respond(context.Background(), event.ID, date, member, model.ResponseAttending, "")
	if err == nil {
		t.Fatal("Respond accepted a date without an occurrence")
	}
	if len(store.responses) != 0 {
		t.Errorf("store holds %d responses, want 0", len(store.responses))
	}
}

func TestRSVPDeadline(t *testing.T) {
	event := weeklyEvent("Тренировка", time.Date(2024, 6, 4, 18, 0, 0, 0, time.UTC))
	deadline := time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC)
	event.RSVPDeadline = &deadline

	// Срок для вхождения 11 июня — 12:00 того же дня, сейчас уже 15:00
	now := time.Date(2024, 6, 11, 15, 0, 0, 0, time.UTC)
	date := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)

	t.Run("member is rejected after the deadline", func(t *testing.T) {
		svc, _ := newRSVPService(event, PolicyUpsert, now)
		_, err := svc.Respond(context.Background(), event.ID, date, testMember(model.RoleMember), model.ResponseAttending, "")
		if err == nil {
			t.Fatal("Respond accepted a response after the deadline")
		}
	})

	t.Run("staff responds after the deadline", func(t *testing.T) {
		svc, _ := newRSVPService(event, PolicyUpsert, now)
		if _, err := svc.Respond(context.Background(), event.ID, date, testMember(model.RoleStaff), model.ResponseAttending, ""); err != nil {
			t.Fatalf("Respond: %v", err)
		}
	})

	t.Run("member responds before the deadline", func(t *testing.T) {
		before := time.Date(2024, 6, 11, 10, 0, 0, 0, time.UTC)
		svc, _ := newRSVPService(event, PolicyUpsert, before)
		if _, err := svc.Respond(context.Background(), event.ID, date, testMember(model.RoleMember), model.ResponseAttending, ""); err != nil {
			t.Fatalf("Respond: %v", err)
		}
	})
}

func TestRSVPTogglePolicy(t *testing.T) {
	event := weeklyEvent("Тренировка", time.Date(2024, 6, 4, 18, 0, 0, 0, time.UTC))
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	date := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	member := testMember(model.RoleMember)

	svc, store := newRSVPService(event, PolicyToggle, now)

	first, err := svc.Respond(context.Background(), event.ID, date, member, model.ResponseAttending, "")
	if err != nil {
		t.Fatalf("first Respond: %v", err)
	}
	if first == nil {
		t.Fatal("first Respond returned nil")
	}

	// Повторный ответ тем же статусом снимает отметку
	second, err := svc.Respond(context.Background(), event.ID, date, member, model.ResponseAttending, "")
	if err != nil {
		t.Fatalf("second Respond: %v", err)
	}
	if second != nil {
		t.Errorf("second Respond returned %+v, want nil", second)
	}
	if len(store.responses) != 0 {
		t.Errorf("store holds %d responses after toggle off, want 0", len(store.responses))
	}

	// Другой статус перезаписывает, а не снимает
	if _, err := svc.Respond(context.Background(), event.ID, date, member, model.ResponseAttending, ""); err != nil {
		t.Fatalf("third Respond: %v", err)
	}
	fourth, err := svc.Respond(context.Background(), event.ID, date, member, model.ResponseDeclined, "")
	if err != nil {
		t.Fatalf("fourth Respond: %v", err)
	}
	if fourth == nil || fourth.Status != model.ResponseDeclined {
		t.Errorf("fourth Respond = %+v, want declined response", fourth)
	}
}

func TestRSVPUpsertPolicyKeepsResponse(t *testing.T) {
	event := weeklyEvent("Тренировка", time.Date(2024, 6, 4, 18, 0, 0, 0, time.UTC))
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	date := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	member := testMember(model.RoleMember)

	svc, store := newRSVPService(event, PolicyUpsert, now)

	for i := 0; i < 2; i++ {
		response, err := svc.Respond(context.Background(), event.ID, date, member, model.ResponseAttending, "")
		if err != nil {
			t.Fatalf("Respond #%d: %v", i+1, err)
		}
		if response == nil {
			t.Fatalf("Respond #%d returned nil", i+1)
		}
	}
	if len(store.responses) != 1 {
		t.Errorf("store holds %d responses, want 1", len(store.responses))
	}
}

func TestRSVPRejectsUnknownStatus(t *testing.T) {
	event := weeklyEvent("Тренировка", time.Date(2024, 6, 4, 18, 0, 0, 0, time.UTC))
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	svc, _ := newRSVPService(event, PolicyUpsert, now)

	date := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	_, err := svc.Respond(context.Background(), event.ID, date, testMember(model.RoleMember), "maybe", "")
	if err == nil {
		t.Fatal("Respond accepted an unknown status")
	}
}

func TestRSVPSummary(t *testing.T) {
	event := weeklyEvent("Тренировка", time.Date(2024, 6, 4, 18, 0, 0, 0, time.UTC))
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	date := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)

	svc, _ := newRSVPService(event, PolicyUpsert, now)

	me := testMember(model.RoleMember)
	other := testMember(model.RoleMember)
	third := testMember(model.RoleMember)

	ctx := context.Background()
	if _, err := svc.Respond(ctx, event.ID, date, me, model.ResponseAttending, ""); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if _, err := svc.Respond(ctx, event.ID, date, other, model.ResponseDeclined, "уезжаю"); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if _, err := svc.Respond(ctx, event.ID, date, third, model.ResponseUncertain, ""); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	summary, err := svc.Summary(ctx, event.ID, date, me.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if len(summary.Attending) != 1 || len(summary.Declined) != 1 || len(summary.Uncertain) != 1 {
		t.Errorf("summary groups = %d/%d/%d, want 1/1/1",
			len(summary.Attending), len(summary.Declined), len(summary.Uncertain))
	}
	if summary.Own == nil || summary.Own.MemberID != me.ID {
		t.Errorf("summary.Own = %+v, want own response", summary.Own)
	}
	if summary.Date != "2024-06-11" {
		t.Errorf("summary.Date = %q, want 2024-06-11", summary.Date)
	}
}
