package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/service"
	"github.com/google/uuid"
)

type fakeEvents struct {
	event *model.Event
	err   error
}

func (f *fakeEvents) Create(_ context.Context, _ *model.Member, input service.EventInput) (*model.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Event{ID: uuid.New(), Title: input.Title, StartAt: input.StartAt}, nil
}

func (f *fakeEvents) Update(_ context.Context, _ *model.Member, id uuid.UUID, input service.EventInput) (*model.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Event{ID: id, Title: input.Title, StartAt: input.StartAt}, nil
}

func (f *fakeEvents) Delete(_ context.Context, _ *model.Member, _ uuid.UUID) error { return f.err }

func (f *fakeEvents) Get(_ context.Context, id uuid.UUID) (*model.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.event == nil {
		return nil, errors.New("event not found")
	}
	return f.event, nil
}

type fakeRSVP struct {
	response *model.EventResponse
	summary  *model.ResponseSummary
	err      error
	gotDate  time.Time
}

func (f *fakeRSVP) Respond(_ context.Context, _ uuid.UUID, date time.Time, _ *model.Member, _ model.ResponseStatus, _ string) (*model.EventResponse, error) {
	f.gotDate = date
	return f.response, f.err
}

func (f *fakeRSVP) Summary(_ context.Context, eventID uuid.UUID, date time.Time, _ uuid.UUID) (*model.ResponseSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.summary != nil {
		return f.summary, nil
	}
	return &model.ResponseSummary{EventID: eventID, Date: date.Format("2006-01-02")}, nil
}

func TestEventCreate(t *testing.T) {
	t.Parallel()

	admin := adminMember()
	srv := newTestServer(Deps{Members: newFakeMembers(admin), Events: &fakeEvents{}})
	handler := srv.Routes()

	body := `{"title":"Кубок города","start_at":"2024-06-15T10:00:00Z","recurrence":"weekly"}`
	rec := doRequest(handler, http.MethodPost, "/api/events", admin.AuthSubject, body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Кубок города") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestEventCreateRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	admin := adminMember()
	srv := newTestServer(Deps{Members: newFakeMembers(admin), Events: &fakeEvents{}})

	body := `{"title":"Матч","starts":"2024-06-15T10:00:00Z"}`
	rec := doRequest(srv.Routes(), http.MethodPost, "/api/events", admin.AuthSubject, body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown field", rec.Code)
	}
}

func TestEventGetNotFound(t *testing.T) {
	t.Parallel()

	member := plainMember()
	srv := newTestServer(Deps{Members: newFakeMembers(member), Events: &fakeEvents{}})

	rec := doRequest(srv.Routes(), http.MethodGet, "/api/events/"+uuid.NewString(), member.AuthSubject, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestEventGetBadID(t *testing.T) {
	t.Parallel()

	member := plainMember()
	srv := newTestServer(Deps{Members: newFakeMembers(member), Events: &fakeEvents{}})

	rec := doRequest(srv.Routes(), http.MethodGet, "/api/events/not-a-uuid", member.AuthSubject, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestEventRespond(t *testing.T) {
	t.Parallel()

	member := plainMember()
	rsvp := &fakeRSVP{response: &model.EventResponse{
		EventID:  uuid.New(),
		MemberID: member.ID,
		Status:   model.ResponseAttending,
	}}
	srv := newTestServer(Deps{Members: newFakeMembers(member), RSVPs: rsvp})

	body := `{"date":"2024-06-17","status":"attending"}`
	rec := doRequest(srv.Routes(), http.MethodPost, "/api/events/"+uuid.NewString()+"/respond", member.AuthSubject, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rsvp.gotDate.Format("2006-01-02"); got != "2024-06-17" {
		t.Errorf("service got date %s, want 2024-06-17", got)
	}
}

func TestEventRespondToggleOff(t *testing.T) {
	t.Parallel()

	member := plainMember()
	// nil без ошибки означает снятый ответ при политике toggle
	srv := newTestServer(Deps{Members: newFakeMembers(member), RSVPs: &fakeRSVP{}})

	body := `{"date":"2024-06-17","status":"attending"}`
	rec := doRequest(srv.Routes(), http.MethodPost, "/api/events/"+uuid.NewString()+"/respond", member.AuthSubject, body)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestEventRespondDeadline(t *testing.T) {
	t.Parallel()

	member := plainMember()
	srv := newTestServer(Deps{
		Members: newFakeMembers(member),
		RSVPs:   &fakeRSVP{err: errors.New("rsvp deadline passed")},
	})

	body := `{"date":"2024-06-17","status":"attending"}`
	rec := doRequest(srv.Routes(), http.MethodPost, "/api/events/"+uuid.NewString()+"/respond", member.AuthSubject, body)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestEventResponses(t *testing.T) {
	t.Parallel()

	member := plainMember()
	srv := newTestServer(Deps{Members: newFakeMembers(member), RSVPs: &fakeRSVP{}})

	target := "/api/events/" + uuid.NewString() + "/responses?date=2024-06-17"
	rec := doRequest(srv.Routes(), http.MethodGet, target, member.AuthSubject, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"date":"2024-06-17"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestEventUpdateImportedConflict(t *testing.T) {
	t.Parallel()

	admin := adminMember()
	srv := newTestServer(Deps{
		Members: newFakeMembers(admin),
		Events:  &fakeEvents{err: errors.New("imported event is read-only")},
	})

	body := `{"title":"Матч","start_at":"2024-06-15T10:00:00Z"}`
	rec := doRequest(srv.Routes(), http.MethodPut, "/api/events/"+uuid.NewString(), admin.AuthSubject, body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}
