package service

import (
	"context"
	"testing"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeMemberStore struct {
	bySubject map[string]*model.Member
	byID      map[uuid.UUID]*model.Member
}

func newFakeMemberStore() *fakeMemberStore {
	return &fakeMemberStore{
		bySubject: make(map[string]*model.Member),
		byID:      make(map[uuid.UUID]*model.Member),
	}
}

// Upsert повторяет поведение ON CONFLICT по auth_subject: профиль
// обновляется, роль и активность сохраняются
func (f *fakeMemberStore) Upsert(_ context.Context, m *model.Member) error {
	if existing, ok := f.bySubject[m.AuthSubject]; ok {
		existing.FirstName = m.FirstName
		existing.LastName = m.LastName
		existing.Nickname = m.Nickname
		existing.Email = m.Email
		existing.Phone = m.Phone
		*m = *existing
		return nil
	}

	m.ID = uuid.New()
	m.IsActive = true
	stored := *m
	f.bySubject[m.AuthSubject] = &stored
	f.byID[m.ID] = &stored
	return nil
}

func (f *fakeMemberStore) GetByID(_ context.Context, id uuid.UUID) (*model.Member, error) {
	return f.byID[id], nil
}

func (f *fakeMemberStore) GetByAuthSubject(_ context.Context, subject string) (*model.Member, error) {
	return f.bySubject[subject], nil
}

func (f *fakeMemberStore) List(_ context.Context, includeInactive bool) ([]*model.Member, error) {
	var out []*model.Member
	for _, m := range f.byID {
		if m.IsActive || includeInactive {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemberStore) UpdateProfile(_ context.Context, m *model.Member) error {
	if stored, ok := f.byID[m.ID]; ok {
		*stored = *m
	}
	return nil
}

func (f *fakeMemberStore) SetRole(_ context.Context, id uuid.UUID, role model.MemberRole) error {
	if stored, ok := f.byID[id]; ok {
		stored.Role = role
	}
	return nil
}

func (f *fakeMemberStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	if stored, ok := f.byID[id]; ok {
		stored.IsActive = active
	}
	return nil
}

func TestMemberServiceIdentify(t *testing.T) {
	store := newFakeMemberStore()
	svc := NewMemberService(store, zap.NewNop())

	if m, err := svc.Identify(context.Background(), ""); err != nil || m != nil {
		t.Errorf("Identify with empty subject = (%v, %v), want (nil, nil)", m, err)
	}
	if m, err := svc.Identify(context.Background(), "tg:999"); err != nil || m != nil {
		t.Errorf("Identify with unknown subject = (%v, %v), want (nil, nil)", m, err)
	}

	registered, err := svc.Register(context.Background(), "tg:100", ProfileInput{FirstName: "Мария"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	m, err := svc.Identify(context.Background(), "tg:100")
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if m == nil || m.ID != registered.ID {
		t.Fatalf("Identify = %v, want registered member", m)
	}

	store.SetActive(context.Background(), registered.ID, false)
	if m, err := svc.Identify(context.Background(), "tg:100"); err != nil || m != nil {
		t.Errorf("Identify of deactivated member = (%v, %v), want (nil, nil)", m, err)
	}
}

func TestMemberServiceRegister(t *testing.T) {
	svc := NewMemberService(newFakeMemberStore(), zap.NewNop())

	if _, err := svc.Register(context.Background(), "", ProfileInput{FirstName: "Мария"}); err == nil {
		t.Error("Register accepted an empty subject")
	}
	if _, err := svc.Register(context.Background(), "tg:100", ProfileInput{}); err == nil {
		t.Error("Register accepted an empty first name")
	}

	m, err := svc.Register(context.Background(), "tg:100", ProfileInput{FirstName: "Мария", Nickname: "Маша"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if m.Role != model.RoleMember || !m.IsActive || m.ID == uuid.Nil {
		t.Errorf("member = %+v, want active regular member", m)
	}
}

func TestMemberServiceRegisterKeepsPromotedRole(t *testing.T) {
	store := newFakeMemberStore()
	svc := NewMemberService(store, zap.NewNop())
	admin := testMember(model.RoleAdmin)

	first, err := svc.Register(context.Background(), "tg:100", ProfileInput{FirstName: "Мария"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.SetRole(context.Background(), admin, first.ID, model.RoleStaff); err != nil {
		t.Fatalf("SetRole: %v", err)
	}

	// Повторный вход обновляет профиль, но не сбрасывает роль
	again, err := svc.Register(context.Background(), "tg:100", ProfileInput{FirstName: "Мария", LastName: "Иванова"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("repeated register created a new member")
	}
	if again.Role != model.RoleStaff {
		t.Errorf("role = %s, want staff preserved", again.Role)
	}
	if again.LastName != "Иванова" {
		t.Errorf("last name = %q, want updated profile", again.LastName)
	}
}

func TestMemberServiceSetRole(t *testing.T) {
	store := newFakeMemberStore()
	svc := NewMemberService(store, zap.NewNop())
	admin := testMember(model.RoleAdmin)

	member, err := svc.Register(context.Background(), "tg:100", ProfileInput{FirstName: "Мария"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.SetRole(context.Background(), testMember(model.RoleStaff), member.ID, model.RoleStaff); err == nil {
		t.Error("SetRole accepted a non-admin actor")
	}
	if err := svc.SetRole(context.Background(), admin, member.ID, "captain"); err == nil {
		t.Error("SetRole accepted an unknown role")
	}
	if err := svc.SetRole(context.Background(), admin, admin.ID, model.RoleStaff); err == nil {
		t.Error("SetRole let an admin demote themselves")
	}
	if err := svc.SetRole(context.Background(), admin, uuid.New(), model.RoleStaff); err == nil {
		t.Error("SetRole accepted an unknown member")
	}

	if err := svc.SetRole(context.Background(), admin, member.ID, model.RoleStaff); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	stored, _ := store.GetByID(context.Background(), member.ID)
	if stored.Role != model.RoleStaff {
		t.Errorf("role = %s, want staff", stored.Role)
	}
}

func TestMemberServiceSetActive(t *testing.T) {
	store := newFakeMemberStore()
	svc := NewMemberService(store, zap.NewNop())
	admin := testMember(model.RoleAdmin)

	member, err := svc.Register(context.Background(), "tg:100", ProfileInput{FirstName: "Мария"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.SetActive(context.Background(), admin, admin.ID, false); err == nil {
		t.Error("SetActive let an admin deactivate themselves")
	}

	if err := svc.SetActive(context.Background(), admin, member.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if m, err := svc.Identify(context.Background(), "tg:100"); err != nil || m != nil {
		t.Errorf("Identify of deactivated member = (%v, %v), want (nil, nil)", m, err)
	}
}

func TestMemberServiceList(t *testing.T) {
	store := newFakeMemberStore()
	svc := NewMemberService(store, zap.NewNop())

	if _, err := svc.List(context.Background(), testMember(model.RoleMember), true); err == nil {
		t.Error("List with inactive members accepted a regular member")
	}
	if _, err := svc.List(context.Background(), testMember(model.RoleMember), false); err != nil {
		t.Errorf("List: %v", err)
	}
	if _, err := svc.List(context.Background(), testMember(model.RoleStaff), true); err != nil {
		t.Errorf("List by staff: %v", err)
	}
}
