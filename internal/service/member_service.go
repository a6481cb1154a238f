package service

import (
	"context"
	"fmt"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemberStore хранилище участников
type MemberStore interface {
	Upsert(ctx context.Context, m *model.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Member, error)
	GetByAuthSubject(ctx context.Context, subject string) (*model.Member, error)
	List(ctx context.Context, includeInactive bool) ([]*model.Member, error)
	UpdateProfile(ctx context.Context, m *model.Member) error
	SetRole(ctx context.Context, id uuid.UUID, role model.MemberRole) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// ProfileInput изменяемые участником поля собственного профиля
type ProfileInput struct {
	FirstName string
	LastName  string
	Nickname  string
	Email     string
	Phone     string
}

// MemberService управляет участниками клуба. Учётные записи приходят из
// внешней системы авторизации и создаются при первом входе.
type MemberService struct {
	members MemberStore
	logger  *zap.Logger
}

// NewMemberService создаёт новый сервис участников
func NewMemberService(members MemberStore, logger *zap.Logger) *MemberService {
	return &MemberService{members: members, logger: logger}
}

// Identify находит участника по идентификатору внешней авторизации.
// Возвращает nil для неизвестного или деактивированного участника.
func (s *MemberService) Identify(ctx context.Context, subject string) (*model.Member, error) {
	if subject == "" {
		return nil, nil
	}

	member, err := s.members.GetByAuthSubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("get member by auth subject: %w", err)
	}
	if member == nil || !member.IsActive {
		return nil, nil
	}
	return member, nil
}

// Register создаёт участника при первом входе или обновляет профиль при
// повторном. Роль при регистрации всегда member, повышает только админ.
func (s *MemberService) Register(ctx context.Context, subject string, input ProfileInput) (*model.Member, error) {
	if subject == "" {
		return nil, fmt.Errorf("auth subject is required")
	}
	if input.FirstName == "" {
		return nil, fmt.Errorf("first name is required")
	}

	member := &model.Member{
		AuthSubject: subject,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Nickname:    input.Nickname,
		Email:       input.Email,
		Phone:       input.Phone,
		Role:        model.RoleMember,
		IsActive:    true,
	}
	if err := s.members.Upsert(ctx, member); err != nil {
		return nil, fmt.Errorf("upsert member: %w", err)
	}

	s.logger.Info("Member registered",
		zap.String("member_id", member.ID.String()),
		zap.String("name", member.DisplayName()))

	return member, nil
}

// UpdateProfile правит собственный профиль участника
func (s *MemberService) UpdateProfile(ctx context.Context, actor *model.Member, input ProfileInput) (*model.Member, error) {
	if input.FirstName == "" {
		return nil, fmt.Errorf("first name is required")
	}

	actor.FirstName = input.FirstName
	actor.LastName = input.LastName
	actor.Nickname = input.Nickname
	actor.Email = input.Email
	actor.Phone = input.Phone

	if err := s.members.UpdateProfile(ctx, actor); err != nil {
		return nil, fmt.Errorf("update member profile: %w", err)
	}

	s.logger.Info("Member profile updated", zap.String("member_id", actor.ID.String()))
	return actor, nil
}

// List возвращает участников клуба. Список с деактивированными доступен
// только администраторам и тренерам.
func (s *MemberService) List(ctx context.Context, actor *model.Member, includeInactive bool) ([]*model.Member, error) {
	if includeInactive && !actor.CanManage() {
		return nil, fmt.Errorf("member is not allowed to list inactive members")
	}

	members, err := s.members.List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// Get возвращает участника по идентификатору
func (s *MemberService) Get(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("member not found")
	}
	return member, nil
}

// SetRole меняет роль участника. Доступно только администраторам.
func (s *MemberService) SetRole(ctx context.Context, actor *model.Member, id uuid.UUID, role model.MemberRole) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("member is not allowed to change roles")
	}
	switch role {
	case model.RoleAdmin, model.RoleStaff, model.RoleMember:
	default:
		return fmt.Errorf("unknown member role: %q", role)
	}
	if actor.ID == id && role != model.RoleAdmin {
		return fmt.Errorf("admin cannot demote themselves")
	}

	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get member: %w", err)
	}
	if member == nil {
		return fmt.Errorf("member not found")
	}

	if err := s.members.SetRole(ctx, id, role); err != nil {
		return fmt.Errorf("set member role: %w", err)
	}

	s.logger.Info("Member role changed",
		zap.String("member_id", id.String()),
		zap.String("role", string(role)),
		zap.String("changed_by", actor.ID.String()))

	return nil
}

// SetActive деактивирует участника или возвращает его в клуб. Доступно
// только администраторам, себя деактивировать нельзя.
func (s *MemberService) SetActive(ctx context.Context, actor *model.Member, id uuid.UUID, active bool) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("member is not allowed to deactivate members")
	}
	if actor.ID == id && !active {
		return fmt.Errorf("admin cannot deactivate themselves")
	}

	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get member: %w", err)
	}
	if member == nil {
		return fmt.Errorf("member not found")
	}

	if err := s.members.SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("set member active: %w", err)
	}

	s.logger.Info("Member activity changed",
		zap.String("member_id", id.String()),
		zap.Bool("active", active),
		zap.String("changed_by", actor.ID.String()))

	return nil
}
