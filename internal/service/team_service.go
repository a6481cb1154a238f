package service

import (
	"context"
	"fmt"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TeamStore хранилище команд и составов
type TeamStore interface {
	Create(ctx context.Context, t *model.Team) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Team, error)
	List(ctx context.Context, includeInactive bool) ([]*model.Team, error)
	Update(ctx context.Context, t *model.Team) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddMember(ctx context.Context, teamID, memberID uuid.UUID, role model.TeamRole) error
	RemoveMember(ctx context.Context, teamID, memberID uuid.UUID) error
	GetRoster(ctx context.Context, teamID uuid.UUID) ([]*model.TeamMember, error)
}

// RoomCreator создание комнат чата для новых команд
type RoomCreator interface {
	CreateRoom(ctx context.Context, room *model.ChatRoom) error
}

// TeamInput входные данные для создания и правки команды
type TeamInput struct {
	Name      string
	ShortName string
	Color     string
	SortOrder int
}

// TeamService управляет командами и их составами. При создании команды
// автоматически заводится её комната чата.
type TeamService struct {
	teams   TeamStore
	members MemberStore
	rooms   RoomCreator
	logger  *zap.Logger
}

// NewTeamService создаёт новый сервис команд
func NewTeamService(teams TeamStore, members MemberStore, rooms RoomCreator, logger *zap.Logger) *TeamService {
	return &TeamService{
		teams:   teams,
		members: members,
		rooms:   rooms,
		logger:  logger,
	}
}

// Create создаёт команду вместе с комнатой чата
func (s *TeamService) Create(ctx context.Context, actor *model.Member, input TeamInput) (*model.Team, error) {
	if !actor.CanManage() {
		return nil, fmt.Errorf("member is not allowed to manage teams")
	}
	if input.Name == "" {
		return nil, fmt.Errorf("team name is required")
	}

	team := &model.Team{
		Name:      input.Name,
		ShortName: input.ShortName,
		Color:     input.Color,
		SortOrder: input.SortOrder,
		IsActive:  true,
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}

	room := &model.ChatRoom{Name: team.Name, TeamID: &team.ID}
	if err := s.rooms.CreateRoom(ctx, room); err != nil {
		// Команда уже создана, комнату можно завести вручную
		s.logger.Warn("Failed to create team chat room",
			zap.String("team_id", team.ID.String()),
			zap.Error(err))
	}

	s.logger.Info("Team created",
		zap.String("team_id", team.ID.String()),
		zap.String("name", team.Name))

	return team, nil
}

// Update правит команду
func (s *TeamService) Update(ctx context.Context, actor *model.Member, id uuid.UUID, input TeamInput) (*model.Team, error) {
	if !actor.CanManage() {
		return nil, fmt.Errorf("member is not allowed to manage teams")
	}

	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	if team == nil {
		return nil, fmt.Errorf("team not found")
	}
	if input.Name == "" {
		return nil, fmt.Errorf("team name is required")
	}

	team.Name = input.Name
	team.ShortName = input.ShortName
	team.Color = input.Color
	team.SortOrder = input.SortOrder

	if err := s.teams.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("update team: %w", err)
	}

	s.logger.Info("Team updated", zap.String("team_id", team.ID.String()))
	return team, nil
}

// Delete удаляет команду. Доступно только администраторам.
func (s *TeamService) Delete(ctx context.Context, actor *model.Member, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("member is not allowed to delete teams")
	}

	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get team: %w", err)
	}
	if team == nil {
		return fmt.Errorf("team not found")
	}

	if err := s.teams.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}

	s.logger.Info("Team deleted",
		zap.String("team_id", id.String()),
		zap.String("name", team.Name))

	return nil
}

// List возвращает команды клуба в порядке сортировки
func (s *TeamService) List(ctx context.Context, includeInactive bool) ([]*model.Team, error) {
	teams, err := s.teams.List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// Get возвращает команду по идентификатору
func (s *TeamService) Get(ctx context.Context, id uuid.UUID) (*model.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	if team == nil {
		return nil, fmt.Errorf("team not found")
	}
	return team, nil
}

// Roster возвращает состав команды, капитаны первыми
func (s *TeamService) Roster(ctx context.Context, teamID uuid.UUID) ([]*model.TeamMember, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	if team == nil {
		return nil, fmt.Errorf("team not found")
	}

	roster, err := s.teams.GetRoster(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("get team roster: %w", err)
	}
	return roster, nil
}

// AddMember добавляет участника в состав команды
func (s *TeamService) AddMember(ctx context.Context, actor *model.Member, teamID, memberID uuid.UUID, role model.TeamRole) error {
	if !actor.CanManage() {
		return fmt.Errorf("member is not allowed to manage rosters")
	}
	switch role {
	case model.TeamRoleCaptain, model.TeamRolePlayer:
	default:
		return fmt.Errorf("unknown team role: %q", role)
	}

	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return fmt.Errorf("get team: %w", err)
	}
	if team == nil {
		return fmt.Errorf("team not found")
	}

	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("get member: %w", err)
	}
	if member == nil {
		return fmt.Errorf("member not found")
	}
	if !member.IsActive {
		return fmt.Errorf("member is deactivated")
	}

	if err := s.teams.AddMember(ctx, teamID, memberID, role); err != nil {
		return fmt.Errorf("add team member: %w", err)
	}

	s.logger.Info("Member added to team",
		zap.String("team_id", teamID.String()),
		zap.String("member_id", memberID.String()),
		zap.String("role", string(role)))

	return nil
}

// RemoveMember убирает участника из состава команды
func (s *TeamService) RemoveMember(ctx context.Context, actor *model.Member, teamID, memberID uuid.UUID) error {
	if !actor.CanManage() {
		return fmt.Errorf("member is not allowed to manage rosters")
	}

	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return fmt.Errorf("get team: %w", err)
	}
	if team == nil {
		return fmt.Errorf("team not found")
	}

	if err := s.teams.RemoveMember(ctx, teamID, memberID); err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}

	s.logger.Info("Member removed from team",
		zap.String("team_id", teamID.String()),
		zap.String("member_id", memberID.String()))

	return nil
}
