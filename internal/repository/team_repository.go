package repository

import (
	"context"
	"fmt"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// TeamRepository управляет командами и их составами в базе данных
type TeamRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewTeamRepository создаёт новый репозиторий
func NewTeamRepository(b *base.Repository, logger *zap.Logger) *TeamRepository {
	return &TeamRepository{Repository: b, logger: logger}
}

const teamColumns = `id, name, short_name, color, sort_order, is_active, created_at`

func scanTeam(row pgx.Row) (*model.Team, error) {
	t := &model.Team{}
	err := row.Scan(&t.ID, &t.Name, &t.ShortName, &t.Color, &t.SortOrder, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create создаёт новую команду
func (r *TeamRepository) Create(ctx context.Context, t *model.Team) error {
	query := `
		INSERT INTO teams (name, short_name, color, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, t.Name, t.ShortName, t.Color, t.SortOrder, t.IsActive).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create team: %w", err)
	}

	return nil
}

// GetByID получает команду по ID
func (r *TeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`

	t, err := scanTeam(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team by id: %w", err)
	}

	return t, nil
}

// List получает все команды в порядке сортировки
func (r *TeamRepository) List(ctx context.Context, includeInactive bool) ([]*model.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE is_active OR $1 ORDER BY sort_order, name`

	rows, err := r.Query(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []*model.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
	}

	return teams, rows.Err()
}

// Update обновляет команду
func (r *TeamRepository) Update(ctx context.Context, t *model.Team) error {
	query := `
		UPDATE teams
		SET name = $2, short_name = $3, color = $4, sort_order = $5, is_active = $6
		WHERE id = $1
	`

	affected, err := r.ExecAffected(ctx, query, t.ID, t.Name, t.ShortName, t.Color, t.SortOrder, t.IsActive)
	if err != nil {
		return fmt.Errorf("update team: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("team not found")
	}

	return nil
}

// Delete удаляет команду вместе с составом
func (r *TeamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM teams WHERE id = $1`

	if err := r.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}

	return nil
}

// Exists проверяет, что все команды из списка существуют
func (r *TeamRepository) Exists(ctx context.Context, ids []uuid.UUID) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}

	query := `SELECT count(*) FROM teams WHERE id = ANY($1)`

	var count int
	if err := r.QueryRow(ctx, query, ids).Scan(&count); err != nil {
		return false, fmt.Errorf("count teams: %w", err)
	}

	return count == len(ids), nil
}

// AddMember добавляет участника в состав команды
func (r *TeamRepository) AddMember(ctx context.Context, teamID, memberID uuid.UUID, role model.TeamRole) error {
	query := `
		INSERT INTO team_members (team_id, member_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, member_id) DO UPDATE SET role = EXCLUDED.role
	`

	if err := r.Exec(ctx, query, teamID, memberID, role); err != nil {
		return fmt.Errorf("add team member: %w", err)
	}

	return nil
}

// RemoveMember удаляет участника из состава команды
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, memberID uuid.UUID) error {
	query := `DELETE FROM team_members WHERE team_id = $1 AND member_id = $2`

	affected, err := r.ExecAffected(ctx, query, teamID, memberID)
	if err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("member is not on the team")
	}

	return nil
}

// GetRoster получает состав команды с данными участников
func (r *TeamRepository) GetRoster(ctx context.Context, teamID uuid.UUID) ([]*model.TeamMember, error) {
	query := `
		SELECT tm.team_id, tm.member_id, tm.role, tm.joined_at, ` + prefixedMemberColumns("m") + `
		FROM team_members tm
		JOIN members m ON m.id = tm.member_id
		WHERE tm.team_id = $1
		ORDER BY tm.role = 'captain' DESC, m.last_name, m.first_name
	`

	rows, err := r.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("get team roster: %w", err)
	}
	defer rows.Close()

	var roster []*model.TeamMember
	for rows.Next() {
		tm := &model.TeamMember{Member: &model.Member{}}
		err := rows.Scan(
			&tm.TeamID,
			&tm.MemberID,
			&tm.Role,
			&tm.JoinedAt,
			&tm.Member.ID,
			&tm.Member.AuthSubject,
			&tm.Member.FirstName,
			&tm.Member.LastName,
			&tm.Member.Nickname,
			&tm.Member.Email,
			&tm.Member.Phone,
			&tm.Member.Role,
			&tm.Member.IsActive,
			&tm.Member.CreatedAt,
			&tm.Member.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		roster = append(roster, tm)
	}

	return roster, rows.Err()
}

// GetTeamsOfMember получает идентификаторы команд участника
func (r *TeamRepository) GetTeamsOfMember(ctx context.Context, memberID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT team_id FROM team_members WHERE member_id = $1`

	rows, err := r.Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("get teams of member: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan team id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// prefixedMemberColumns возвращает список колонок участника с алиасом таблицы
func prefixedMemberColumns(alias string) string {
	return alias + `.id, ` + alias + `.auth_subject, ` + alias + `.first_name, ` + alias + `.last_name, ` +
		alias + `.nickname, ` + alias + `.email, ` + alias + `.phone, ` + alias + `.role, ` +
		alias + `.is_active, ` + alias + `.created_at, ` + alias + `.updated_at`
}
