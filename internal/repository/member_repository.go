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

// MemberRepository управляет участниками клуба в базе данных
type MemberRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewMemberRepository создаёт новый репозиторий
func NewMemberRepository(b *base.Repository, logger *zap.Logger) *MemberRepository {
	return &MemberRepository{Repository: b, logger: logger}
}

const memberColumns = `id, auth_subject, first_name, last_name, nickname, email, phone, role, is_active, created_at, updated_at`

func scanMember(row pgx.Row) (*model.Member, error) {
	m := &model.Member{}
	err := row.Scan(
		&m.ID,
		&m.AuthSubject,
		&m.FirstName,
		&m.LastName,
		&m.Nickname,
		&m.Email,
		&m.Phone,
		&m.Role,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Upsert создаёт участника или обновляет профиль по auth_subject
func (r *MemberRepository) Upsert(ctx context.Context, m *model.Member) error {
	query := `
		INSERT INTO members (auth_subject, first_name, last_name, nickname, email, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (auth_subject) DO UPDATE
		SET first_name = EXCLUDED.first_name,
		    last_name  = EXCLUDED.last_name,
		    nickname   = EXCLUDED.nickname,
		    email      = EXCLUDED.email,
		    phone      = EXCLUDED.phone,
		    updated_at = now()
		RETURNING id, role, is_active, created_at, updated_at
	`

	err := r.QueryRow(
		ctx,
		query,
		m.AuthSubject,
		m.FirstName,
		m.LastName,
		m.Nickname,
		m.Email,
		m.Phone,
		m.Role,
	).Scan(&m.ID, &m.Role, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}

	return nil
}

// GetByID получает участника по ID
func (r *MemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	m, err := scanMember(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member by id: %w", err)
	}

	return m, nil
}

// GetByAuthSubject получает участника по внешнему идентификатору
func (r *MemberRepository) GetByAuthSubject(ctx context.Context, subject string) (*model.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE auth_subject = $1`

	m, err := scanMember(r.QueryRow(ctx, query, subject))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member by auth subject: %w", err)
	}

	return m, nil
}

// List получает участников, по умолчанию только активных
func (r *MemberRepository) List(ctx context.Context, includeInactive bool) ([]*model.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE is_active OR $1 ORDER BY last_name, first_name`

	rows, err := r.Query(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []*model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// GetByIDs получает участников по списку идентификаторов
func (r *MemberRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = ANY($1)`

	rows, err := r.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get members by ids: %w", err)
	}
	defer rows.Close()

	var members []*model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// UpdateProfile обновляет профиль участника
func (r *MemberRepository) UpdateProfile(ctx context.Context, m *model.Member) error {
	query := `
		UPDATE members
		SET first_name = $2, last_name = $3, nickname = $4, email = $5, phone = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.QueryRow(ctx, query, m.ID, m.FirstName, m.LastName, m.Nickname, m.Email, m.Phone).
		Scan(&m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update member profile: %w", err)
	}

	return nil
}

// SetRole меняет роль участника
func (r *MemberRepository) SetRole(ctx context.Context, id uuid.UUID, role model.MemberRole) error {
	query := `UPDATE members SET role = $2, updated_at = now() WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id, role)
	if err != nil {
		return fmt.Errorf("set member role: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("member not found")
	}

	return nil
}

// SetActive активирует или деактивирует участника
func (r *MemberRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE members SET is_active = $2, updated_at = now() WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("set member active: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("member not found")
	}

	return nil
}
