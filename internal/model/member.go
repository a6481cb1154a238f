package model

import (
	"time"

	"github.com/google/uuid"
)

type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleStaff  MemberRole = "staff"
	RoleMember MemberRole = "member"
)

// Member представляет участника клуба
type Member struct {
	ID          uuid.UUID  `json:"id"`
	AuthSubject string     `json:"auth_subject"` // идентификатор из внешней системы авторизации
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Nickname    string     `json:"nickname"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Role        MemberRole `json:"role"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DisplayName возвращает имя для отображения: прозвище или полное имя
func (m *Member) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

// IsAdmin проверяет административные права
func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// CanManage проверяет права на управление контентом (админ или руководство)
func (m *Member) CanManage() bool {
	return m.Role == RoleAdmin || m.Role == RoleStaff
}
