package model

import (
	"time"

	"github.com/google/uuid"
)

type TeamRole string

const (
	TeamRoleCaptain TeamRole = "captain"
	TeamRolePlayer  TeamRole = "player"
)

// Team представляет команду клуба
type Team struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
	Color     string    `json:"color"` // hex цвет для календаря
	SortOrder int       `json:"sort_order"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamMember связывает участника с командой
type TeamMember struct {
	TeamID   uuid.UUID `json:"team_id"`
	MemberID uuid.UUID `json:"member_id"`
	Role     TeamRole  `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	Member   *Member   `json:"member,omitempty"` // заполняется при выборке состава
}
