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

// ChatRepository управляет чатами и сообщениями в базе данных
type ChatRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewChatRepository создаёт новый репозиторий
func NewChatRepository(b *base.Repository, logger *zap.Logger) *ChatRepository {
	return &ChatRepository{Repository: b, logger: logger}
}

func scanChatRoom(row pgx.Row) (*model.ChatRoom, error) {
	room := &model.ChatRoom{}
	err := row.Scan(&room.ID, &room.Name, &room.TeamID, &room.CreatedAt)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// CreateRoom создаёт чат
func (r *ChatRepository) CreateRoom(ctx context.Context, room *model.ChatRoom) error {
	query := `
		INSERT INTO chat_rooms (name, team_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, room.Name, room.TeamID).Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		return fmt.Errorf("create chat room: %w", err)
	}

	return nil
}

// GetRoom получает чат по ID
func (r *ChatRepository) GetRoom(ctx context.Context, id uuid.UUID) (*model.ChatRoom, error) {
	query := `SELECT id, name, team_id, created_at FROM chat_rooms WHERE id = $1`

	room, err := scanChatRoom(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat room by id: %w", err)
	}

	return room, nil
}

// ListRooms получает все чаты: общие первыми, затем командные
func (r *ChatRepository) ListRooms(ctx context.Context) ([]*model.ChatRoom, error) {
	query := `SELECT id, name, team_id, created_at FROM chat_rooms ORDER BY team_id NULLS FIRST, name`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list chat rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*model.ChatRoom
	for rows.Next() {
		room, err := scanChatRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

// DeleteRoom удаляет чат вместе с сообщениями
func (r *ChatRepository) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM chat_rooms WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete chat room: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("chat room not found")
	}

	return nil
}

// CreateMessage сохраняет сообщение
func (r *ChatRepository) CreateMessage(ctx context.Context, msg *model.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (room_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, sent_at
	`

	err := r.QueryRow(ctx, query, msg.RoomID, msg.AuthorID, msg.Body).Scan(&msg.ID, &msg.SentAt)
	if err != nil {
		return fmt.Errorf("create chat message: %w", err)
	}

	return nil
}

// ListMessages получает сообщения чата от новых к старым.
// beforeID > 0 продолжает пагинацию с указанного сообщения.
func (r *ChatRepository) ListMessages(ctx context.Context, roomID uuid.UUID, beforeID int64, limit int) ([]*model.ChatMessage, error) {
	query := `
		SELECT cm.id, cm.room_id, cm.author_id, cm.body, cm.sent_at, ` + prefixedMemberColumns("m") + `
		FROM chat_messages cm
		JOIN members m ON m.id = cm.author_id
		WHERE cm.room_id = $1 AND ($2 = 0 OR cm.id < $2)
		ORDER BY cm.id DESC
		LIMIT $3
	`

	rows, err := r.Query(ctx, query, roomID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.ChatMessage
	for rows.Next() {
		msg := &model.ChatMessage{Author: &model.Member{}}
		err := rows.Scan(
			&msg.ID,
			&msg.RoomID,
			&msg.AuthorID,
			&msg.Body,
			&msg.SentAt,
			&msg.Author.ID,
			&msg.Author.AuthSubject,
			&msg.Author.FirstName,
			&msg.Author.LastName,
			&msg.Author.Nickname,
			&msg.Author.Email,
			&msg.Author.Phone,
			&msg.Author.Role,
			&msg.Author.IsActive,
			&msg.Author.CreatedAt,
			&msg.Author.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
