package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Предел длины одного сообщения
const maxChatMessageLen = 2000

// ChatStore хранилище комнат и сообщений
type ChatStore interface {
	CreateRoom(ctx context.Context, room *model.ChatRoom) error
	GetRoom(ctx context.Context, id uuid.UUID) (*model.ChatRoom, error)
	ListRooms(ctx context.Context) ([]*model.ChatRoom, error)
	DeleteRoom(ctx context.Context, id uuid.UUID) error
	CreateMessage(ctx context.Context, msg *model.ChatMessage) error
	ListMessages(ctx context.Context, roomID uuid.UUID, beforeID int64, limit int) ([]*model.ChatMessage, error)
}

// MembershipSource список команд участника для проверки доступа к комнатам
type MembershipSource interface {
	GetTeamsOfMember(ctx context.Context, memberID uuid.UUID) ([]uuid.UUID, error)
}

// ChatService управляет комнатами чата и сообщениями. Командные комнаты
// доступны только составу команды, общие — всем участникам клуба.
type ChatService struct {
	chats       ChatStore
	memberships MembershipSource
	logger      *zap.Logger
}

// NewChatService создаёт новый сервис чата
func NewChatService(chats ChatStore, memberships MembershipSource, logger *zap.Logger) *ChatService {
	return &ChatService{
		chats:       chats,
		memberships: memberships,
		logger:      logger,
	}
}

// CreateRoom заводит общую комнату клуба. Командные комнаты создаются
// автоматически вместе с командой.
func (s *ChatService) CreateRoom(ctx context.Context, actor *model.Member, name string) (*model.ChatRoom, error) {
	if !actor.CanManage() {
		return nil, fmt.Errorf("member is not allowed to manage chat rooms")
	}
	if name == "" {
		return nil, fmt.Errorf("room name is required")
	}

	room := &model.ChatRoom{Name: name}
	if err := s.chats.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("create chat room: %w", err)
	}

	s.logger.Info("Chat room created",
		zap.String("room_id", room.ID.String()),
		zap.String("name", room.Name))

	return room, nil
}

// DeleteRoom удаляет комнату вместе с историей
func (s *ChatService) DeleteRoom(ctx context.Context, actor *model.Member, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("member is not allowed to delete chat rooms")
	}

	room, err := s.chats.GetRoom(ctx, id)
	if err != nil {
		return fmt.Errorf("get chat room: %w", err)
	}
	if room == nil {
		return fmt.Errorf("chat room not found")
	}

	if err := s.chats.DeleteRoom(ctx, id); err != nil {
		return fmt.Errorf("delete chat room: %w", err)
	}

	s.logger.Info("Chat room deleted", zap.String("room_id", id.String()))
	return nil
}

// Rooms возвращает комнаты, доступные участнику
func (s *ChatService) Rooms(ctx context.Context, member *model.Member) ([]*model.ChatRoom, error) {
	rooms, err := s.chats.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chat rooms: %w", err)
	}

	if member.CanManage() {
		return rooms, nil
	}

	teamIDs, err := s.memberships.GetTeamsOfMember(ctx, member.ID)
	if err != nil {
		return nil, fmt.Errorf("get member teams: %w", err)
	}

	visible := make([]*model.ChatRoom, 0, len(rooms))
	for _, room := range rooms {
		if s.allowed(room, teamIDs) {
			visible = append(visible, room)
		}
	}
	return visible, nil
}

// History возвращает сообщения комнаты, новые первыми. beforeID задаёт
// курсор постраничной прокрутки, ноль начинает с конца.
func (s *ChatService) History(ctx context.Context, member *model.Member, roomID uuid.UUID, beforeID int64, limit int) ([]*model.ChatMessage, error) {
	room, err := s.access(ctx, member, roomID)
	if err != nil {
		return nil, err
	}

	messages, err := s.chats.ListMessages(ctx, room.ID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	return messages, nil
}

// Post отправляет сообщение в комнату
func (s *ChatService) Post(ctx context.Context, member *model.Member, roomID uuid.UUID, body string) (*model.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("message body is required")
	}
	if len([]rune(body)) > maxChatMessageLen {
		return nil, fmt.Errorf("message body exceeds %d characters", maxChatMessageLen)
	}

	room, err := s.access(ctx, member, roomID)
	if err != nil {
		return nil, err
	}

	message := &model.ChatMessage{
		RoomID:   room.ID,
		AuthorID: member.ID,
		Body:     body,
	}
	if err := s.chats.CreateMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("create chat message: %w", err)
	}
	message.Author = member

	s.logger.Info("Chat message posted",
		zap.String("room_id", room.ID.String()),
		zap.Int64("message_id", message.ID))

	return message, nil
}

// access находит комнату и проверяет право участника писать и читать в ней
func (s *ChatService) access(ctx context.Context, member *model.Member, roomID uuid.UUID) (*model.ChatRoom, error) {
	room, err := s.chats.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get chat room: %w", err)
	}
	if room == nil {
		return nil, fmt.Errorf("chat room not found")
	}

	if room.TeamID == nil || member.CanManage() {
		return room, nil
	}

	teamIDs, err := s.memberships.GetTeamsOfMember(ctx, member.ID)
	if err != nil {
		return nil, fmt.Errorf("get member teams: %w", err)
	}
	if !s.allowed(room, teamIDs) {
		return nil, fmt.Errorf("member is not in the room's team")
	}
	return room, nil
}

// allowed проверяет видимость комнаты для участника с данными командами
func (s *ChatService) allowed(room *model.ChatRoom, teamIDs []uuid.UUID) bool {
	if room.TeamID == nil {
		return true
	}
	for _, id := range teamIDs {
		if id == *room.TeamID {
			return true
		}
	}
	return false
}
