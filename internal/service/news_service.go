package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

// Сырой HTML в тексте новости вырезается: WithUnsafe не включаем
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// NewsStore хранилище новостей
type NewsStore interface {
	Create(ctx context.Context, p *model.NewsPost) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.NewsPost, error)
	List(ctx context.Context, limit, offset int) ([]*model.NewsPost, error)
	Update(ctx context.Context, p *model.NewsPost) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// NewsService управляет новостной лентой клуба. Тексты хранятся в Markdown
// и рендерятся в HTML при чтении, закреплённые новости идут первыми.
type NewsService struct {
	news      NewsStore
	announcer Announcer
	logger    *zap.Logger
}

// NewNewsService создаёт новый сервис новостей
func NewNewsService(news NewsStore, announcer Announcer, logger *zap.Logger) *NewsService {
	return &NewsService{
		news:      news,
		announcer: announcer,
		logger:    logger,
	}
}

// Publish публикует новость. Доступно администраторам и тренерам.
func (s *NewsService) Publish(ctx context.Context, actor *model.Member, title, body string, pinned bool) (*model.NewsPost, error) {
	if !actor.CanManage() {
		return nil, fmt.Errorf("member is not allowed to publish news")
	}
	if title == "" {
		return nil, fmt.Errorf("news title is required")
	}
	if body == "" {
		return nil, fmt.Errorf("news body is required")
	}

	post := &model.NewsPost{
		Title:    title,
		Body:     body,
		IsPinned: pinned,
		AuthorID: actor.ID,
	}
	if err := s.news.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create news post: %w", err)
	}

	s.logger.Info("News post published",
		zap.String("post_id", post.ID.String()),
		zap.String("title", post.Title),
		zap.Bool("pinned", post.IsPinned))

	if s.announcer != nil {
		s.announcer.NewsPublished(post)
	}

	if err := s.render(post); err != nil {
		return nil, err
	}
	return post, nil
}

// Update правит новость
func (s *NewsService) Update(ctx context.Context, actor *model.Member, id uuid.UUID, title, body string, pinned bool) (*model.NewsPost, error) {
	if !actor.CanManage() {
		return nil, fmt.Errorf("member is not allowed to publish news")
	}

	post, err := s.news.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get news post: %w", err)
	}
	if post == nil {
		return nil, fmt.Errorf("news post not found")
	}
	if title == "" {
		return nil, fmt.Errorf("news title is required")
	}
	if body == "" {
		return nil, fmt.Errorf("news body is required")
	}

	post.Title = title
	post.Body = body
	post.IsPinned = pinned

	if err := s.news.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update news post: %w", err)
	}

	s.logger.Info("News post updated", zap.String("post_id", post.ID.String()))

	if err := s.render(post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete удаляет новость
func (s *NewsService) Delete(ctx context.Context, actor *model.Member, id uuid.UUID) error {
	if !actor.CanManage() {
		return fmt.Errorf("member is not allowed to publish news")
	}

	post, err := s.news.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get news post: %w", err)
	}
	if post == nil {
		return fmt.Errorf("news post not found")
	}

	if err := s.news.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete news post: %w", err)
	}

	s.logger.Info("News post deleted", zap.String("post_id", id.String()))
	return nil
}

// Get возвращает новость с отрендеренным текстом
func (s *NewsService) Get(ctx context.Context, id uuid.UUID) (*model.NewsPost, error) {
	post, err := s.news.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get news post: %w", err)
	}
	if post == nil {
		return nil, fmt.Errorf("news post not found")
	}

	if err := s.render(post); err != nil {
		return nil, err
	}
	return post, nil
}

// List возвращает ленту новостей: сначала закреплённые, затем по дате
func (s *NewsService) List(ctx context.Context, limit, offset int) ([]*model.NewsPost, error) {
	posts, err := s.news.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list news posts: %w", err)
	}

	for _, post := range posts {
		if err := s.render(post); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (s *NewsService) render(post *model.NewsPost) error {
	html, err := RenderMarkdown(post.Body)
	if err != nil {
		return fmt.Errorf("render news post %s: %w", post.ID, err)
	}
	post.BodyHTML = html
	return nil
}

// RenderMarkdown переводит Markdown в HTML, сырые теги не пропускаются
func RenderMarkdown(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
