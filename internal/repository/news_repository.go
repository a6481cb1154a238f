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

// NewsRepository управляет новостями клуба в базе данных
type NewsRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewNewsRepository создаёт новый репозиторий
func NewNewsRepository(b *base.Repository, logger *zap.Logger) *NewsRepository {
	return &NewsRepository{Repository: b, logger: logger}
}

const newsColumns = `id, title, body, is_pinned, author_id, published_at, updated_at`

func scanNewsPost(row pgx.Row) (*model.NewsPost, error) {
	p := &model.NewsPost{}
	err := row.Scan(&p.ID, &p.Title, &p.Body, &p.IsPinned, &p.AuthorID, &p.PublishedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create создаёт новость
func (r *NewsRepository) Create(ctx context.Context, p *model.NewsPost) error {
	query := `
		INSERT INTO news_posts (title, body, is_pinned, author_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, published_at, updated_at
	`

	err := r.QueryRow(ctx, query, p.Title, p.Body, p.IsPinned, p.AuthorID).
		Scan(&p.ID, &p.PublishedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create news post: %w", err)
	}

	return nil
}

// GetByID получает новость по ID
func (r *NewsRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.NewsPost, error) {
	query := `SELECT ` + newsColumns + ` FROM news_posts WHERE id = $1`

	p, err := scanNewsPost(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get news post by id: %w", err)
	}

	return p, nil
}

// List получает новости: закреплённые первыми, затем по дате публикации
func (r *NewsRepository) List(ctx context.Context, limit, offset int) ([]*model.NewsPost, error) {
	query := `
		SELECT ` + newsColumns + `
		FROM news_posts
		ORDER BY is_pinned DESC, published_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list news posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.NewsPost
	for rows.Next() {
		p, err := scanNewsPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan news post: %w", err)
		}
		posts = append(posts, p)
	}

	return posts, rows.Err()
}

// Update обновляет новость
func (r *NewsRepository) Update(ctx context.Context, p *model.NewsPost) error {
	query := `
		UPDATE news_posts
		SET title = $2, body = $3, is_pinned = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.QueryRow(ctx, query, p.ID, p.Title, p.Body, p.IsPinned).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update news post: %w", err)
	}

	return nil
}

// Delete удаляет новость
func (r *NewsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM news_posts WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete news post: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("news post not found")
	}

	return nil
}
