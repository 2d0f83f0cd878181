package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campus-service/internal/domain"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 100
)

// DiscussionRepository encapsulates discussion persistence.
type DiscussionRepository interface {
	Create(ctx context.Context, discussion *domain.Discussion) error
	GetByID(ctx context.Context, id string) (*domain.Discussion, error)
	Search(ctx context.Context, term string, limit int) ([]domain.Discussion, error)
	ListByCommunity(ctx context.Context, communityID string) ([]domain.Discussion, error)
	Delete(ctx context.Context, id string) error
}

type discussionRepository struct {
	db DBTX
}

// NewDiscussionRepository instantiates repository.
func NewDiscussionRepository(db DBTX) DiscussionRepository {
	return &discussionRepository{db: db}
}

const discussionColumns = `id, title, content, author_id, community_id, created_at`

func (r *discussionRepository) Create(ctx context.Context, d *domain.Discussion) error {
	const query = `
        INSERT INTO discussions (id, title, content, author_id, community_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return r.db.QueryRow(ctx, query,
		d.ID,
		d.Title,
		d.Content,
		d.AuthorID,
		d.CommunityID,
	).Scan(&d.CreatedAt)
}

func (r *discussionRepository) GetByID(ctx context.Context, id string) (*domain.Discussion, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return scanDiscussion(r.db.QueryRow(ctx, `SELECT `+discussionColumns+` FROM discussions WHERE id=$1`, id))
}

// Search matches term case-insensitively against title or content, newest first.
func (r *discussionRepository) Search(ctx context.Context, term string, limit int) ([]domain.Discussion, error) {
	const query = `SELECT ` + discussionColumns + `
        FROM discussions
        WHERE title ILIKE $1 ESCAPE '\' OR content ILIKE $1 ESCAPE '\'
        ORDER BY created_at DESC, id DESC
        LIMIT $2`
	return r.list(ctx, query, containsPattern(strings.TrimSpace(term)), clampLimit(limit, defaultSearchLimit, maxSearchLimit))
}

func (r *discussionRepository) ListByCommunity(ctx context.Context, communityID string) ([]domain.Discussion, error) {
	if !validID(communityID) {
		return []domain.Discussion{}, nil
	}
	const query = `SELECT ` + discussionColumns + `
        FROM discussions WHERE community_id=$1
        ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, communityID)
}

func (r *discussionRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return pgx.ErrNoRows
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM discussions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *discussionRepository) list(ctx context.Context, query string, args ...any) ([]domain.Discussion, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Discussion{}
	for rows.Next() {
		d, err := scanDiscussion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func scanDiscussion(row pgx.Row) (*domain.Discussion, error) {
	var d domain.Discussion
	if err := row.Scan(
		&d.ID,
		&d.Title,
		&d.Content,
		&d.AuthorID,
		&d.CommunityID,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}
