package repository

import (
	"context"

	"github.com/spec-kit/campus-service/internal/domain"
)

// NewsRepository persists news posts.
type NewsRepository interface {
	Create(ctx context.Context, news *domain.News) error
	ListWithAuthors(ctx context.Context) ([]domain.News, error)
}

type newsRepository struct {
	db DBTX
}

// NewNewsRepository builds repository.
func NewNewsRepository(db DBTX) NewsRepository {
	return &newsRepository{db: db}
}

func (r *newsRepository) Create(ctx context.Context, news *domain.News) error {
	const query = `
        INSERT INTO news (id, title, content, author_id)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at`
	return r.db.QueryRow(ctx, query, news.ID, news.Title, news.Content, news.AuthorID).
		Scan(&news.CreatedAt)
}

func (r *newsRepository) ListWithAuthors(ctx context.Context) ([]domain.News, error) {
	const query = `
        SELECT n.id, n.title, n.content, n.author_id, n.created_at,
               u.id, u.username, u.email, u.role, u.created_at, u.updated_at
        FROM news n JOIN users u ON u.id = n.author_id
        ORDER BY n.created_at DESC, n.id DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.News{}
	for rows.Next() {
		var (
			n      domain.News
			author domain.User
		)
		if err := rows.Scan(
			&n.ID, &n.Title, &n.Content, &n.AuthorID, &n.CreatedAt,
			&author.ID, &author.Username, &author.Email, &author.Role, &author.CreatedAt, &author.UpdatedAt,
		); err != nil {
			return nil, err
		}
		n.Author = &author
		result = append(result, n)
	}
	return result, rows.Err()
}
