package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campus-service/internal/domain"
)

// CommunityRepository encapsulates community persistence.
type CommunityRepository interface {
	Create(ctx context.Context, community *domain.Community) error
	GetByID(ctx context.Context, id string) (*domain.Community, error)
	GetByName(ctx context.Context, name string) (*domain.Community, error)
	List(ctx context.Context) ([]domain.Community, error)
}

type communityRepository struct {
	db DBTX
}

// NewCommunityRepository instantiates repository.
func NewCommunityRepository(db DBTX) CommunityRepository {
	return &communityRepository{db: db}
}

func (r *communityRepository) Create(ctx context.Context, community *domain.Community) error {
	const query = `
        INSERT INTO communities (id, name, description)
        VALUES ($1, $2, $3)
        RETURNING created_at`
	return r.db.QueryRow(ctx, query, community.ID, community.Name, community.Description).
		Scan(&community.CreatedAt)
}

func (r *communityRepository) GetByID(ctx context.Context, id string) (*domain.Community, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return scanCommunity(r.db.QueryRow(ctx,
		`SELECT id, name, description, created_at FROM communities WHERE id=$1`, id))
}

func (r *communityRepository) GetByName(ctx context.Context, name string) (*domain.Community, error) {
	return scanCommunity(r.db.QueryRow(ctx,
		`SELECT id, name, description, created_at FROM communities WHERE lower(name)=lower($1)`, name))
}

func (r *communityRepository) List(ctx context.Context) ([]domain.Community, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description, created_at FROM communities ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Community
	for rows.Next() {
		community, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *community)
	}
	return result, rows.Err()
}

func scanCommunity(row pgx.Row) (*domain.Community, error) {
	var c domain.Community
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
