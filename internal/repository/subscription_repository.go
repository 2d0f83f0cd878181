package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campus-service/internal/domain"
)

// SubscriptionRepository stores push endpoints.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *domain.PushSubscription) error
	List(ctx context.Context) ([]domain.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

type subscriptionRepository struct {
	db DBTX
}

// NewSubscriptionRepository builds repository.
func NewSubscriptionRepository(db DBTX) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert registers the endpoint, re-binding it to the caller when it already exists.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *domain.PushSubscription) error {
	const query = `
        INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (endpoint) DO UPDATE
            SET user_id=EXCLUDED.user_id, p256dh=EXCLUDED.p256dh, auth=EXCLUDED.auth
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, sub.ID, sub.UserID, sub.Endpoint, sub.P256DH, sub.Auth).
		Scan(&sub.ID, &sub.CreatedAt)
}

func (r *subscriptionRepository) List(ctx context.Context) ([]domain.PushSubscription, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, user_id, endpoint, p256dh, auth, created_at
        FROM push_subscriptions ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PushSubscription
	for rows.Next() {
		var s domain.PushSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256DH, &s.Auth, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *subscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint=$1`, endpoint)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
