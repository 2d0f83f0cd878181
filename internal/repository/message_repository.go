package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campus-service/internal/domain"
)

// MessageFilter pages through a discussion's messages.
// Limit 0 returns every message.
type MessageFilter struct {
	Limit  int
	Offset int
	Desc   bool
}

// MessageRepository manages discussion messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	ListByDiscussion(ctx context.Context, discussionID string, filter MessageFilter) ([]domain.Message, error)
	UpdateContent(ctx context.Context, msg *domain.Message) error
	Delete(ctx context.Context, id string) error
	DeleteByDiscussion(ctx context.Context, discussionID string) (int64, error)
}

type messageRepository struct {
	db DBTX
}

// NewMessageRepository builds repository.
func NewMessageRepository(db DBTX) MessageRepository {
	return &messageRepository{db: db}
}

const messageColumns = `id, discussion_id, author_id, author_role, content, created_at, updated_at`

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (id, discussion_id, author_id, author_role, content)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		msg.ID,
		msg.DiscussionID,
		msg.AuthorID,
		msg.AuthorRole,
		msg.Content,
	).Scan(&msg.CreatedAt, &msg.UpdatedAt)
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return scanMessage(r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, id))
}

func (r *messageRepository) ListByDiscussion(ctx context.Context, discussionID string, filter MessageFilter) ([]domain.Message, error) {
	if !validID(discussionID) {
		return []domain.Message{}, nil
	}
	query := `SELECT ` + messageColumns + ` FROM messages WHERE discussion_id=$1`
	if filter.Desc {
		query += ` ORDER BY created_at DESC, id DESC`
	} else {
		query += ` ORDER BY created_at ASC, id ASC`
	}
	args := []any{discussionID}
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += ` LIMIT $2 OFFSET $3`
	} else if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $2`
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *msg)
	}
	return result, rows.Err()
}

// UpdateContent writes only content and updated_at; author fields are never rewritten.
func (r *messageRepository) UpdateContent(ctx context.Context, msg *domain.Message) error {
	if !validID(msg.ID) {
		return pgx.ErrNoRows
	}
	const query = `
        UPDATE messages SET content=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query, msg.Content, msg.ID).Scan(&msg.UpdatedAt)
}

func (r *messageRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return pgx.ErrNoRows
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *messageRepository) DeleteByDiscussion(ctx context.Context, discussionID string) (int64, error) {
	if !validID(discussionID) {
		return 0, nil
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM messages WHERE discussion_id=$1`, discussionID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	if err := row.Scan(
		&msg.ID,
		&msg.DiscussionID,
		&msg.AuthorID,
		&msg.AuthorRole,
		&msg.Content,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}
