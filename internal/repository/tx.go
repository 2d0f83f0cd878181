package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Stores exposes the repositories bound to one transaction.
type Stores interface {
	Discussions() DiscussionRepository
	Messages() MessageRepository
}

// TxRunner runs functions within a transaction and provides stores bound to that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores Stores) error) error
}

// TxBeginner is implemented by persistence.Postgres.
type TxBeginner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type pgTxRunner struct {
	db TxBeginner
}

// NewTxRunner builds a TxRunner backed by Postgres transactions.
func NewTxRunner(db TxBeginner) TxRunner {
	return &pgTxRunner{db: db}
}

func (r *pgTxRunner) WithTx(ctx context.Context, fn func(stores Stores) error) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(txStores{tx: tx})
	})
}

type txStores struct {
	tx pgx.Tx
}

func (s txStores) Discussions() DiscussionRepository { return NewDiscussionRepository(s.tx) }
func (s txStores) Messages() MessageRepository       { return NewMessageRepository(s.tx) }
