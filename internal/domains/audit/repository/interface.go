package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"digistore-backend/internal/domains/audit/model"
)

// ListFilter narrows the admin audit view.
type ListFilter struct {
	Action     string
	EntityType string
	ActorID    string
	From       *time.Time
	To         *time.Time
}

type RepositoryInterface interface {
	// AppendWithTx writes an entry inside the transaction that performed the
	// mutation being recorded, so the entry exists iff the mutation committed.
	AppendWithTx(ctx context.Context, tx pgx.Tx, entry *model.Entry) error

	// Append writes an entry outside any caller transaction.
	Append(ctx context.Context, entry *model.Entry) error

	List(ctx context.Context, filter ListFilter, page, limit int) ([]model.Entry, int, error)
}
