package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// DBStorage implements the store.Storage interface on PostgreSQL with
// pgvector for the word-embedding cache.
type DBStorage struct {
	conn pgxIConn
}

var _ store.Storage = (*DBStorage)(nil)

// NewDBStorageWithConnection creates a DBStorage over an existing connection
// or pool. The schema is managed by the migrations directory, not here.
func NewDBStorageWithConnection(conn pgxIConn) *DBStorage {
	return &DBStorage{conn: conn}
}
