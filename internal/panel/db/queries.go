package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/blockpanel/blockpanel/internal/panel/node"
	"github.com/blockpanel/blockpanel/internal/panel/server"
)

// DBTX is the common interface between *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Querier is the query surface shared by the store and transactions
type Querier interface {
	// Node queries
	CreateNode(ctx context.Context, n *node.Node) error
	GetNode(ctx context.Context, id string) (*node.Node, error)
	GetNodeByName(ctx context.Context, name string) (*node.Node, error)
	ListNodes(ctx context.Context) ([]*node.Node, error)
	UpdateNode(ctx context.Context, n *node.Node) error
	UpdateNodeStatus(ctx context.Context, n *node.Node) error
	DeleteNode(ctx context.Context, id string) error

	// Server queries
	CreateServer(ctx context.Context, s *server.Server) error
	GetServer(ctx context.Context, id string) (*server.Server, error)
	GetServerByUUID(ctx context.Context, uuid string) (*server.Server, error)
	ListServers(ctx context.Context) ([]*server.Server, error)
	ListServersByNode(ctx context.Context, nodeID string) ([]*server.Server, error)
	UpdateServerStatus(ctx context.Context, s *server.Server) error
	DeleteServer(ctx context.Context, id string) error
}

// Queries executes statements against a database or transaction
type Queries struct {
	db DBTX
}

// New creates a Queries instance bound to db
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
