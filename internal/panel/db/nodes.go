package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/blockpanel/blockpanel/internal/panel/node"
)

const nodeColumns = `id, name, fqdn, port, use_tls, token, memory_mb, disk_mb,
	ports_start, ports_end, status, version, created_at, updated_at, last_checked_at`

// CreateNode inserts a new node record.
func (q *Queries) CreateNode(ctx context.Context, n *node.Node) error {
	query := `
		INSERT INTO nodes (id, name, fqdn, port, use_tls, token, memory_mb, disk_mb,
			ports_start, ports_end, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.db.ExecContext(ctx, query,
		n.ID, n.Name, n.FQDN, n.Port, n.UseTLS, n.Token, n.MemoryMB, n.DiskMB,
		n.PortsStart, n.PortsEnd, n.Status, n.Version, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return node.NewConflictError("node", n.Name, "name or FQDN already registered")
		}
		return fmt.Errorf("failed to create node: %w", err)
	}
	return nil
}

// GetNode fetches a node by ID.
func (q *Queries) GetNode(ctx context.Context, id string) (*node.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = ?`
	return q.scanNode(q.db.QueryRowContext(ctx, query, id))
}

// GetNodeByName fetches a node by its unique name.
func (q *Queries) GetNodeByName(ctx context.Context, name string) (*node.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE name = ?`
	return q.scanNode(q.db.QueryRowContext(ctx, query, name))
}

// ListNodes returns all registered nodes ordered by name.
func (q *Queries) ListNodes(ctx context.Context) ([]*node.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes ORDER BY name`

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*node.Node
	for rows.Next() {
		n, err := scanNodeRow(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// UpdateNode persists all mutable node fields with optimistic locking.
// The caller's in-memory version must match the stored version minus one
// increment, i.e. the caller bumps Version before calling.
func (q *Queries) UpdateNode(ctx context.Context, n *node.Node) error {
	query := `
		UPDATE nodes
		SET name = ?, fqdn = ?, port = ?, use_tls = ?, token = ?, memory_mb = ?,
			disk_mb = ?, ports_start = ?, ports_end = ?, status = ?, version = ?,
			updated_at = ?, last_checked_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := q.db.ExecContext(ctx, query,
		n.Name, n.FQDN, n.Port, n.UseTLS, n.Token, n.MemoryMB,
		n.DiskMB, n.PortsStart, n.PortsEnd, n.Status, n.Version,
		n.UpdatedAt, nullableTime(n.LastCheckedAt),
		n.ID, n.Version-1,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return node.NewConflictError("node", n.Name, "name or FQDN already registered")
		}
		return fmt.Errorf("failed to update node: %w", err)
	}
	return checkNodeAffected(result)
}

// UpdateNodeStatus persists only the health-check fields.
func (q *Queries) UpdateNodeStatus(ctx context.Context, n *node.Node) error {
	query := `
		UPDATE nodes
		SET status = ?, version = ?, updated_at = ?, last_checked_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := q.db.ExecContext(ctx, query,
		n.Status, n.Version, n.UpdatedAt, nullableTime(n.LastCheckedAt),
		n.ID, n.Version-1,
	)
	if err != nil {
		return fmt.Errorf("failed to update node status: %w", err)
	}
	return checkNodeAffected(result)
}

// DeleteNode removes a node record.
func (q *Queries) DeleteNode(ctx context.Context, id string) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return node.ErrNodeNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (q *Queries) scanNode(row *sql.Row) (*node.Node, error) {
	n, err := scanNodeRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, node.ErrNodeNotFound
	}
	return n, err
}

func scanNodeRow(row rowScanner) (*node.Node, error) {
	var n node.Node
	var lastChecked sql.NullTime

	err := row.Scan(
		&n.ID, &n.Name, &n.FQDN, &n.Port, &n.UseTLS, &n.Token, &n.MemoryMB, &n.DiskMB,
		&n.PortsStart, &n.PortsEnd, &n.Status, &n.Version, &n.CreatedAt, &n.UpdatedAt,
		&lastChecked,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan node: %w", err)
	}

	if lastChecked.Valid {
		n.LastCheckedAt = &lastChecked.Time
	}
	return &n, nil
}

func checkNodeAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return node.ErrConcurrentModification
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
