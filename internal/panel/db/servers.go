package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blockpanel/blockpanel/internal/panel/server"
)

const serverColumns = `id, uuid, name, node_id, docker_image, memory_mb, disk_mb,
	port, edition, game_version, status, version, created_at, updated_at`

// CreateServer inserts a new server record.
func (q *Queries) CreateServer(ctx context.Context, s *server.Server) error {
	query := `
		INSERT INTO servers (id, uuid, name, node_id, docker_image, memory_mb, disk_mb,
			port, edition, game_version, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.db.ExecContext(ctx, query,
		s.ID, s.UUID, s.Name, s.NodeID, s.DockerImage, s.MemoryMB, s.DiskMB,
		s.Port, s.Edition, s.GameVersion, s.Status, s.Version, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return server.ErrUUIDConflict
		}
		return fmt.Errorf("failed to create server: %w", err)
	}
	return nil
}

// GetServer fetches a server by its panel ID.
func (q *Queries) GetServer(ctx context.Context, id string) (*server.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE id = ?`
	return q.scanServer(q.db.QueryRowContext(ctx, query, id))
}

// GetServerByUUID fetches a server by its daemon-side UUID.
func (q *Queries) GetServerByUUID(ctx context.Context, uuid string) (*server.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE uuid = ?`
	return q.scanServer(q.db.QueryRowContext(ctx, query, uuid))
}

// ListServers returns all server records ordered by name.
func (q *Queries) ListServers(ctx context.Context) ([]*server.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers ORDER BY name`
	return q.queryServers(ctx, query)
}

// ListServersByNode returns all servers placed on one node.
func (q *Queries) ListServersByNode(ctx context.Context, nodeID string) ([]*server.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE node_id = ? ORDER BY name`
	return q.queryServers(ctx, query, nodeID)
}

// UpdateServerStatus persists a status change with optimistic locking.
// The caller bumps Version before calling.
func (q *Queries) UpdateServerStatus(ctx context.Context, s *server.Server) error {
	query := `
		UPDATE servers
		SET status = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := q.db.ExecContext(ctx, query,
		s.Status, s.Version, s.UpdatedAt,
		s.ID, s.Version-1,
	)
	if err != nil {
		return fmt.Errorf("failed to update server status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return server.ErrConcurrentModification
	}
	return nil
}

// DeleteServer removes a server record.
func (q *Queries) DeleteServer(ctx context.Context, id string) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return server.ErrServerNotFound
	}
	return nil
}

func (q *Queries) scanServer(row *sql.Row) (*server.Server, error) {
	s, err := scanServerRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, server.ErrServerNotFound
	}
	return s, err
}

func (q *Queries) queryServers(ctx context.Context, query string, args ...any) ([]*server.Server, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	var servers []*server.Server
	for rows.Next() {
		s, err := scanServerRow(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	return servers, rows.Err()
}

func scanServerRow(row rowScanner) (*server.Server, error) {
	var s server.Server

	err := row.Scan(
		&s.ID, &s.UUID, &s.Name, &s.NodeID, &s.DockerImage, &s.MemoryMB, &s.DiskMB,
		&s.Port, &s.Edition, &s.GameVersion, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan server: %w", err)
	}
	return &s, nil
}
