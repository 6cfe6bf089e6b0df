// Package postgres implements a Postgres-backed batch sink. Each batch is one
// row holding the records as a JSONB array.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaval/estate-harvester/internal/harvest"
	"github.com/ekaval/estate-harvester/internal/record"
)

// Postgres unique_violation.
const uniqueViolationCode = "23505"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for batch rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Sink writes batch rows into Postgres.
type Sink struct {
	pool  pgxPool
	table string
}

var _ harvest.Sink = (*Sink)(nil)

// New creates a Postgres-backed sink using the provided config.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sink.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Sink{pool: pool, table: table}, nil
}

// NewWithPool constructs a sink from an existing pool (primarily for testing).
func NewWithPool(pool pgxPool, table string) (*Sink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Sink{pool: pool, table: name}, nil
}

// Close releases the underlying pool resources.
func (s *Sink) Close() {
	s.pool.Close()
}

// WriteBatch inserts one row per batch. A primary key collision on the batch
// identifier surfaces as harvest.ErrBatchExists.
func (s *Sink) WriteBatch(ctx context.Context, id string, records []record.Merged) error {
	if id == "" {
		return fmt.Errorf("batch id is required")
	}
	if records == nil {
		records = []record.Merged{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal batch %s: %w", id, err)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (batch_id, records, created_at) VALUES ($1, $2, $3)", s.table)
	if _, err := s.pool.Exec(ctx, query, id, payload, time.Now().UTC()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("batch %s: %w", id, harvest.ErrBatchExists)
		}
		return fmt.Errorf("insert batch %s: %w", id, err)
	}
	return nil
}

// ReadBatch loads the records of one batch.
func (s *Sink) ReadBatch(ctx context.Context, id string) ([]record.Merged, error) {
	query := fmt.Sprintf("SELECT records FROM %s WHERE batch_id = $1", s.table)
	var payload []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&payload); err != nil {
		return nil, fmt.Errorf("select batch %s: %w", id, err)
	}
	var records []record.Merged
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("unmarshal batch %s: %w", id, err)
	}
	return records, nil
}

// ListBatchIDs returns every stored batch identifier in lexical order.
func (s *Sink) ListBatchIDs(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT batch_id FROM %s ORDER BY batch_id", s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan batch id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return ids, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = "harvest_batches"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}
