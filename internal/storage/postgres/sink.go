// Package postgres records scan results so repeated runs can be compared
// without re-querying the lookup service.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"avcheck/internal/roster/models"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS voters_with_ballots (
	first_name  TEXT        NOT NULL,
	last_name   TEXT        NOT NULL,
	birth_month INT         NOT NULL,
	birth_year  INT         NOT NULL,
	zip         TEXT        NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (first_name, last_name, birth_year, zip)
)`

const insertSQL = `
INSERT INTO voters_with_ballots (first_name, last_name, birth_month, birth_year, zip)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (first_name, last_name, birth_year, zip) DO NOTHING`

// Sink persists target-group voters in PostgreSQL. Insert-only: conflicts on
// the identity columns are ignored so re-running a scan is safe.
type Sink struct {
	pool *pgxpool.Pool
}

// NewSink connects to the given DSN and ensures the results table exists.
func NewSink(ctx context.Context, dsn string) (*Sink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure results table: %w", err)
	}
	return &Sink{pool: pool}, nil
}

// Record inserts the given voters. Every voter must carry a resolved month.
func (s *Sink) Record(ctx context.Context, voters []*models.Voter) error {
	for _, v := range voters {
		if !v.MonthKnown() {
			return fmt.Errorf("voter %s,%s has no resolved birth month", v.First, v.Last)
		}
		if _, err := s.pool.Exec(ctx, insertSQL, v.First, v.Last, v.BirthMonth, v.BirthYear, v.Zip); err != nil {
			return fmt.Errorf("record voter: %w", err)
		}
	}
	return nil
}

func (s *Sink) Close() {
	s.pool.Close()
}
