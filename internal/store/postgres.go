// Package store keeps an optional history of predictions in Postgres.
package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // register postgres driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/GlucoRisk/internal/features"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Record is one stored prediction. No user-identifying data is kept.
type Record struct {
	ID          uuid.UUID       `json:"id"`
	CreatedAt   time.Time       `json:"createdAt"`
	Vector      features.Vector `json:"features"`
	Probability float64         `json:"probability"`
	Tier        string          `json:"tier"`
}

// Postgres is a pgxpool-backed history store.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Migrate applies the embedded schema migrations. No pending migrations is
// not an error.
func Migrate(url string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("store: create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: run migrations up: %w", err)
	}
	return nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgres) Close() {
	s.pool.Close()
}

// Save inserts one record.
func (s *Postgres) Save(ctx context.Context, r Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO predictions (id, created_at, features, probability, tier)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.ID.String(), r.CreatedAt, r.Vector.Slice(), r.Probability, r.Tier,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Postgres) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, created_at, features, probability, tier
		 FROM predictions
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			r   Record
			id  string
			vec []float64
		)
		if err := rows.Scan(&id, &r.CreatedAt, &vec, &r.Probability, &r.Tier); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse prediction id: %w", err)
		}
		if len(vec) != features.Size {
			return nil, fmt.Errorf("prediction %s has %d features", id, len(vec))
		}
		copy(r.Vector[:], vec)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return out, nil
}
