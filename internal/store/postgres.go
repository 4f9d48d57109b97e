package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/kirbo/swishsensei/internal/models"
)

type dbStore struct {
	db    *sql.DB
	table string
}

// OpenPostgres connects to dsn and verifies the connection. table is quoted
// with pq.QuoteIdentifier before use.
func OpenPostgres(ctx context.Context, dsn, table string) (Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgres(db, table), nil
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(db *sql.DB, table string) Store {
	return &dbStore{db: db, table: pq.QuoteIdentifier(table)}
}

func (store *dbStore) Init(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	"id"             BIGSERIAL PRIMARY KEY,
	"ts_release"     DOUBLE PRECISION NOT NULL,
	"ts_apex"        DOUBLE PRECISION NOT NULL,
	"classification" SMALLINT NOT NULL,
	"scored"         BOOLEAN NOT NULL DEFAULT FALSE,
	"grip_peak"      INTEGER NOT NULL DEFAULT 0,
	"jump_height"    DOUBLE PRECISION NOT NULL DEFAULT 0,
	"created_at"     TIMESTAMPTZ NOT NULL DEFAULT now()
)`, store.table)
	if _, err := store.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", store.table, err)
	}
	return nil
}

func (store *dbStore) InsertShot(ctx context.Context, shot *models.Shot) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s ("ts_release", "ts_apex", "classification", "scored", "grip_peak", "jump_height", "created_at")
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now())) RETURNING "id", "created_at"`, store.table)

	var createdAt pq.NullTime
	if !shot.CreatedAt.IsZero() {
		createdAt = pq.NullTime{Time: shot.CreatedAt, Valid: true}
	}

	err := store.db.QueryRowContext(ctx, query,
		shot.ReleaseTS, shot.ApexTS, int(shot.Classification), shot.Scored,
		shot.GripPeak, shot.JumpHeight, createdAt,
	).Scan(&shot.ID, &shot.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert shot: %w", err)
	}
	return shot.ID, nil
}

func (store *dbStore) RecentShots(ctx context.Context, limit int) ([]models.Shot, error) {
	query := fmt.Sprintf(`SELECT "id", "ts_release", "ts_apex", "classification", "scored", "grip_peak", "jump_height", "created_at"
FROM %s ORDER BY "id" DESC LIMIT $1`, store.table)

	rows, err := store.db.QueryContext(ctx, query, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query shots: %w", err)
	}
	defer rows.Close()

	var shots []models.Shot
	for rows.Next() {
		var (
			s     models.Shot
			class int
		)
		if err := rows.Scan(&s.ID, &s.ReleaseTS, &s.ApexTS, &class, &s.Scored, &s.GripPeak, &s.JumpHeight, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan shot: %w", err)
		}
		s.Classification = models.Classification(class)
		shots = append(shots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shots: %w", err)
	}
	return shots, nil
}

func (store *dbStore) Close() error {
	return store.db.Close()
}
