package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/google/uuid"
	"github.com/tinoosan/contentd/internal/data"
)

// PostgresRunRepo implements RunRepo backed by PostgreSQL, for agents that
// want run history to outlive the process.
type PostgresRunRepo struct {
	db *sql.DB
}

// NewPostgresRunRepo constructs a repository using the provided DSN.
func NewPostgresRunRepo(dsn string) (*PostgresRunRepo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	r := &PostgresRunRepo{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// NewPostgresRunRepoFromEnv constructs a DSN using component env vars.
// Recognized envs (with defaults):
//
//	POSTGRES_HOST (postgres), POSTGRES_PORT (5432), POSTGRES_DB (contentd),
//	POSTGRES_USER (contentd), POSTGRES_PASSWORD (empty), POSTGRES_SSLMODE (disable)
func NewPostgresRunRepoFromEnv() (*PostgresRunRepo, error) {
	host := getenv("POSTGRES_HOST", "postgres")
	port := getenv("POSTGRES_PORT", "5432")
	db := getenv("POSTGRES_DB", "contentd")
	user := getenv("POSTGRES_USER", "contentd")
	pass := getenv("POSTGRES_PASSWORD", "")
	ssl := getenv("POSTGRES_SSLMODE", "disable")

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, pass),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	q := url.Values{}
	q.Set("sslmode", ssl)
	u.RawQuery = q.Encode()
	return NewPostgresRunRepo(u.String())
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func (r *PostgresRunRepo) Close() error { return r.db.Close() }

func (r *PostgresRunRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS content_runs (
    id UUID PRIMARY KEY,
    source TEXT NOT NULL,
    operation_id TEXT NOT NULL,
    status TEXT NOT NULL,
    stages JSONB,
    paths JSONB,
    error TEXT NOT NULL DEFAULT '',
    started_at TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS content_runs_source_started ON content_runs (source, started_at DESC);
`)
	return err
}

func (r *PostgresRunRepo) Add(ctx context.Context, run *data.Run) (*data.Run, error) {
	stored := run.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	stages, err := json.Marshal(stored.Stages)
	if err != nil {
		return nil, err
	}
	paths, err := json.Marshal(stored.Paths)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO content_runs (id, source, operation_id, status, stages, paths, error, started_at, duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		stored.ID, stored.Source, stored.OperationID, string(stored.Status),
		stages, paths, stored.Error, stored.StartedAt, stored.Duration.Milliseconds())
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *PostgresRunRepo) ListBySource(ctx context.Context, source string, limit int) (data.Runs, error) {
	if limit <= 0 {
		limit = maxRunsPerSource
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, source, operation_id, status, stages, paths, error, started_at, duration_ms
FROM content_runs WHERE source=$1 ORDER BY started_at DESC LIMIT $2`, source, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out data.Runs
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *PostgresRunRepo) LastBySource(ctx context.Context, source string) (*data.Run, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, source, operation_id, status, stages, paths, error, started_at, duration_ms
FROM content_runs WHERE source=$1 ORDER BY started_at DESC LIMIT 1`, source)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*data.Run, error) {
	var (
		run        data.Run
		status     string
		stages     []byte
		paths      []byte
		durationMs int64
	)
	err := row.Scan(&run.ID, &run.Source, &run.OperationID, &status, &stages, &paths, &run.Error, &run.StartedAt, &durationMs)
	if err != nil {
		return nil, err
	}
	run.Status = data.RunStatus(status)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	if len(stages) > 0 {
		if err := json.Unmarshal(stages, &run.Stages); err != nil {
			return nil, err
		}
	}
	if len(paths) > 0 {
		if err := json.Unmarshal(paths, &run.Paths); err != nil {
			return nil, err
		}
	}
	return &run, nil
}
