// Package audit provides the append-only verdict store: a plain pgx
// connection plus golang-migrate schema migrations, with no ORM codegen.
package audit

import (
	"context"
	stdsql "database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver under database/sql
)

//go:embed migrations
var migrationsFS embed.FS

// Config holds the audit database connection settings.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Client wraps the underlying *sql.DB and exposes the verdict store's
// read/write operations.
type Client struct {
	db *stdsql.DB
}

// DB returns the underlying connection pool, for health checks.
func (c *Client) DB() *stdsql.DB {
	return c.db
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// NewClient opens a connection pool, applies pending migrations, and
// returns a ready-to-use Client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}

	if err := runMigrations(db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run audit migrations: %w", err)
	}

	return &Client{db: db}, nil
}

func runMigrations(db *stdsql.DB, dbName string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migration source: %w", err)
	}
	defer source.Close()

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// VerdictRecord is one terminal investigation outcome, written
// best-effort after Module 3 finishes reasoning about a session.
type VerdictRecord struct {
	SessionID   string
	BucketKey   string
	Severity    string
	RiskScore   float64
	Verdict     string
	Confidence  float64
	RoutedQueue string
	Summary     string
	RawVerdict  any
}

// RecordVerdict inserts one verdict row. Callers treat a failure here as
// non-fatal: routing must not block on audit-log availability.
func (c *Client) RecordVerdict(ctx context.Context, v VerdictRecord) error {
	raw, err := json.Marshal(v.RawVerdict)
	if err != nil {
		return fmt.Errorf("marshal raw verdict: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO verdicts (session_id, bucket_key, severity, risk_score, verdict, confidence, routed_queue, summary, raw_verdict)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		v.SessionID, v.BucketKey, v.Severity, v.RiskScore, v.Verdict, v.Confidence, v.RoutedQueue, v.Summary, raw)
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

// RecentVerdicts returns the most recent verdicts, newest first, for the
// health API's /verdicts/recent endpoint.
func (c *Client) RecentVerdicts(ctx context.Context, limit int) ([]VerdictRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT session_id, bucket_key, severity, risk_score, verdict, confidence,
		       COALESCE(routed_queue, ''), COALESCE(summary, '')
		FROM verdicts ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent verdicts: %w", err)
	}
	defer rows.Close()

	var out []VerdictRecord
	for rows.Next() {
		var v VerdictRecord
		if err := rows.Scan(&v.SessionID, &v.BucketKey, &v.Severity, &v.RiskScore, &v.Verdict, &v.Confidence, &v.RoutedQueue, &v.Summary); err != nil {
			return nil, fmt.Errorf("scan verdict row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
