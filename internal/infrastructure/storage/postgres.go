// Package storage persists sources, articles, categories, and job logs in
// Postgres. Field names and the status enum are a contract with the web
// layer; schema changes need a migration.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// builder is the shared squirrel builder with Postgres placeholders.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// InitSchema creates the tables and indexes if they do not exist. The
// unique index on articles.hash is what makes concurrent dedup safe.
func InitSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS sources (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		base_url      TEXT NOT NULL DEFAULT '',
		feed_urls     TEXT[] NOT NULL DEFAULT '{}',
		type          TEXT NOT NULL,
		language      TEXT NOT NULL DEFAULT 'en',
		category_ids  TEXT[] NOT NULL DEFAULT '{}',
		api_key       TEXT NOT NULL DEFAULT '',
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		last_scraped  TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS articles (
		id                  TEXT PRIMARY KEY,
		title               TEXT NOT NULL,
		slug                TEXT NOT NULL DEFAULT '',
		summary             TEXT NOT NULL DEFAULT '',
		content             TEXT NOT NULL DEFAULT '',
		images              TEXT[] NOT NULL DEFAULT '{}',
		category_id         TEXT NOT NULL DEFAULT '',
		category_ids        TEXT[] NOT NULL DEFAULT '{}',
		detected_category   TEXT NOT NULL DEFAULT '',
		tags                TEXT[] NOT NULL DEFAULT '{}',
		author              TEXT NOT NULL DEFAULT '',
		language            TEXT NOT NULL DEFAULT 'en',
		source_id           TEXT NOT NULL DEFAULT '',
		source_name         TEXT NOT NULL DEFAULT '',
		source_url          TEXT NOT NULL DEFAULT '',
		status              TEXT NOT NULL DEFAULT 'scraped',
		published_at        TIMESTAMPTZ,
		scraped_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		canonical_url       TEXT NOT NULL DEFAULT '',
		thumbnail           TEXT NOT NULL DEFAULT '',
		word_count          INTEGER NOT NULL DEFAULT 0,
		reading_time        INTEGER NOT NULL DEFAULT 1,
		language_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		hash                TEXT NOT NULL,
		fact_check          JSONB,
		social_media        JSONB,
		translations        JSONB
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_articles_hash ON articles(hash);
	CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status);
	CREATE INDEX IF NOT EXISTS idx_articles_detected ON articles(detected_category, language);

	CREATE TABLE IF NOT EXISTS categories (
		id         TEXT PRIMARY KEY,
		key        TEXT NOT NULL,
		label      TEXT NOT NULL DEFAULT '',
		icon       TEXT NOT NULL DEFAULT '',
		color      TEXT NOT NULL DEFAULT '',
		parent_id  TEXT NOT NULL DEFAULT '',
		"order"    INTEGER NOT NULL DEFAULT 0,
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		language   TEXT NOT NULL DEFAULT '',
		is_dynamic BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (key, language)
	);

	CREATE TABLE IF NOT EXISTS job_logs (
		id         TEXT PRIMARY KEY,
		job_type   TEXT NOT NULL,
		status     TEXT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		end_time   TIMESTAMPTZ,
		meta       JSONB
	);

	CREATE INDEX IF NOT EXISTS idx_job_logs_status ON job_logs(status);

	CREATE TABLE IF NOT EXISTS jobs (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		payload      JSONB NOT NULL DEFAULT '{}',
		status       TEXT NOT NULL DEFAULT 'enqueued',
		attempts     INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 3,
		run_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_error   TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_due ON jobs(status, run_at);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports the Postgres unique_violation error class.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
