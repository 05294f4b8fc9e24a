package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chessedu/chessedu-backend/pkg/logger"
	_ "github.com/lib/pq"
)

type DB struct {
	*sql.DB
}

// Connect 데이터베이스 연결
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 연결 풀 설정
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 연결 테스트
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connected successfully")

	return &DB{db}, nil
}

// Close 데이터베이스 연결 종료
func (db *DB) Close() error {
	return db.DB.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'STUDENT',
	rating        INTEGER NOT NULL DEFAULT 1200 CHECK (rating BETWEEN 0 AND 3000),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS games (
	id            TEXT PRIMARY KEY,
	white_id      TEXT NOT NULL REFERENCES users(id),
	black_id      TEXT NOT NULL REFERENCES users(id),
	moves         TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'PENDING',
	result        TEXT,
	time_control  TEXT NOT NULL,
	tournament_id TEXT,
	version       INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (white_id <> black_id),
	CHECK ((status = 'COMPLETED') = (result IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_games_white ON games (white_id);
CREATE INDEX IF NOT EXISTS idx_games_black ON games (black_id);
CREATE INDEX IF NOT EXISTS idx_games_status ON games (status);
`

// Migrate 테이블이 없으면 생성
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
