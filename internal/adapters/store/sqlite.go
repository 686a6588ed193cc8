package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the account database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serializes anyway and this keeps busy errors away
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash BLOB NOT NULL,
			created_at    INTEGER NOT NULL
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}
	log.Info().Str("module", "adapters.store").Str("path", path).Msg("sqlite store opened")
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, u *domain.User) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(username) DO NOTHING`,
		string(u.ID), u.Username, u.PasswordHash, u.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserExists
	}
	return nil
}

func (s *SQLiteStore) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.one(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
}

func (s *SQLiteStore) ByID(ctx context.Context, id domain.Identity) (*domain.User, error) {
	return s.one(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, string(id))
}

func (s *SQLiteStore) one(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		u  domain.User
		id string
		ts int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&id, &u.Username, &u.PasswordHash, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.ID = domain.Identity(id)
	u.CreatedAt = time.UnixMilli(ts).UTC()
	return &u, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *SQLiteStore) Search(ctx context.Context, q string, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username FROM users
		WHERE username LIKE ? ESCAPE '\'
		ORDER BY username COLLATE NOCASE
		LIMIT ?`,
		"%"+likeEscaper.Replace(q)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.User, 0)
	for rows.Next() {
		var (
			u  domain.User
			id string
		)
		if err := rows.Scan(&id, &u.Username); err != nil {
			return nil, err
		}
		u.ID = domain.Identity(id)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
