package sqlite

import (
	"context"
	"database/sql"
	"time"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so repositories work inside
// and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	getUserByID = `SELECT id, username, password_hash, role, created_at, updated_at
FROM users WHERE id = ?`

	getUserByUsername = `SELECT id, username, password_hash, role, created_at, updated_at
FROM users WHERE username = ?`

	createUser = `INSERT INTO users (username, password_hash, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`

	countUsers = `SELECT COUNT(*) FROM users`

	createRefreshToken = `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at, updated_at)
VALUES (?, ?, ?, ?, 0, ?, ?)`

	getRefreshTokenByHash = `SELECT id, user_id, token_hash, expires_at, revoked, created_at, updated_at
FROM refresh_tokens WHERE token_hash = ?`

	claimRefreshToken = `UPDATE refresh_tokens SET revoked = 1, updated_at = ?
WHERE token_hash = ? AND revoked = 0`

	revokeAllUserRefreshTokens = `UPDATE refresh_tokens SET revoked = 1, updated_at = ?
WHERE user_id = ? AND revoked = 0`

	deleteStaleRefreshTokens = `DELETE FROM refresh_tokens WHERE id IN (
    SELECT id FROM refresh_tokens
    WHERE expires_at <= ? OR (revoked = 1 AND updated_at < ?)
    LIMIT ?
)`
)

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
