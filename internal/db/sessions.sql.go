package db

import (
	"context"
	"database/sql"
	"time"
)

const createSession = `-- name: CreateSession :one
INSERT INTO sessions (id) VALUES (?)
RETURNING id, oauth_state, code_verifier, access_token, refresh_token, token_expiry, user_id, username, created_at, updated_at
`

func (q *Queries) CreateSession(ctx context.Context, id string) (Session, error) {
	row := q.db.QueryRowContext(ctx, createSession, id)
	return scanSession(row)
}

const getSession = `-- name: GetSession :one
SELECT id, oauth_state, code_verifier, access_token, refresh_token, token_expiry, user_id, username, created_at, updated_at
FROM sessions WHERE id = ?
`

func (q *Queries) GetSession(ctx context.Context, id string) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSession, id)
	return scanSession(row)
}

const getSessionByOAuthState = `-- name: GetSessionByOAuthState :one
SELECT id, oauth_state, code_verifier, access_token, refresh_token, token_expiry, user_id, username, created_at, updated_at
FROM sessions WHERE oauth_state = ?
`

func (q *Queries) GetSessionByOAuthState(ctx context.Context, oauthState string) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSessionByOAuthState, oauthState)
	return scanSession(row)
}

const updateSessionAuthState = `-- name: UpdateSessionAuthState :exec
UPDATE sessions
SET oauth_state = ?, code_verifier = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

type UpdateSessionAuthStateParams struct {
	OauthState   sql.NullString
	CodeVerifier sql.NullString
	ID           string
}

func (q *Queries) UpdateSessionAuthState(ctx context.Context, arg UpdateSessionAuthStateParams) error {
	_, err := q.db.ExecContext(ctx, updateSessionAuthState, arg.OauthState, arg.CodeVerifier, arg.ID)
	return err
}

const updateSessionToken = `-- name: UpdateSessionToken :exec
UPDATE sessions
SET access_token = ?, refresh_token = ?, token_expiry = ?, user_id = ?, username = ?,
    oauth_state = NULL, code_verifier = NULL, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

type UpdateSessionTokenParams struct {
	AccessToken  sql.NullString
	RefreshToken sql.NullString
	TokenExpiry  sql.NullTime
	UserID       sql.NullString
	Username     sql.NullString
	ID           string
}

func (q *Queries) UpdateSessionToken(ctx context.Context, arg UpdateSessionTokenParams) error {
	_, err := q.db.ExecContext(ctx, updateSessionToken,
		arg.AccessToken,
		arg.RefreshToken,
		arg.TokenExpiry,
		arg.UserID,
		arg.Username,
		arg.ID,
	)
	return err
}

const clearSessionToken = `-- name: ClearSessionToken :exec
UPDATE sessions
SET access_token = NULL, refresh_token = NULL, token_expiry = NULL, user_id = NULL, username = NULL,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

func (q *Queries) ClearSessionToken(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, clearSessionToken, id)
	return err
}

const deleteSessionsBefore = `-- name: DeleteSessionsBefore :execrows
DELETE FROM sessions WHERE updated_at < ?
`

func (q *Queries) DeleteSessionsBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSessionsBefore, before.UTC().Format(time.DateTime))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countAuthenticatedSessions = `-- name: CountAuthenticatedSessions :one
SELECT COUNT(*) FROM sessions WHERE access_token IS NOT NULL
`

func (q *Queries) CountAuthenticatedSessions(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countAuthenticatedSessions)
	var count int64
	err := row.Scan(&count)
	return count, err
}

func scanSession(row *sql.Row) (Session, error) {
	var i Session
	err := row.Scan(
		&i.ID,
		&i.OauthState,
		&i.CodeVerifier,
		&i.AccessToken,
		&i.RefreshToken,
		&i.TokenExpiry,
		&i.UserID,
		&i.Username,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
