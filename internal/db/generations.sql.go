package db

import (
	"context"
	"database/sql"
)

const createGeneration = `-- name: CreateGeneration :one
INSERT INTO generations (url, instructions, title, text, segments, is_thread, provider)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, url, instructions, title, text, segments, is_thread, provider, created_at
`

type CreateGenerationParams struct {
	Url          string
	Instructions sql.NullString
	Title        sql.NullString
	Text         string
	Segments     string
	IsThread     bool
	Provider     string
}

func (q *Queries) CreateGeneration(ctx context.Context, arg CreateGenerationParams) (Generation, error) {
	row := q.db.QueryRowContext(ctx, createGeneration,
		arg.Url,
		arg.Instructions,
		arg.Title,
		arg.Text,
		arg.Segments,
		arg.IsThread,
		arg.Provider,
	)
	var i Generation
	err := row.Scan(
		&i.ID,
		&i.Url,
		&i.Instructions,
		&i.Title,
		&i.Text,
		&i.Segments,
		&i.IsThread,
		&i.Provider,
		&i.CreatedAt,
	)
	return i, err
}

const getGeneration = `-- name: GetGeneration :one
SELECT id, url, instructions, title, text, segments, is_thread, provider, created_at
FROM generations WHERE id = ?
`

func (q *Queries) GetGeneration(ctx context.Context, id int64) (Generation, error) {
	row := q.db.QueryRowContext(ctx, getGeneration, id)
	var i Generation
	err := row.Scan(
		&i.ID,
		&i.Url,
		&i.Instructions,
		&i.Title,
		&i.Text,
		&i.Segments,
		&i.IsThread,
		&i.Provider,
		&i.CreatedAt,
	)
	return i, err
}

const listRecentGenerations = `-- name: ListRecentGenerations :many
SELECT id, url, instructions, title, text, segments, is_thread, provider, created_at
FROM generations
ORDER BY created_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListRecentGenerations(ctx context.Context, limit int64) ([]Generation, error) {
	rows, err := q.db.QueryContext(ctx, listRecentGenerations, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Generation
	for rows.Next() {
		var i Generation
		if err := rows.Scan(
			&i.ID,
			&i.Url,
			&i.Instructions,
			&i.Title,
			&i.Text,
			&i.Segments,
			&i.IsThread,
			&i.Provider,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countGenerations = `-- name: CountGenerations :one
SELECT COUNT(*) FROM generations
`

func (q *Queries) CountGenerations(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countGenerations)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countThreadGenerations = `-- name: CountThreadGenerations :one
SELECT COUNT(*) FROM generations WHERE is_thread = TRUE
`

func (q *Queries) CountThreadGenerations(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countThreadGenerations)
	var count int64
	err := row.Scan(&count)
	return count, err
}
