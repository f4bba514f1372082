package db

import (
	"context"
	"database/sql"
)

const createPost = `-- name: CreatePost :one
INSERT INTO posts (generation_id, platform, root_post_id, post_ids, post_count, post_url, username, first_text, simulated)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, generation_id, platform, root_post_id, post_ids, post_count, post_url, username, first_text, simulated, created_at
`

type CreatePostParams struct {
	GenerationID sql.NullInt64
	Platform     string
	RootPostID   sql.NullString
	PostIds      string
	PostCount    int64
	PostUrl      sql.NullString
	Username     sql.NullString
	FirstText    string
	Simulated    bool
}

func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx, createPost,
		arg.GenerationID,
		arg.Platform,
		arg.RootPostID,
		arg.PostIds,
		arg.PostCount,
		arg.PostUrl,
		arg.Username,
		arg.FirstText,
		arg.Simulated,
	)
	var i Post
	err := row.Scan(
		&i.ID,
		&i.GenerationID,
		&i.Platform,
		&i.RootPostID,
		&i.PostIds,
		&i.PostCount,
		&i.PostUrl,
		&i.Username,
		&i.FirstText,
		&i.Simulated,
		&i.CreatedAt,
	)
	return i, err
}

const listRecentPosts = `-- name: ListRecentPosts :many
SELECT id, generation_id, platform, root_post_id, post_ids, post_count, post_url, username, first_text, simulated, created_at
FROM posts
ORDER BY created_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListRecentPosts(ctx context.Context, limit int64) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx, listRecentPosts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Post
	for rows.Next() {
		var i Post
		if err := rows.Scan(
			&i.ID,
			&i.GenerationID,
			&i.Platform,
			&i.RootPostID,
			&i.PostIds,
			&i.PostCount,
			&i.PostUrl,
			&i.Username,
			&i.FirstText,
			&i.Simulated,
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

const countPosts = `-- name: CountPosts :one
SELECT COUNT(*) FROM posts
`

func (q *Queries) CountPosts(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPosts)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countPostsToday = `-- name: CountPostsToday :one
SELECT COUNT(*) FROM posts
WHERE platform = ? AND created_at >= date('now')
`

func (q *Queries) CountPostsToday(ctx context.Context, platform string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPostsToday, platform)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countPostsByPlatform = `-- name: CountPostsByPlatform :many
SELECT platform, COUNT(*) AS count, COALESCE(SUM(post_count), 0) AS segments
FROM posts
GROUP BY platform
ORDER BY platform
`

type CountPostsByPlatformRow struct {
	Platform string
	Count    int64
	Segments int64
}

func (q *Queries) CountPostsByPlatform(ctx context.Context) ([]CountPostsByPlatformRow, error) {
	rows, err := q.db.QueryContext(ctx, countPostsByPlatform)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountPostsByPlatformRow
	for rows.Next() {
		var i CountPostsByPlatformRow
		if err := rows.Scan(&i.Platform, &i.Count, &i.Segments); err != nil {
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
