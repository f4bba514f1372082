package db

import (
	"context"
	"database/sql"
	"time"
)

const upsertArticle = `-- name: UpsertArticle :exec
INSERT INTO articles (source, url, title, description, category, published)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(source, url) DO UPDATE SET
    title = excluded.title,
    description = excluded.description,
    category = excluded.category,
    published = excluded.published,
    fetched_at = CURRENT_TIMESTAMP
`

type UpsertArticleParams struct {
	Source      string
	Url         string
	Title       string
	Description sql.NullString
	Category    sql.NullString
	Published   sql.NullString
}

func (q *Queries) UpsertArticle(ctx context.Context, arg UpsertArticleParams) error {
	_, err := q.db.ExecContext(ctx, upsertArticle,
		arg.Source,
		arg.Url,
		arg.Title,
		arg.Description,
		arg.Category,
		arg.Published,
	)
	return err
}

const listArticlesBySource = `-- name: ListArticlesBySource :many
SELECT id, source, url, title, description, category, published, fetched_at
FROM articles
WHERE source = ?
ORDER BY fetched_at DESC, id DESC
LIMIT ?
`

type ListArticlesBySourceParams struct {
	Source string
	Limit  int64
}

func (q *Queries) ListArticlesBySource(ctx context.Context, arg ListArticlesBySourceParams) ([]Article, error) {
	rows, err := q.db.QueryContext(ctx, listArticlesBySource, arg.Source, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Article
	for rows.Next() {
		var i Article
		if err := rows.Scan(
			&i.ID,
			&i.Source,
			&i.Url,
			&i.Title,
			&i.Description,
			&i.Category,
			&i.Published,
			&i.FetchedAt,
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

const countArticlesBySource = `-- name: CountArticlesBySource :many
SELECT source, COUNT(*) AS count
FROM articles
GROUP BY source
ORDER BY source
`

type CountArticlesBySourceRow struct {
	Source string
	Count  int64
}

func (q *Queries) CountArticlesBySource(ctx context.Context) ([]CountArticlesBySourceRow, error) {
	rows, err := q.db.QueryContext(ctx, countArticlesBySource)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountArticlesBySourceRow
	for rows.Next() {
		var i CountArticlesBySourceRow
		if err := rows.Scan(&i.Source, &i.Count); err != nil {
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

const deleteArticlesBefore = `-- name: DeleteArticlesBefore :execrows
DELETE FROM articles WHERE fetched_at < ?
`

func (q *Queries) DeleteArticlesBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteArticlesBefore, before.UTC().Format(time.DateTime))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
