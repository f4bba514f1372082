package db

import (
	"database/sql"
	"time"
)

type Article struct {
	ID          int64
	Source      string
	Url         string
	Title       string
	Description sql.NullString
	Category    sql.NullString
	Published   sql.NullString
	FetchedAt   time.Time
}

type Config struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

type Generation struct {
	ID           int64
	Url          string
	Instructions sql.NullString
	Title        sql.NullString
	Text         string
	Segments     string
	IsThread     bool
	Provider     string
	CreatedAt    time.Time
}

type Post struct {
	ID           int64
	GenerationID sql.NullInt64
	Platform     string
	RootPostID   sql.NullString
	PostIds      string
	PostCount    int64
	PostUrl      sql.NullString
	Username     sql.NullString
	FirstText    string
	Simulated    bool
	CreatedAt    time.Time
}

type Session struct {
	ID           string
	OauthState   sql.NullString
	CodeVerifier sql.NullString
	AccessToken  sql.NullString
	RefreshToken sql.NullString
	TokenExpiry  sql.NullTime
	UserID       sql.NullString
	Username     sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
