package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/abdulachik/threadsmith/internal/db"
	"github.com/abdulachik/threadsmith/internal/poster"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "threadsmith_session"

const sessionMaxAge = 30 * 24 * time.Hour

// lookupSession returns the session named by the request cookie.
func (s *Server) lookupSession(r *http.Request) (db.Session, bool, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return db.Session{}, false, nil
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return db.Session{}, false, nil
	}

	sess, err := s.store.GetSession(r.Context(), c.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Session{}, false, nil
	}
	if err != nil {
		return db.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	return sess, true, nil
}

// ensureSession returns the request's session, creating one and setting
// the cookie when there is none.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (db.Session, error) {
	sess, ok, err := s.lookupSession(r)
	if err != nil {
		return db.Session{}, err
	}
	if ok {
		return sess, nil
	}

	sess, err = s.store.CreateSession(r.Context(), uuid.NewString())
	if err != nil {
		return db.Session{}, fmt.Errorf("create session: %w", err)
	}
	http.SetCookie(w, s.sessionCookie(sess.ID, int(sessionMaxAge.Seconds())))
	return sess, nil
}

// sessionCookie is SameSite=None when served over https so a frontend on
// another origin can send it with credentialed requests.
func (s *Server) sessionCookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if s.secure {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

func sessionToken(sess db.Session) *oauth2.Token {
	if !sess.AccessToken.Valid || sess.AccessToken.String == "" {
		return nil
	}
	tok := &oauth2.Token{
		AccessToken:  sess.AccessToken.String,
		RefreshToken: sess.RefreshToken.String,
		TokenType:    "Bearer",
	}
	if sess.TokenExpiry.Valid {
		tok.Expiry = sess.TokenExpiry.Time
	}
	return tok
}

// authorize returns a usable access token for the request's session,
// refreshing an expired one. A nil token means the user must log in again.
func (s *Server) authorize(r *http.Request) (db.Session, *oauth2.Token, error) {
	sess, ok, err := s.lookupSession(r)
	if err != nil || !ok {
		return db.Session{}, nil, err
	}
	tok := sessionToken(sess)
	if tok == nil || tok.Valid() {
		return sess, tok, nil
	}
	if tok.RefreshToken == "" || s.cfg.Auth == nil {
		return sess, nil, nil
	}

	fresh, err := s.cfg.Auth.Refresh(r.Context(), tok)
	if err != nil {
		slog.Warn("token refresh failed", "session", sess.ID, "error", err)
		if err := s.store.ClearSessionToken(r.Context(), sess.ID); err != nil {
			return sess, nil, fmt.Errorf("clear session token: %w", err)
		}
		return sess, nil, nil
	}

	user := &poster.User{ID: sess.UserID.String, Username: sess.Username.String}
	if err := s.saveToken(r.Context(), sess.ID, fresh, user); err != nil {
		return sess, nil, err
	}
	slog.Debug("refreshed access token", "session", sess.ID)
	return sess, fresh, nil
}

func (s *Server) saveToken(ctx context.Context, sessionID string, tok *oauth2.Token, user *poster.User) error {
	err := s.store.UpdateSessionToken(ctx, db.UpdateSessionTokenParams{
		AccessToken:  nullString(tok.AccessToken),
		RefreshToken: nullString(tok.RefreshToken),
		TokenExpiry:  sql.NullTime{Time: tok.Expiry, Valid: !tok.Expiry.IsZero()},
		UserID:       nullString(user.ID),
		Username:     nullString(user.Username),
		ID:           sessionID,
	})
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
