package server

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/abdulachik/threadsmith/internal/attach"
	"github.com/abdulachik/threadsmith/internal/db"
	"github.com/abdulachik/threadsmith/internal/poster"
)

const (
	// maxFormMemory is kept in memory while parsing; larger uploads spill
	// to temporary files.
	maxFormMemory = 32 << 20
	// maxPostBody caps a whole publish request.
	maxPostBody = 64 << 20
	imageField  = "image_"
)

func (s *Server) twitterConfigured(w http.ResponseWriter) bool {
	if s.cfg.Auth == nil || s.cfg.Poster == nil {
		writeError(w, http.StatusServiceUnavailable, "twitter_not_configured", "X credentials are not configured on the server")
		return false
	}
	return true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.twitterConfigured(w) {
		return
	}

	sess, err := s.ensureSession(w, r)
	if err != nil {
		slog.Error("failed to start session", "error", err)
		writeError(w, http.StatusInternalServerError, "session_error", "Could not start a session")
		return
	}

	login := s.cfg.Auth.Begin()
	err = s.store.UpdateSessionAuthState(r.Context(), db.UpdateSessionAuthStateParams{
		OauthState:   nullString(login.State),
		CodeVerifier: nullString(login.Verifier),
		ID:           sess.ID,
	})
	if err != nil {
		slog.Error("failed to store oauth state", "session", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "session_error", "Could not start the login")
		return
	}

	http.Redirect(w, r, login.URL, http.StatusTemporaryRedirect)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.twitterConfigured(w) {
		return
	}
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		writeError(w, http.StatusBadRequest, "authorization_denied", "Authorization failed: "+reason)
		return
	}

	sess, ok, err := s.callbackSession(r, q.Get("state"))
	if err != nil {
		slog.Error("failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "session_error", "Could not load the session")
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_state", "Invalid state parameter")
		return
	}
	if !sess.CodeVerifier.Valid {
		writeError(w, http.StatusBadRequest, "missing_verifier", "Code verifier not found")
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing_code", "Authorization code not provided")
		return
	}

	tok, err := s.cfg.Auth.Exchange(r.Context(), code, sess.CodeVerifier.String)
	if err != nil {
		slog.Warn("token exchange failed", "session", sess.ID, "error", err)
		writeError(w, http.StatusBadGateway, "token_exchange_failed", "Failed to get access token")
		return
	}
	user, err := s.cfg.Auth.Me(r.Context(), tok.AccessToken)
	if err != nil {
		slog.Warn("user lookup failed", "session", sess.ID, "error", err)
		writeError(w, http.StatusBadGateway, "user_lookup_failed", "Failed to get user info")
		return
	}
	if err := s.saveToken(r.Context(), sess.ID, tok, user); err != nil {
		slog.Error("failed to store token", "session", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "session_error", "Could not store the session")
		return
	}

	slog.Info("twitter login complete", "username", user.Username)
	target := s.cfg.FrontendURL + "?twitter_user=" + url.QueryEscape(user.Username)
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// callbackSession finds the session that started the login. The browser
// finishing the login may not carry the cookie (a CLI started it), so an
// unguessable pending state also identifies the session.
func (s *Server) callbackSession(r *http.Request, state string) (db.Session, bool, error) {
	if state == "" {
		return db.Session{}, false, nil
	}

	sess, ok, err := s.lookupSession(r)
	if err != nil {
		return db.Session{}, false, err
	}
	if ok && sess.OauthState.Valid &&
		subtle.ConstantTimeCompare([]byte(state), []byte(sess.OauthState.String)) == 1 {
		return sess, true, nil
	}

	sess, err = s.store.GetSessionByOAuthState(r.Context(), state)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Session{}, false, nil
	}
	if err != nil {
		return db.Session{}, false, fmt.Errorf("get session by state: %w", err)
	}
	return sess, true, nil
}

type userResponse struct {
	Data poster.User `json:"data"`
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	sess, tok, err := s.authorize(r)
	if err != nil {
		slog.Error("failed to authorize request", "error", err)
		writeError(w, http.StatusInternalServerError, "session_error", "Could not load the session")
		return
	}
	if tok == nil {
		writeError(w, http.StatusUnauthorized, "not_authenticated", "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Data: poster.User{
		ID:       sess.UserID.String,
		Username: sess.Username.String,
	}})
}

type testResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	if !s.twitterConfigured(w) {
		return
	}
	sess, tok, ok := s.requireToken(w, r)
	if !ok {
		return
	}

	if err := s.cfg.Poster.ValidateCredentials(r.Context(), tok.AccessToken); err != nil {
		s.publishFailure(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, testResponse{
		Success:  true,
		Message:  "Token is valid",
		Username: sess.Username.String,
	})
}

// PostResponse is the body of a successful publish.
type PostResponse struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	TweetCount   int      `json:"tweet_count"`
	ImageCount   int      `json:"image_count"`
	FirstTweetID string   `json:"first_tweet_id"`
	PostIDs      []string `json:"post_ids,omitempty"`
	URL          string   `json:"url,omitempty"`
	Simulated    bool     `json:"simulated,omitempty"`
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	if !s.twitterConfigured(w) {
		return
	}
	sess, tok, ok := s.requireToken(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPostBody)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large", "Request body is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_form", "Expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	// Entries keep their position so image_{i} stays on post i. A blank
	// entry is only valid with an image, which ValidateParts checks.
	texts := r.MultipartForm.Value["tweets"]
	if len(texts) == 0 {
		writeError(w, http.StatusBadRequest, "no_tweets", "No tweets provided")
		return
	}

	parts := poster.PartsFromTexts(texts)
	images, status, err := attachImages(parts, r.MultipartForm.File)
	if err != nil {
		code := "invalid_image"
		if status == http.StatusRequestEntityTooLarge {
			code = "file_too_large"
		}
		writeError(w, status, code, err.Error())
		return
	}
	if err := poster.ValidateParts(parts, s.cfg.MaxPostLength); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_thread", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	result, err := s.cfg.Poster.PostThread(ctx, tok.AccessToken, parts)
	if err != nil {
		var partial *poster.PartialError
		if errors.As(err, &partial) && len(partial.PostIDs) > 0 {
			s.recordPost(r.Context(), sess, r.FormValue("generation_id"), texts[:min(len(partial.PostIDs), len(texts))], &poster.Result{
				Platform: s.cfg.Poster.Platform(),
				PostIDs:  partial.PostIDs,
				RootID:   partial.PostIDs[0],
			})
		}
		s.publishFailure(w, r, sess, err)
		return
	}

	s.recordPost(r.Context(), sess, r.FormValue("generation_id"), texts, result)
	slog.Info("thread published",
		"platform", result.Platform,
		"posts", len(parts),
		"images", images,
		"root_id", result.RootID,
		"simulated", result.Simulated,
	)

	writeJSON(w, http.StatusOK, PostResponse{
		Success:      true,
		Message:      result.Message,
		TweetCount:   len(parts),
		ImageCount:   images,
		FirstTweetID: result.RootID,
		PostIDs:      result.PostIDs,
		URL:          result.URL,
		Simulated:    result.Simulated,
	})
}

// attachImages moves image_{i} uploads onto parts[i]. It returns the number
// of images attached, or the status to answer with when an upload is
// rejected.
func attachImages(parts []poster.Part, files map[string][]*multipart.FileHeader) (int, int, error) {
	count := 0
	for field, headers := range files {
		if !strings.HasPrefix(field, imageField) || len(headers) == 0 {
			continue
		}
		index, err := strconv.Atoi(strings.TrimPrefix(field, imageField))
		if err != nil || index < 0 || index >= len(parts) {
			return 0, http.StatusBadRequest, fmt.Errorf("%s does not match a post", field)
		}

		fh := headers[0]
		if fh.Size > attach.MaxImageSize {
			return 0, http.StatusRequestEntityTooLarge, fmt.Errorf("%s: please upload an image smaller than 5MB", fh.Filename)
		}
		data, err := readUpload(fh)
		if err != nil {
			return 0, http.StatusBadRequest, err
		}
		contentType := attach.DetectContentType(data)
		if !attach.IsAllowedType(contentType) {
			return 0, http.StatusUnsupportedMediaType, fmt.Errorf("%s (%s): %w", fh.Filename, contentType, attach.ErrNotImage)
		}

		parts[index].Image = &poster.Media{Name: fh.Filename, ContentType: contentType, Data: data}
		count++
	}
	return count, 0, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, attach.MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

// requireToken writes the not_authenticated response when the session has
// no usable token.
func (s *Server) requireToken(w http.ResponseWriter, r *http.Request) (db.Session, *oauth2.Token, bool) {
	sess, tok, err := s.authorize(r)
	if err != nil {
		slog.Error("failed to authorize request", "error", err)
		writeError(w, http.StatusInternalServerError, "session_error", "Could not load the session")
		return db.Session{}, nil, false
	}
	if tok == nil {
		s.writeNotAuthenticated(w)
		return db.Session{}, nil, false
	}
	return sess, tok, true
}

// publishFailure maps a platform error to a response. A rejected token
// ends the X session so the next attempt starts a fresh login. Posts that
// already went live are always reported, even when the token was rejected.
func (s *Server) publishFailure(w http.ResponseWriter, r *http.Request, sess db.Session, err error) {
	var partial *poster.PartialError
	isPartial := errors.As(err, &partial)

	var apiErr *poster.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		if err := s.store.ClearSessionToken(r.Context(), sess.ID); err != nil {
			slog.Warn("failed to clear rejected token", "session", sess.ID, "error", err)
		}
		if !isPartial {
			s.writeNotAuthenticated(w)
			return
		}
	}

	resp := errorResponse{Error: "publish_failed", Message: err.Error()}
	if isPartial {
		resp.Error = "publish_incomplete"
		resp.PostIDs = partial.PostIDs
	}
	slog.Warn("publish failed", "session", sess.ID, "posted", len(resp.PostIDs), "error", err)
	writeJSON(w, http.StatusBadGateway, resp)
}

func (s *Server) recordPost(ctx context.Context, sess db.Session, generationID string, texts []string, result *poster.Result) {
	ids, err := json.Marshal(result.PostIDs)
	if err != nil {
		ids = []byte("[]")
	}
	var genID sql.NullInt64
	if n, err := strconv.ParseInt(generationID, 10, 64); err == nil && n > 0 {
		genID = sql.NullInt64{Int64: n, Valid: true}
	}

	_, err = s.store.CreatePost(ctx, db.CreatePostParams{
		GenerationID: genID,
		Platform:     result.Platform,
		RootPostID:   nullString(result.RootID),
		PostIds:      string(ids),
		PostCount:    int64(len(texts)),
		PostUrl:      nullString(result.URL),
		Username:     sess.Username,
		FirstText:    texts[0],
		Simulated:    result.Simulated,
	})
	if err != nil {
		slog.Warn("failed to record post", "root_id", result.RootID, "error", err)
	}
}

type logoutResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok, err := s.lookupSession(r)
	if err != nil {
		slog.Error("failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "session_error", "Could not load the session")
		return
	}
	if ok {
		if err := s.store.ClearSessionToken(r.Context(), sess.ID); err != nil {
			slog.Error("failed to clear session", "session", sess.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "session_error", "Could not clear the session")
			return
		}
	}
	writeJSON(w, http.StatusOK, logoutResponse{Message: "Logged out successfully"})
}
