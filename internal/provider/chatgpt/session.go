package chatgpt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/sse"
	"github.com/spetersoncode/answer/tokencache"
)

// DefaultTokenTTL is how long an access token is reused before the session
// endpoint is asked again.
const DefaultTokenTTL = 10 * time.Second

const accessTokenKey = "accessToken"

// TokenSource supplies the bearer token for backend requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token returns t.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", &answer.AuthError{Reason: answer.AuthUnauthenticated}
	}
	return string(t), nil
}

// SessionTokenSource acquires access tokens from the session endpoint and
// caches them for the cache's TTL.
type SessionTokenSource struct {
	url    string
	client *http.Client
	cache  *tokencache.Cache[string]
}

// NewSessionTokenSource creates a token source for the session endpoint at url.
func NewSessionTokenSource(url string, client *http.Client, cache *tokencache.Cache[string]) *SessionTokenSource {
	if client == nil {
		client = http.DefaultClient
	}
	if cache == nil {
		cache = tokencache.New[string](DefaultTokenTTL)
	}
	return &SessionTokenSource{url: url, client: client, cache: cache}
}

// Token returns the cached access token or acquires a fresh one.
// Acquisition failures are reported as *answer.AuthError.
func (s *SessionTokenSource) Token(ctx context.Context) (string, error) {
	return s.cache.GetOrFetch(ctx, accessTokenKey, s.fetch)
}

// Invalidate drops the cached token so the next call re-acquires it.
func (s *SessionTokenSource) Invalidate() {
	s.cache.Delete(accessTokenKey)
}

type session struct {
	AccessToken string `json:"accessToken"`
}

func (s *SessionTokenSource) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("chatgpt: create session request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", answer.NewAbortError(ctx.Err())
		}
		return "", fmt.Errorf("chatgpt: fetch session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		io.Copy(io.Discard, resp.Body)
		return "", &answer.AuthError{Reason: answer.AuthChallenge}
	}
	if err := sse.CheckResponse(resp); err != nil {
		return "", &answer.AuthError{Reason: answer.AuthUnauthenticated, Cause: err}
	}

	var sess session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil || sess.AccessToken == "" {
		return "", &answer.AuthError{Reason: answer.AuthUnauthenticated}
	}
	return sess.AccessToken, nil
}

// invalidator is implemented by token sources that cache.
type invalidator interface {
	Invalidate()
}

// invalidateOnUnauthorized drops a cached token after the backend rejected it.
func invalidateOnUnauthorized(ts TokenSource, err error) {
	if answer.StatusCodeOf(err) != http.StatusUnauthorized {
		return
	}
	if inv, ok := ts.(invalidator); ok {
		inv.Invalidate()
	}
}
