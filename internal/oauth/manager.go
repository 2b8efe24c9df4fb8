package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Manager owns the in-memory token and is the sole writer of the token
// store. It is safe for concurrent Token callers: expiry checks and the
// resulting refresh are serialized, so two workers discovering an expired
// token trigger exactly one refresh.
type Manager struct {
	creds    Credentials
	tokenURL string
	store    Store
	client   *http.Client
	log      zerolog.Logger
	now      func() time.Time

	mu  sync.Mutex
	tok Token
}

// NewManager loads a previously persisted token and, when the store is empty
// or absent, immediately requests a new one. Without a token nothing else is
// reachable, so a failure here is fatal for the run.
func NewManager(ctx context.Context, creds Credentials, tokenURL string, store Store, log zerolog.Logger) (*Manager, error) {
	m := &Manager{
		creds:    creds,
		tokenURL: tokenURL,
		store:    store,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log,
		now:      time.Now,
	}

	tok, err := store.Load()
	switch {
	case err == nil:
		m.tok = tok
	case err == ErrEmptyStore:
		if err := m.NewToken(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return m, nil
}

// Token returns a token guaranteed valid for immediate use, refreshing or
// reissuing first when the held token has expired. The check runs on every
// access; there is no background timer.
func (m *Manager) Token(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.tok.Valid(m.now()) {
		if err := m.obtain(ctx); err != nil {
			return Token{}, err
		}
	}
	return m.tok, nil
}

// obtain refreshes the held token, or requests a new one when no token was
// ever initialized. Callers must hold m.mu.
func (m *Manager) obtain(ctx context.Context) error {
	if m.tok.ExpiresAt == 0 {
		return m.newToken(ctx)
	}
	return m.refresh(ctx)
}

// Refresh exchanges the held refresh token for a new access token. An
// invalid or expired refresh token is recoverable and falls back to a
// new-token request; any other failure surfaces to the caller.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh(ctx)
}

func (m *Manager) refresh(ctx context.Context) error {
	m.log.Info().Msg("Refreshing access token")

	form := m.baseForm()
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", m.tok.RefreshToken)

	err := m.requestToken(ctx, form, true)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidRefreshToken) {
		m.log.Error().Err(err).Msg("Problem refreshing access token")
		return m.newToken(ctx)
	}
	return err
}

// NewToken requests a token with the password grant using the static
// application credentials.
func (m *Manager) NewToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newToken(ctx)
}

func (m *Manager) newToken(ctx context.Context) error {
	m.log.Info().Msg("Generating new access token")

	form := m.baseForm()
	form.Set("grant_type", "password")

	return m.requestToken(ctx, form, false)
}

func (m *Manager) baseForm() url.Values {
	return url.Values{
		"client_id":     {m.creds.ClientID},
		"client_secret": {m.creds.ClientSecret},
		"username":      {m.creds.AccessKey},
		"password":      {m.creds.SecretKey},
	}
}

// requestToken posts a token grant and installs the response as the current
// token. Refresh responses may omit the refresh token; the held one is
// preserved across the rotation in that case.
func (m *Manager) requestToken(ctx context.Context, form url.Values, isRefresh bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return classifyAuthError(resp.StatusCode, string(body))
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return err
	}
	if isRefresh && tok.RefreshToken == "" {
		tok.RefreshToken = m.tok.RefreshToken
	}
	tok.stampExpiry(m.now())

	m.tok = tok
	return m.store.Save(tok)
}
