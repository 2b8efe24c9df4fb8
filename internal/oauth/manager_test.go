package oauth_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lumaops/datalake-extract/internal/oauth"
)

var testCreds = oauth.Credentials{
	ClientID:     "client",
	ClientSecret: "secret",
	AccessKey:    "saak-key",
	SecretKey:    "sask-key",
}

func TestManagerBootstrapsEmptyStore(t *testing.T) {
	server := newTokenServer(t)
	defer server.Close()

	store := newTempStore(t)
	manager, err := oauth.NewManager(context.Background(), testCreds, server.URL, store, zerolog.Nop())
	require.NoError(t, err)

	require.Equal(t, int32(1), server.passwordGrants.Load())

	tok, err := manager.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-1", tok.AccessToken)

	// The valid token is reused without another grant.
	require.Equal(t, int32(1), server.passwordGrants.Load())

	persisted, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, tok.AccessToken, persisted.AccessToken)
}

func TestManagerStampsExpiryOnce(t *testing.T) {
	server := newTokenServer(t)
	defer server.Close()

	before := time.Now().Unix()
	manager, err := oauth.NewManager(context.Background(), testCreds, server.URL, newTempStore(t), zerolog.Nop())
	require.NoError(t, err)
	after := time.Now().Unix()

	tok, err := manager.Token(context.Background())
	require.NoError(t, err)

	// 90% of the 7200s lifetime, relative to issue time.
	require.GreaterOrEqual(t, tok.ExpiresAt, before+6480)
	require.LessOrEqual(t, tok.ExpiresAt, after+6480)
}

func TestManagerRefreshesExpiredToken(t *testing.T) {
	server := newTokenServer(t)
	defer server.Close()

	store := newTempStore(t)
	require.NoError(t, store.Save(oauth.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh-old",
		ExpiresIn:    7200,
		ExpiresAt:    time.Now().Unix() - 10,
	}))

	manager, err := oauth.NewManager(context.Background(), testCreds, server.URL, store, zerolog.Nop())
	require.NoError(t, err)

	tok, err := manager.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-1", tok.AccessToken)
	require.Equal(t, int32(1), server.refreshGrants.Load())
	require.Equal(t, int32(0), server.passwordGrants.Load())
}

func TestManagerPreservesRefreshTokenWhenOmitted(t *testing.T) {
	server := newTokenServer(t)
	server.omitRefreshToken = true
	defer server.Close()

	store := newTempStore(t)
	require.NoError(t, store.Save(oauth.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh-old",
		ExpiresIn:    7200,
		ExpiresAt:    time.Now().Unix() - 10,
	}))

	manager, err := oauth.NewManager(context.Background(), testCreds, server.URL, store, zerolog.Nop())
	require.NoError(t, err)

	tok, err := manager.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "refresh-old", tok.RefreshToken)
}

func TestManagerFallsBackOnInvalidRefreshToken(t *testing.T) {
	server := newTokenServer(t)
	server.refreshFailureBody = "invalid_request: Invalid refresh_token"
	defer server.Close()

	store := newTempStore(t)
	require.NoError(t, store.Save(oauth.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh-dead",
		ExpiresIn:    7200,
		ExpiresAt:    time.Now().Unix() - 10,
	}))

	manager, err := oauth.NewManager(context.Background(), testCreds, server.URL, store, zerolog.Nop())
	require.NoError(t, err)

	tok, err := manager.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-1", tok.AccessToken)
	require.Equal(t, int32(1), server.refreshGrants.Load())
	require.Equal(t, int32(1), server.passwordGrants.Load())
}

func TestManagerSurfacesFatalErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"service unavailable", "service temporarily unavailable", oauth.ErrServiceUnavailable},
		{"not authorised", "Account not authorised", oauth.ErrAccountNotAuthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newTokenServer(t)
			server.refreshFailureBody = tc.body
			defer server.Close()

			store := newTempStore(t)
			require.NoError(t, store.Save(oauth.Token{
				AccessToken:  "stale",
				RefreshToken: "refresh-old",
				ExpiresIn:    7200,
				ExpiresAt:    time.Now().Unix() - 10,
			}))

			manager, err := oauth.NewManager(context.Background(), testCreds, server.URL, store, zerolog.Nop())
			require.NoError(t, err)

			_, err = manager.Token(context.Background())
			require.ErrorIs(t, err, tc.want)
			require.Equal(t, int32(0), server.passwordGrants.Load())
		})
	}
}

func TestManagerSerializesConcurrentRefreshes(t *testing.T) {
	server := newTokenServer(t)
	defer server.Close()

	store := newTempStore(t)
	require.NoError(t, store.Save(oauth.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh-old",
		ExpiresIn:    7200,
		ExpiresAt:    time.Now().Unix() - 10,
	}))

	manager, err := oauth.NewManager(context.Background(), testCreds, server.URL, store, zerolog.Nop())
	require.NoError(t, err)

	const workers = 16
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := manager.Token(context.Background())
			if err == nil && tok.AccessToken == "" {
				err = fmt.Errorf("got empty access token")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Every worker saw an expired token but only one refresh ran.
	require.Equal(t, int32(1), server.refreshGrants.Load())

	persisted, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "access-1", persisted.AccessToken)
}

func TestFileStoreEmpty(t *testing.T) {
	store := oauth.NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))
	_, err := store.Load()
	require.ErrorIs(t, err, oauth.ErrEmptyStore)
}

func TestLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.ionapi")
	require.NoError(t, os.WriteFile(path, []byte(`{"ci":"id","cs":"sec","saak":"ak","sask":"sk"}`), 0600))

	creds, err := oauth.LoadCredentials(path)
	require.NoError(t, err)
	require.Equal(t, "id", creds.ClientID)
	require.Equal(t, "sec", creds.ClientSecret)
	require.Equal(t, "ak", creds.AccessKey)
	require.Equal(t, "sk", creds.SecretKey)
}

// tokenServer fakes the authorization server's token endpoint.
type tokenServer struct {
	*httptest.Server
	passwordGrants     atomic.Int32
	refreshGrants      atomic.Int32
	omitRefreshToken   bool
	refreshFailureBody string
	issued             atomic.Int32
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client", r.PostFormValue("client_id"))

		switch r.PostFormValue("grant_type") {
		case "refresh_token":
			ts.refreshGrants.Add(1)
			if ts.refreshFailureBody != "" {
				http.Error(w, ts.refreshFailureBody, http.StatusBadRequest)
				return
			}
		case "password":
			ts.passwordGrants.Add(1)
		default:
			http.Error(w, "unsupported grant", http.StatusBadRequest)
			return
		}

		resp := map[string]interface{}{
			"access_token": fmt.Sprintf("access-%d", ts.issued.Add(1)),
			"token_type":   "Bearer",
			"expires_in":   7200,
		}
		if !ts.omitRefreshToken {
			resp["refresh_token"] = "refresh-new"
		}
		json.NewEncoder(w).Encode(resp)
	}))
	return ts
}

func newTempStore(t *testing.T) *oauth.FileStore {
	t.Helper()
	return oauth.NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))
}
