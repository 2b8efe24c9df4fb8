// Package oauth manages the OAuth credential used for every datalake call:
// issuing, refreshing and persisting the access token.
package oauth

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Token mirrors the persisted token file. ExpiresAt is computed once when
// the token is received and never recomputed afterward; a zero ExpiresAt
// means the token was never initialized.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Valid reports whether the token can be used for an immediate request.
func (t Token) Valid(now time.Time) bool {
	return t.ExpiresAt > now.Unix()
}

// stampExpiry sets ExpiresAt to 90% of the token lifetime, leaving a safety
// margin so a token never expires mid-request.
func (t *Token) stampExpiry(now time.Time) {
	if t.ExpiresAt == 0 {
		t.ExpiresAt = now.Unix() + t.ExpiresIn*9/10
	}
}

// Store persists a single token record.
type Store interface {
	Load() (Token, error)
	Save(Token) error
}

// FileStore keeps the token as one JSON object on disk. Writes are guarded
// by a mutex shared by all callers in the process so concurrent workers
// cannot interleave writes and corrupt the file; the lock covers exactly the
// file write.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted token. An absent or empty file yields
// ErrEmptyStore rather than a zero token, so callers reissue instead of
// treating an empty store as valid.
func (s *FileStore) Load() (Token, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Token{}, ErrEmptyStore
	}
	if err != nil {
		return Token{}, fmt.Errorf("failed to read token file '%s': %w", s.path, err)
	}
	if len(data) == 0 {
		return Token{}, ErrEmptyStore
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return Token{}, fmt.Errorf("failed to parse token file '%s': %w", s.path, err)
	}
	return tok, nil
}

func (s *FileStore) Save(tok Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file '%s': %w", s.path, err)
	}
	return nil
}

// Credentials are the static application credentials issued for the tenant.
// The field names follow the credential file's own keys.
type Credentials struct {
	ClientID     string `json:"ci"`
	ClientSecret string `json:"cs"`
	AccessKey    string `json:"saak"`
	SecretKey    string `json:"sask"`
}

// LoadCredentials reads the JSON credentials file generated for the tenant.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials file '%s': %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credentials file '%s': %w", path, err)
	}
	return creds, nil
}
