package datalake

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/lumaops/datalake-extract/internal/oauth"
)

// TokenSource yields a token valid for immediate use. *oauth.Manager is the
// production implementation.
type TokenSource interface {
	Token(ctx context.Context) (oauth.Token, error)
}

// Client is the thin authenticated accessor shared by every query type:
// GET with a bearer token, body returned as bytes.
type Client struct {
	tokens TokenSource
	http   *http.Client
}

func NewClient(tokens TokenSource) *Client {
	return &Client{
		tokens: tokens,
		http:   &http.Client{Timeout: 5 * time.Minute},
	}
}

// Get performs an authenticated GET. Non-200 responses become errors that
// carry the response body, since the API reports failure detail there.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read response from %s", url)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("datalake request failed (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
