package headers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lumaops/datalake-extract/internal/config"
	"github.com/lumaops/datalake-extract/internal/datalake"
	"github.com/lumaops/datalake-extract/internal/headers"
	"github.com/lumaops/datalake-extract/internal/oauth"
)

type staticTokens struct{}

func (staticTokens) Token(ctx context.Context) (oauth.Token, error) {
	return oauth.Token{AccessToken: "test-token"}, nil
}

func TestRunWritesRecountPerAgency(t *testing.T) {
	dir := t.TempDir()

	counts := map[string]int{"951": 120, "952": 0, "999": 7}
	var mu sync.Mutex
	filters := make([]string, 0, len(counts))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("_lplFilter")
		mu.Lock()
		filters = append(filters, filter)
		mu.Unlock()

		for agency, count := range counts {
			if strings.Contains(filter, fmt.Sprintf("%q", agency)) {
				fmt.Fprintf(w, `[{"_count":%d},{"_fields":{}}]`, count)
				return
			}
		}
		http.Error(w, "unknown agency", http.StatusBadRequest)
	}))
	defer server.Close()

	files := config.FileConfig{
		Agencies: filepath.Join(dir, "agencies.csv"),
		Recounts: filepath.Join(dir, "fsm-data/{business_class}_{agency}_recounts.csv"),
	}
	require.NoError(t, os.WriteFile(files.Agencies, []byte("951\n952\n999\n"), 0644))

	fetcher := headers.NewFetcher(
		datalake.NewClient(staticTokens{}),
		datalake.NewEndpoints(server.URL, server.URL, "TENANT"),
		files,
		zerolog.Nop(),
	)

	require.NoError(t, fetcher.Run(context.Background(), "GLTransactionDetail", "PostingDate,AccountingEntity", "2023-10-01"))

	for agency, count := range counts {
		data, err := os.ReadFile(files.RecountsFile("GLTransactionDetail", agency))
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("%d\n", count), string(data))
	}

	// Every query carried the posting-date cutoff.
	require.Len(t, filters, 3)
	for _, filter := range filters {
		require.Contains(t, filter, `PostingDate < "2023-10-01"`)
	}
}

func TestRunToleratesFailingAgencies(t *testing.T) {
	dir := t.TempDir()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("_lplFilter"), `"952"`) {
			http.Error(w, "agency offline", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `[{"_count":5}]`)
	}))
	defer server.Close()

	files := config.FileConfig{
		Agencies: filepath.Join(dir, "agencies.csv"),
		Recounts: filepath.Join(dir, "fsm-data/{business_class}_{agency}_recounts.csv"),
	}
	require.NoError(t, os.WriteFile(files.Agencies, []byte("951\n952\n953\n"), 0644))

	fetcher := headers.NewFetcher(
		datalake.NewClient(staticTokens{}),
		datalake.NewEndpoints(server.URL, server.URL, "TENANT"),
		files,
		zerolog.Nop(),
	)

	require.NoError(t, fetcher.Run(context.Background(), "GLTransactionDetail", "PostingDate", "2023-10-01"))

	// The healthy agencies were written, the broken one was not.
	_, err := os.Stat(files.RecountsFile("GLTransactionDetail", "951"))
	require.NoError(t, err)
	_, err = os.Stat(files.RecountsFile("GLTransactionDetail", "953"))
	require.NoError(t, err)
	_, err = os.Stat(files.RecountsFile("GLTransactionDetail", "952"))
	require.True(t, os.IsNotExist(err))
}

func TestRunMissingAgenciesFile(t *testing.T) {
	files := config.FileConfig{Agencies: filepath.Join(t.TempDir(), "agencies.csv")}

	fetcher := headers.NewFetcher(nil, nil, files, zerolog.Nop())
	err := fetcher.Run(context.Background(), "GLTransactionDetail", "PostingDate", "2023-10-01")
	require.Error(t, err)
}
