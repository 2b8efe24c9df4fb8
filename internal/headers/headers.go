// Package headers fans out header-count queries against the FSM generic-list
// endpoint, one per agency code, and records each agency's advertised record
// count for reconciliation against previously extracted data.
package headers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lumaops/datalake-extract/internal/config"
	"github.com/lumaops/datalake-extract/internal/datalake"
)

// header is the first element of a generic-list response.
type header struct {
	Count int64 `json:"_count"`
}

// Fetcher queries the generic-list endpoint for each configured agency and
// writes one recount file per agency. Agencies are independent, so the
// fan-out is a bounded worker pool and one agency's failure never cancels
// the others.
type Fetcher struct {
	client    *datalake.Client
	endpoints *datalake.Endpoints
	files     config.FileConfig
	log       zerolog.Logger

	// Workers caps the number of in-flight agency queries.
	Workers int
}

func NewFetcher(client *datalake.Client, endpoints *datalake.Endpoints, files config.FileConfig, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		client:    client,
		endpoints: endpoints,
		files:     files,
		log:       log,
		Workers:   8,
	}
}

// Run reads the agency list and fetches every agency's header count for the
// business class. Failed agencies are logged and skipped; Run reports only
// pool-level errors.
func (f *Fetcher) Run(ctx context.Context, businessClass, fields string, postingCutoff string) error {
	agencies, err := loadAgencies(f.files.AgenciesFile())
	if err != nil {
		return err
	}
	f.log.Info().Msgf("Fetching header counts for %d agencies...", len(agencies))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.Workers)

	for _, agency := range agencies {
		agency := agency
		g.Go(func() error {
			if err := f.fetchOne(ctx, businessClass, fields, postingCutoff, agency); err != nil {
				f.log.Error().Err(err).Msgf("Failed to fetch header for agency: %s", agency)
			}
			return nil
		})
	}
	return g.Wait()
}

func (f *Fetcher) fetchOne(ctx context.Context, businessClass, fields, postingCutoff, agency string) error {
	body, err := f.client.Get(ctx, f.listURL(businessClass, fields, postingCutoff, agency))
	if err != nil {
		return err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return errors.Wrap(err, "parse generic-list response")
	}
	if len(records) == 0 {
		return errors.New("generic-list response has no header record")
	}

	var h header
	if err := json.Unmarshal(records[0], &h); err != nil {
		return errors.Wrap(err, "parse generic-list header")
	}

	return f.writeRecount(businessClass, agency, h.Count)
}

// listURL builds the generic-list URL with the agency filter. The endpoint
// takes the filter as an extra `_lplFilter` query parameter on top of the
// fields and limit.
func (f *Fetcher) listURL(businessClass, fields, postingCutoff, agency string) string {
	filter := fmt.Sprintf(`PostingDate < "%s" and AccountingEntity = "%s"`, postingCutoff, agency)
	return f.endpoints.GenericList(businessClass, fields, 1) + "&_lplFilter=" + url.QueryEscape(filter)
}

func (f *Fetcher) writeRecount(businessClass, agency string, count int64) error {
	path := f.files.RecountsFile(businessClass, agency)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "create recounts directory for '%s'", path)
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", count)), 0644); err != nil {
		return errors.Wrapf(err, "write recounts file '%s'", path)
	}
	return nil
}

// loadAgencies reads agency codes from the one-per-line agencies file.
func loadAgencies(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open agencies file '%s'", path)
	}
	defer file.Close()

	var agencies []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		agency := strings.TrimSpace(scanner.Text())
		if agency != "" {
			agencies = append(agencies, agency)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read agencies file '%s'", path)
	}
	return agencies, nil
}
