// Package extract drives the per-business-class extraction run: resolving
// which object ids need fetching, pulling and classifying each object's
// records, recording extraction history and reconciling record counts.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lumaops/datalake-extract/internal/config"
	"github.com/lumaops/datalake-extract/internal/datalake"
	"github.com/lumaops/datalake-extract/internal/schema"
)

// LoadMode selects between an incremental extraction (only ids not yet in
// the history ledger) and a full wipe/replace extraction.
type LoadMode int

const (
	IncrementalLoad LoadMode = iota
	FullLoad
)

func (m LoadMode) String() string {
	if m == FullLoad {
		return "full"
	}
	return "incremental"
}

// Reporter records the outcome of one business class run, e.g. in the job
// tracker table.
type Reporter interface {
	Record(ctx context.Context, businessClass string, started time.Time, ok bool, duration time.Duration) error
}

// RunContext carries one business class through the stage pipeline. Every
// stage takes the context explicitly; there is no hidden shared state
// between stages.
type RunContext struct {
	BusinessClass string
	Mode          LoadMode
	IncID         int64
	Registry      schema.Registry
	IDs           []string
	Extracted     []string
	Files         *DataFiles
	History       *History
	IncHistory    *History
	Started       time.Time
}

// Stage is one phase of the extraction pipeline.
type Stage func(ctx context.Context, rc *RunContext) error

// Orchestrator composes the extraction stages for each business class in
// the configured extraction groups. Business classes are processed strictly
// sequentially so schema-version assignment stays deterministic and the
// append-only files are never interleaved.
type Orchestrator struct {
	cfg        *config.Config
	props      *datalake.PropertiesQuery
	metadata   *datalake.MetadataQuery
	stream     *datalake.StreamQuery
	classifier *schema.Classifier
	reporter   Reporter
	validate   bool
	log        zerolog.Logger
	now        func() time.Time
}

func NewOrchestrator(cfg *config.Config, client *datalake.Client, endpoints *datalake.Endpoints, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		props:      &datalake.PropertiesQuery{Client: client, Endpoints: endpoints, RecordLimit: cfg.Extractions.RecordLimit},
		metadata:   &datalake.MetadataQuery{Client: client, Endpoints: endpoints},
		stream:     &datalake.StreamQuery{Client: client, Endpoints: endpoints},
		classifier: schema.NewClassifier(log),
		log:        log,
		now:        time.Now,
	}
}

// WithReporter wires an outcome reporter into the run loop.
func (o *Orchestrator) WithReporter(r Reporter) *Orchestrator {
	o.reporter = r
	return o
}

// WithValidation enables the post-extraction record count reconciliation.
func (o *Orchestrator) WithValidation() *Orchestrator {
	o.validate = true
	return o
}

// RunGroups processes every business class in the active extraction groups,
// one class at a time. The closing duration log fires even when some ids
// failed along the way, since per-id failures never abort a run.
func (o *Orchestrator) RunGroups(ctx context.Context, mode LoadMode) error {
	started := o.now()
	for _, group := range o.cfg.Extractions.ActiveGroups() {
		o.log.Info().Msgf("Processing extraction group: %s", group)
		for _, bc := range o.cfg.BusinessClasses(group) {
			o.log.Info().Msgf("Processing business class: %s", bc)
			if err := o.Run(ctx, bc, mode); err != nil {
				return fmt.Errorf("business class %s: %w", bc, err)
			}
		}
	}

	o.log.Info().Msg("Extraction complete!")
	o.log.Info().Msgf("Extraction duration: %s", o.now().Sub(started))
	return nil
}

// Run drives one business class through Setup, Extract, PostProcess and
// Validate.
func (o *Orchestrator) Run(ctx context.Context, businessClass string, mode LoadMode) error {
	rc := &RunContext{
		BusinessClass: businessClass,
		Mode:          mode,
		IncID:         o.cfg.Inc.ActiveIncID(o.now()),
		Started:       o.now(),
	}
	rc.Files = NewDataFiles(o.cfg.Files, businessClass, mode == IncrementalLoad, rc.IncID)
	rc.History = NewHistory(o.cfg.Files.HistoryFile(businessClass))
	rc.IncHistory = NewHistory(o.cfg.Files.IncHistoryFile(businessClass))

	stages := []Stage{o.Setup, o.Extract, o.PostProcess, o.Validate}
	for _, stage := range stages {
		if err := stage(ctx, rc); err != nil {
			o.report(ctx, rc, false)
			return err
		}
	}

	o.report(ctx, rc, true)
	return nil
}

func (o *Orchestrator) report(ctx context.Context, rc *RunContext, ok bool) {
	if o.reporter == nil {
		return
	}
	if err := o.reporter.Record(ctx, rc.BusinessClass, rc.Started, ok, o.now().Sub(rc.Started)); err != nil {
		o.log.Error().Err(err).Msg("Failed to record job outcome")
	}
}

// Setup compiles the object-properties list from the splitquery chunks,
// persists it, and resolves the id set for the configured load mode. Ids are
// derived strictly from the persisted copy so a later run can resume from
// the same on-disk state.
func (o *Orchestrator) Setup(ctx context.Context, rc *RunContext) error {
	bc := rc.BusinessClass
	filter := datalake.Filter("dl_document_name", "eq", bc)

	props, err := o.compileProperties(ctx, filter)
	if err != nil {
		return err
	}

	objPropsPath := o.cfg.Files.ObjPropsFile(bc)
	if err := os.MkdirAll(filepath.Dir(objPropsPath), 0755); err != nil {
		return fmt.Errorf("failed to create business class directory: %w", err)
	}
	if err := o.props.Persist(props, objPropsPath); err != nil {
		return err
	}

	persisted, err := datalake.LoadProperties(objPropsPath)
	if err != nil {
		return err
	}
	ids := persisted.IDs()

	if err := o.writeMetadata(ctx, bc); err != nil {
		return err
	}
	if err := ensureFile(o.cfg.Files.ColumnsFile(bc)); err != nil {
		return err
	}
	if err := os.MkdirAll(o.cfg.Files.IncFolder(bc, rc.IncID), 0755); err != nil {
		return fmt.Errorf("failed to create incremental folder: %w", err)
	}

	switch rc.Mode {
	case IncrementalLoad:
		ids, err = rc.History.NotExtracted(ids)
		if err != nil {
			return err
		}
	case FullLoad:
		if err := rc.Files.RemoveAll(); err != nil {
			return err
		}
		if err := rc.History.Clear(); err != nil {
			return err
		}
	}

	rc.Registry, err = schema.LoadRegistry(o.cfg.Files.SchemasFile(bc))
	if err != nil {
		return err
	}
	if err := rc.Files.CreateEmpty(rc.Registry.Versions()); err != nil {
		return err
	}

	rc.IDs = ids
	return nil
}

// compileProperties queries the splitquery endpoint for chunk filters, then
// concatenates each chunk's fields into one unified properties list.
func (o *Orchestrator) compileProperties(ctx context.Context, filter string) (*datalake.ObjectProperties, error) {
	splits, err := o.props.Split(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(splits) == 0 {
		return o.props.Query(ctx, filter)
	}

	compiled := &datalake.ObjectProperties{}
	for _, split := range splits {
		chunk, err := o.props.Query(ctx, stripParens(split.QueryFilter))
		if err != nil {
			return nil, err
		}
		compiled.Fields = append(compiled.Fields, chunk.Fields...)
	}
	return compiled, nil
}

func (o *Orchestrator) writeMetadata(ctx context.Context, businessClass string) error {
	properties, err := o.metadata.Query(ctx, businessClass)
	if err != nil {
		return err
	}
	return o.metadata.Persist(properties, o.cfg.Files.MetadataFile(businessClass))
}

// Extract fetches each resolved id in source order. A single bad id never
// aborts the business class: the failure is logged, the ids extracted so far
// go to the recovery file, and the loop moves on.
func (o *Orchestrator) Extract(ctx context.Context, rc *RunContext) error {
	total := len(rc.IDs)
	o.log.Info().Msgf("Found %d ids...", total)

	counter := 0
	for _, id := range rc.IDs {
		o.log.Debug().Msg(id)

		if _, err := uuid.Parse(id); err != nil {
			o.log.Warn().Msgf("Skipping malformed object id: %s", id)
			continue
		}

		if err := o.extractOne(ctx, rc, id); err != nil {
			o.log.Error().Err(err).Msgf("Error querying data for object id: %s", id)
			o.writeRecovery(rc)
			continue
		}

		rc.Extracted = append(rc.Extracted, id)
		if counter%100 == 0 || counter == total-1 {
			o.log.Info().Msgf("Processing id %d / %d...", counter, total-1)
		}
		counter++
	}
	return nil
}

func (o *Orchestrator) extractOne(ctx context.Context, rc *RunContext, id string) error {
	body, err := o.stream.Query(ctx, id)
	if err != nil {
		return err
	}

	records, err := schema.ParseRecords(body)
	if err != nil {
		return err
	}

	buckets := o.classifier.Classify(records, rc.Registry)
	for version, rows := range buckets {
		if err := rc.Files.AppendRows(version, rows); err != nil {
			return err
		}
	}
	return nil
}

// writeRecovery appends the ids extracted so far to the recovery file so a
// crashed or partially failed run can be reconciled by hand.
func (o *Orchestrator) writeRecovery(rc *RunContext) {
	path := o.cfg.Files.RecoveryFile(rc.BusinessClass)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		o.log.Error().Err(err).Msg("Failed to create recovery directory")
		return
	}
	if err := NewHistory(path).Append(rc.Extracted); err != nil {
		o.log.Error().Err(err).Msg("Failed to write recovery file")
	}
}

// PostProcess persists the possibly grown schema registry and appends the
// successfully extracted ids to the history ledgers.
func (o *Orchestrator) PostProcess(ctx context.Context, rc *RunContext) error {
	if err := rc.Registry.Save(o.cfg.Files.SchemasFile(rc.BusinessClass)); err != nil {
		return err
	}

	if rc.Mode == IncrementalLoad {
		if err := rc.IncHistory.Append(rc.Extracted); err != nil {
			return err
		}
	}
	return rc.History.Append(rc.Extracted)
}

// Validate compares the rows written against the record counts the source
// advertised. A mismatch is a soft reconciliation signal, logged and never
// raised, since per-id failures are expected to occasionally under-count.
func (o *Orchestrator) Validate(ctx context.Context, rc *RunContext) error {
	if !o.validate {
		return nil
	}

	written, err := rc.Files.TotalRows(rc.Registry.DataVersions())
	if err != nil {
		return err
	}

	props, err := datalake.LoadProperties(o.cfg.Files.ObjPropsFile(rc.BusinessClass))
	if err != nil {
		return err
	}
	expected := props.ExpectedRecordCount()

	if written == expected {
		o.log.Info().Msgf("%s: Record counts on datalake documents, %d, match raw data, %d, in versioned files!",
			rc.BusinessClass, expected, written)
	} else {
		o.log.Warn().Msgf("%s: Record counts on datalake documents, %d, DO NOT match raw data, %d, in versioned files!",
			rc.BusinessClass, expected, written)
	}
	return nil
}

func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", path, err)
	}
	return f.Close()
}

func stripParens(filter string) string {
	out := make([]byte, 0, len(filter))
	for i := 0; i < len(filter); i++ {
		if filter[i] == '(' || filter[i] == ')' {
			continue
		}
		out = append(out, filter[i])
	}
	return string(out)
}
