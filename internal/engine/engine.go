// Package engine orchestrates the normalization pipeline: field resolution,
// mode-dispatched row interpretation, entity extraction, category mapping,
// cleaning and deduplication, record assembly. The engine holds no mutable
// state between batches; the same profile over the same rows yields identical
// output apart from generated IDs and import timestamps.
package engine

import (
	"context"
	"runtime"
	"time"

	"githubledger/ledger-adapt/internal/categorymap"
	"githubledger/ledger-adapt/internal/cleaner"
	"githubledger/ledger-adapt/internal/extraction"
	"githubledger/ledger-adapt/internal/inference"
	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/models"
	"githubledger/ledger-adapt/internal/profile"
)

// Result is the outcome of one batch: records in source-row order plus the
// diagnostics for everything that did not reach validated status.
type Result struct {
	Records     []*models.CanonicalRecord
	Diagnostics []models.Diagnostic
}

// Engine applies one validated adapter profile to batches of raw rows.
type Engine struct {
	profile    *profile.AdapterProfile
	extractor  *extraction.Engine
	mapper     *categorymap.Mapper
	cleaner    *cleaner.Cleaner
	inference inference.Client
	workers   int
	logger    logging.Logger
}

// batch carries the per-call inputs shared by every row of one Process call.
type batch struct {
	sourceFile string
	res        *resolution
}

// New validates the profile and assembles the pipeline. A profile that fails
// validation never produces an engine; client may be nil when no inference-
// backed mode or extraction source is in use.
func New(p *profile.AdapterProfile, client inference.Client, logger logging.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	p.ApplyDefaults()
	if err := profile.Validate(p); err != nil {
		return nil, err
	}

	extractor, err := extraction.NewEngine(p.ParsingStrategy.MerchantExtraction.Rules, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		profile:   p,
		extractor: extractor,
		mapper:    categorymap.NewMapper(p.CategorySystem, logger),
		cleaner:   cleaner.NewCleaner(p.DataCleaning, logger),
		inference: client,
		workers:   runtime.NumCPU(),
		logger:    logger,
	}, nil
}

// SetWorkers overrides the worker count for the per-row phase. Values below
// one force the sequential path.
func (e *Engine) SetWorkers(n int) {
	e.workers = n
}

// Process normalizes one batch. header is the shared column header; each row
// of values keeps its source order. Row-local failures become diagnostics and
// review routing, never a batch error.
func (e *Engine) Process(ctx context.Context, sourceFile string, header []string, values [][]string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := make([]models.RawRow, len(values))
	for i, v := range values {
		rows[i] = models.RawRow{Index: i, Header: header, Values: v}
	}
	b := &batch{
		sourceFile: sourceFile,
		res:        resolve(e.profile.ColumnMapping, e.profile.ParsingStrategy.Mode, header, e.logger),
	}

	perRow := e.processRows(ctx, rows, b)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	importedAt := time.Now().UTC()
	result := &Result{}
	for _, provisionals := range perRow {
		for i := range provisionals {
			p := &provisionals[i]
			if p.rec != nil {
				e.finalize(p, importedAt)
				result.Records = append(result.Records, p.rec)
			}
			result.Diagnostics = append(result.Diagnostics, p.diags...)
		}
	}

	result.Records = e.cleaner.Deduplicate(result.Records)

	e.logger.WithFields(
		logging.Field{Key: "source_file", Value: sourceFile},
		logging.Field{Key: "rows", Value: len(rows)},
		logging.Field{Key: "records", Value: len(result.Records)},
		logging.Field{Key: "diagnostics", Value: len(result.Diagnostics)},
	).Info("Batch normalized")
	return result, nil
}
