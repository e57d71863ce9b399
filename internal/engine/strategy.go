package engine

import (
	"context"
	"strings"

	"githubledger/ledger-adapt/internal/extraction"
	"githubledger/ledger-adapt/internal/inference"
	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/models"
	"githubledger/ledger-adapt/internal/parsererror"
	"githubledger/ledger-adapt/internal/profile"
	"githubledger/ledger-adapt/internal/timeparse"
)

// provisional is one candidate record mid-pipeline, before category mapping
// and status assignment. A provisional without a record is a row that was
// dropped (exclusion) and contributes diagnostics only.
type provisional struct {
	rec *models.CanonicalRecord
	// rawCategory is the source category string, held aside for mapping.
	rawCategory string
	// confidences collects per-stage confidences; the builder takes the min.
	confidences []float64
	// reviewReason, when set, forces pending_review regardless of confidence.
	reviewReason string
	diags        []models.Diagnostic
}

// fail records a row-local failure: a diagnostic, a forced review reason, and
// a zero confidence contribution. The first failure reason sticks.
func (p *provisional) fail(rowIndex int, stage, reason, message string) {
	p.diags = append(p.diags, models.Diagnostic{
		RowIndex: rowIndex,
		Stage:    stage,
		Reason:   reason,
		Message:  message,
	})
	if p.reviewReason == "" {
		p.reviewReason = reason
	}
	p.confidences = append(p.confidences, 0)
}

// processRow runs exclusion, resolution checks, and the mode strategy for one
// row. full_nlp may yield several provisionals; exclusion yields none.
func (e *Engine) processRow(ctx context.Context, row models.RawRow, b *batch) []provisional {
	res := b.res
	rawCategory, _ := res.value(row, fieldCategory)
	notes, _ := res.value(row, fieldNotes)

	if keyword, excluded := e.cleaner.Excluded(rawCategory, notes); excluded {
		return []provisional{{diags: []models.Diagnostic{{
			RowIndex: row.Index,
			Stage:    models.StageCleaning,
			Reason:   models.ReasonExcluded,
			Keyword:  keyword,
			Message:  "row excluded by cleaning rule",
		}}}}
	}

	if errs := res.rowErrors(row.Index); len(errs) > 0 {
		p := provisional{rec: e.newRecord(row, b)}
		for _, err := range errs {
			p.fail(row.Index, models.StageResolution, models.ReasonMissingColumn, err.Error())
		}
		return []provisional{p}
	}

	switch e.profile.ParsingStrategy.Mode {
	case profile.ModeFullNLP:
		return e.processFullNLP(ctx, row, b)
	default:
		return []provisional{e.processColumns(ctx, row, b)}
	}
}

// newRecord starts a record with the provenance every outcome carries.
func (e *Engine) newRecord(row models.RawRow, b *batch) *models.CanonicalRecord {
	return &models.CanonicalRecord{
		Currency:       e.profile.ParsingStrategy.CurrencyDefault,
		Direction:      models.DirectionExpense,
		SourceFile:     b.sourceFile,
		SourceRowIndex: row.Index,
		OriginalRow:    row.Snapshot(),
	}
}

// processColumns handles the standard and mixed_notes modes: every semantic
// field comes from its own column; mixed_notes additionally runs the
// extraction rules over the notes text.
func (e *Engine) processColumns(ctx context.Context, row models.RawRow, b *batch) provisional {
	res := b.res
	p := provisional{rec: e.newRecord(row, b)}
	rec := p.rec

	if raw, ok := res.value(row, fieldDate); ok {
		tt, conf, err := timeparse.Parse(raw, e.profile.ParsingStrategy.DateFormat)
		if err != nil {
			perr := &parsererror.ParseError{Row: row.Index, Field: fieldDate, Value: raw, Err: err}
			p.fail(row.Index, models.StageParsing, models.ReasonParseFailure, perr.Error())
		} else {
			rec.TransactionTime = tt
			p.confidences = append(p.confidences, conf)
		}
	}

	if raw, ok := res.value(row, fieldAmount); ok {
		amount, err := models.ParseAmount(raw)
		if err != nil {
			perr := &parsererror.ParseError{Row: row.Index, Field: fieldAmount, Value: raw, Err: err}
			p.fail(row.Index, models.StageParsing, models.ReasonParseFailure, perr.Error())
		} else {
			e.setAmount(rec, amount)
			p.confidences = append(p.confidences, 1)
		}
	}

	if v, ok := res.value(row, fieldMerchant); ok {
		rec.Merchant = strings.TrimSpace(v)
	}
	if v, ok := res.value(row, fieldPlatform); ok {
		rec.Platform = strings.TrimSpace(v)
	}
	if v, ok := res.value(row, fieldItem); ok {
		rec.ItemName = strings.TrimSpace(v)
	}
	if raw, ok := res.value(row, fieldQuantity); ok && strings.TrimSpace(raw) != "" {
		if q, err := models.ParseAmount(raw); err == nil {
			rec.Quantity = &q
		} else {
			e.logger.WithFields(
				logging.Field{Key: "row", Value: row.Index},
				logging.Field{Key: "quantity", Value: raw},
			).Warn("Unparseable quantity left absent")
		}
	}
	if v, ok := res.value(row, fieldNotes); ok {
		rec.Notes = strings.TrimSpace(v)
	}
	p.rawCategory, _ = res.value(row, fieldCategory)

	if e.profile.ParsingStrategy.Mode == profile.ModeMixedNotes {
		e.extractEntities(ctx, row, &p)
	}
	return p
}

// extractEntities fills the merchant from the notes text per the profile's
// merchant-extraction source. The residual replaces the record's notes; the
// original text survives in OriginalRow.
func (e *Engine) extractEntities(ctx context.Context, row models.RawRow, p *provisional) {
	me := e.profile.ParsingStrategy.MerchantExtraction
	if !me.Enabled || p.rec.Notes == "" {
		return
	}

	switch me.Source {
	case profile.SourceAIInference:
		e.inferMerchant(ctx, row, p)
	case profile.SourceColumn:
		// merchant already read from its column
	default:
		result := e.extractor.Apply(p.rec.Notes)
		if result.Merchant != "" {
			p.rec.Merchant = result.Merchant
		}
		p.rec.Notes = result.Residual
		p.confidences = append(p.confidences, result.Confidence)
	}
}

// inferMerchant asks the inference capability for the merchant buried in the
// notes text. Capability failure routes the row to review, never aborts.
func (e *Engine) inferMerchant(ctx context.Context, row models.RawRow, p *provisional) {
	if e.inference == nil {
		p.fail(row.Index, models.StageExtraction, models.ReasonInferenceUnavailable,
			"merchant extraction requires the inference capability, which is not configured")
		return
	}

	candidates, err := e.inference.Infer(ctx, p.rec.Notes, inference.Context{
		Mode:  e.profile.ParsingStrategy.Mode,
		Rules: e.profile.ParsingStrategy.MerchantExtraction.Rules,
	})
	if err != nil {
		xerr := &parsererror.ExtractionError{Row: row.Index, Reason: "inference call failed", Err: err}
		p.fail(row.Index, models.StageExtraction, models.ReasonInferenceUnavailable, xerr.Error())
		return
	}
	for _, cand := range candidates {
		if cand.Merchant != "" {
			merchant := strings.TrimSpace(cand.Merchant)
			p.rec.Merchant = merchant
			// remove the extracted name from the retained notes, matching
			// what the rule-based path does with matched spans
			p.rec.Notes = extraction.StripSpan(p.rec.Notes, merchant)
			p.confidences = append(p.confidences, cand.Confidence)
			return
		}
	}
	p.confidences = append(p.confidences, extraction.ConfidenceNoMatch)
}

// processFullNLP hands the row text to the inference capability and builds
// one record per returned candidate. Zero candidates is a valid outcome.
func (e *Engine) processFullNLP(ctx context.Context, row models.RawRow, b *batch) []provisional {
	text := e.fullNLPText(row, b.res)
	if e.inference == nil {
		p := provisional{rec: e.newRecord(row, b)}
		p.fail(row.Index, models.StageExtraction, models.ReasonInferenceUnavailable,
			"full_nlp parsing requires the inference capability, which is not configured")
		return []provisional{p}
	}

	candidates, err := e.inference.Infer(ctx, text, inference.Context{
		Mode:  profile.ModeFullNLP,
		Rules: e.profile.ParsingStrategy.MerchantExtraction.Rules,
	})
	if err != nil {
		xerr := &parsererror.ExtractionError{Row: row.Index, Reason: "inference call failed", Err: err}
		p := provisional{rec: e.newRecord(row, b)}
		p.fail(row.Index, models.StageExtraction, models.ReasonInferenceUnavailable, xerr.Error())
		return []provisional{p}
	}

	provisionals := make([]provisional, 0, len(candidates))
	for _, cand := range candidates {
		provisionals = append(provisionals, e.candidateRecord(row, b, cand))
	}
	return provisionals
}

// fullNLPText selects the text handed to the capability: the notes column
// when bound, otherwise the whole row joined in source order.
func (e *Engine) fullNLPText(row models.RawRow, res *resolution) string {
	if v, ok := res.value(row, fieldNotes); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return strings.Join(row.Values, " | ")
}

// candidateRecord turns one inference candidate into a provisional record.
// Candidate fields are raw strings and go through the same exact parsers as
// column data.
func (e *Engine) candidateRecord(row models.RawRow, b *batch, cand inference.Candidate) provisional {
	p := provisional{rec: e.newRecord(row, b)}
	rec := p.rec
	p.confidences = append(p.confidences, cand.Confidence)

	if cand.Date == "" {
		p.fail(row.Index, models.StageParsing, models.ReasonMissingDate,
			"inference candidate carries no transaction date")
	} else if tt, _, err := timeparse.Parse(cand.Date, e.profile.ParsingStrategy.DateFormat); err == nil {
		rec.TransactionTime = tt
	} else {
		perr := &parsererror.ParseError{Row: row.Index, Field: fieldDate, Value: cand.Date, Err: err}
		p.fail(row.Index, models.StageParsing, models.ReasonParseFailure, perr.Error())
	}

	if amount, err := models.ParseAmount(cand.Amount); err == nil {
		e.setAmount(rec, amount)
	} else {
		perr := &parsererror.ParseError{Row: row.Index, Field: fieldAmount, Value: cand.Amount, Err: err}
		p.fail(row.Index, models.StageParsing, models.ReasonParseFailure, perr.Error())
	}

	rec.Merchant = strings.TrimSpace(cand.Merchant)
	rec.ItemName = strings.TrimSpace(cand.Item)
	return p
}

// setAmount stores a signed source amount as (absolute amount, direction).
// Negative numerals are incoming money (refunds, reimbursements).
func (e *Engine) setAmount(rec *models.CanonicalRecord, amount models.Amount) {
	if amount.IsNegative() {
		rec.Direction = models.DirectionIncome
		rec.Amount = amount.Abs()
		return
	}
	rec.Amount = amount
}
