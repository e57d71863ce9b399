package engine

import (
	"time"

	"githubledger/ledger-adapt/internal/models"
)

// finalize assigns identity, maps the category, and settles confidence and
// status for one provisional. Confidence is the minimum of every contributing
// stage; the record validates only when that minimum clears the profile's
// threshold and no stage raised a review reason.
func (e *Engine) finalize(p *provisional, importedAt time.Time) {
	rec := p.rec
	rec.ID = models.NewRecordID()
	rec.ImportTimestamp = importedAt

	rec.Merchant = e.cleaner.NormalizeMerchant(rec.Merchant)

	if p.rawCategory != "" {
		mapped := e.mapper.Map(p.rawCategory, rec.Merchant, rec.ItemName)
		rec.CategoryMain = mapped.Main
		rec.CategorySub = mapped.Sub
		rec.Tags = mapped.Tags
		p.confidences = append(p.confidences, mapped.Confidence)
	}

	rec.ConfidenceScore = minConfidence(p.confidences)

	switch {
	case p.reviewReason != "":
		rec.Status = models.StatusPendingReview
		rec.ReviewReason = p.reviewReason
	case rec.ConfidenceScore < e.profile.ConfidenceThreshold:
		rec.Status = models.StatusPendingReview
		rec.ReviewReason = models.ReasonLowConfidence
		p.diags = append(p.diags, models.Diagnostic{
			RowIndex: rec.SourceRowIndex,
			Stage:    models.StageAssembly,
			Reason:   models.ReasonLowConfidence,
			Message:  "confidence below profile threshold",
		})
	default:
		rec.Status = models.StatusValidated
	}
}

func minConfidence(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0
	}
	min := confidences[0]
	for _, c := range confidences[1:] {
		if c < min {
			min = c
		}
	}
	return min
}
