package cleaner

import (
	"sort"
	"strings"

	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/models"
)

// Deduplicate collapses near-identical records across the batch. Candidates
// are grouped by the exact-match fields, then each group is swept once in
// time order with a sliding tolerance window, so merges are transitive: if
// A~B and B~C, all three collapse even when A and C alone exceed tolerance.
// The survivor keeps the merged-away rows as provenance. Output preserves
// original row order.
func (c *Cleaner) Deduplicate(records []*models.CanonicalRecord) []*models.CanonicalRecord {
	dd := c.rules.Dedup
	if !dd.Enabled || len(records) < 2 {
		return records
	}

	groups := make(map[string][]*models.CanonicalRecord)
	var order []string
	for _, rec := range records {
		key := c.groupKey(rec, dd.MatchFields)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	var survivors []*models.CanonicalRecord
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			survivors = append(survivors, group[0])
			continue
		}
		survivors = append(survivors, c.sweepGroup(group)...)
	}

	// stable so records sharing a row index (several full_nlp candidates
	// from one source row) keep their emission order
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].SourceRowIndex < survivors[j].SourceRowIndex
	})
	return survivors
}

// groupKey builds the exact-match key. transaction_time is intentionally not
// part of the key: time participates through the tolerance window instead.
// "date" matches at calendar-date granularity and so does join the key.
func (c *Cleaner) groupKey(rec *models.CanonicalRecord, matchFields []string) string {
	parts := make([]string, 0, len(matchFields))
	for _, field := range matchFields {
		switch field {
		case "amount":
			parts = append(parts, models.AmountKey(rec.Amount))
		case "date":
			parts = append(parts, rec.TransactionTime.DateKey())
		case "merchant":
			parts = append(parts, strings.ToLower(rec.Merchant))
		case "item_name":
			parts = append(parts, strings.ToLower(rec.ItemName))
		case "platform":
			parts = append(parts, strings.ToLower(rec.Platform))
		case "currency":
			parts = append(parts, strings.ToUpper(rec.Currency))
		case "transaction_time":
			// handled by the tolerance sweep
		}
	}
	return strings.Join(parts, "\x1f")
}

// sweepGroup runs the single-pass sliding-window sweep over one exact-match
// group and elects a survivor per cluster.
func (c *Cleaner) sweepGroup(group []*models.CanonicalRecord) []*models.CanonicalRecord {
	dd := c.rules.Dedup
	sort.SliceStable(group, func(i, j int) bool {
		a, b := group[i], group[j]
		if !a.TransactionTime.Equal(b.TransactionTime, dd.DateOnlyMatch) {
			return a.TransactionTime.Before(b.TransactionTime)
		}
		return a.SourceRowIndex < b.SourceRowIndex
	})

	tolerance := float64(dd.TimeToleranceSeconds)
	var survivors []*models.CanonicalRecord
	cluster := []*models.CanonicalRecord{group[0]}
	for _, rec := range group[1:] {
		prev := cluster[len(cluster)-1]
		if rec.TransactionTime.SecondsApart(prev.TransactionTime, dd.DateOnlyMatch) <= tolerance {
			cluster = append(cluster, rec)
			continue
		}
		survivors = append(survivors, c.electSurvivor(cluster))
		cluster = []*models.CanonicalRecord{rec}
	}
	survivors = append(survivors, c.electSurvivor(cluster))
	return survivors
}

// electSurvivor picks the record with the highest confidence; ties break to
// the earliest transaction time, then the lowest original row index. The
// merged-away duplicates become provenance references on the survivor.
func (c *Cleaner) electSurvivor(cluster []*models.CanonicalRecord) *models.CanonicalRecord {
	if len(cluster) == 1 {
		return cluster[0]
	}

	survivor := cluster[0]
	for _, rec := range cluster[1:] {
		switch {
		case rec.ConfidenceScore > survivor.ConfidenceScore:
			survivor = rec
		case rec.ConfidenceScore == survivor.ConfidenceScore:
			if rec.TransactionTime.Before(survivor.TransactionTime) {
				survivor = rec
			} else if !survivor.TransactionTime.Before(rec.TransactionTime) &&
				rec.SourceRowIndex < survivor.SourceRowIndex {
				survivor = rec
			}
		}
	}

	for _, rec := range cluster {
		if rec == survivor {
			continue
		}
		survivor.MergedFrom = append(survivor.MergedFrom, models.MergedProvenance{
			SourceRowIndex: rec.SourceRowIndex,
			OriginalRow:    rec.OriginalRow,
		})
		c.logger.WithFields(
			logging.Field{Key: "survivor_row", Value: survivor.SourceRowIndex},
			logging.Field{Key: "merged_row", Value: rec.SourceRowIndex},
		).Debug("Merged duplicate record")
	}
	return survivor
}
