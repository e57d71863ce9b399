// Package export writes normalization results to their serialized forms: a
// flat canonical CSV for spreadsheet review and a JSON document that carries
// the full record shape including provenance and diagnostics.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/models"
)

// Writer serializes canonical records. The CSV delimiter is configurable for
// locales whose spreadsheet tools expect semicolons.
type Writer struct {
	delimiter rune
	logger    logging.Logger
}

// NewWriter creates a writer. A zero delimiter means comma.
func NewWriter(delimiter rune, logger logging.Logger) *Writer {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if delimiter == 0 {
		delimiter = ','
	}
	return &Writer{delimiter: delimiter, logger: logger}
}

// csvRecord is the flat CSV projection of a canonical record. Nested
// provenance (original row, merged duplicates) does not fit a flat row and is
// only carried by the JSON form; merged_count keeps dedup visible here.
type csvRecord struct {
	ID              string `csv:"id"`
	ImportTimestamp string `csv:"import_timestamp"`
	TransactionTime string `csv:"transaction_time"`
	Amount          string `csv:"amount"`
	Currency        string `csv:"currency"`
	Direction       string `csv:"direction"`
	Merchant        string `csv:"merchant"`
	Platform        string `csv:"platform"`
	ItemName        string `csv:"item_name"`
	Quantity        string `csv:"quantity"`
	Unit            string `csv:"unit"`
	CategoryMain    string `csv:"category_main"`
	CategorySub     string `csv:"category_sub"`
	Tags            string `csv:"tags"`
	SourceFile      string `csv:"source_file"`
	SourceRowIndex  int    `csv:"source_row_index"`
	ConfidenceScore string `csv:"confidence_score"`
	Notes           string `csv:"notes"`
	Status          string `csv:"status"`
	ReviewReason    string `csv:"review_reason"`
	MergedCount     int    `csv:"merged_count"`
}

func toCSVRecord(r *models.CanonicalRecord) csvRecord {
	row := csvRecord{
		ID:              r.ID,
		ImportTimestamp: r.ImportTimestamp.Format("2006-01-02T15:04:05Z07:00"),
		TransactionTime: r.TransactionTime.String(),
		Amount:          r.Amount.String(),
		Currency:        r.Currency,
		Direction:       string(r.Direction),
		Merchant:        r.Merchant,
		Platform:        r.Platform,
		ItemName:        r.ItemName,
		Unit:            r.Unit,
		CategoryMain:    r.CategoryMain,
		CategorySub:     r.CategorySub,
		Tags:            strings.Join(r.Tags, "|"),
		SourceFile:      r.SourceFile,
		SourceRowIndex:  r.SourceRowIndex,
		ConfidenceScore: fmt.Sprintf("%.2f", r.ConfidenceScore),
		Notes:           r.Notes,
		Status:          string(r.Status),
		ReviewReason:    r.ReviewReason,
		MergedCount:     len(r.MergedFrom),
	}
	if r.Quantity != nil {
		row.Quantity = r.Quantity.String()
	}
	return row
}

// WriteCSV writes records to a CSV file, creating parent directories as
// needed.
func (w *Writer) WriteCSV(records []*models.CanonicalRecord, path string) error {
	if records == nil {
		return fmt.Errorf("cannot write nil records to CSV")
	}

	rows := make([]csvRecord, 0, len(records))
	for _, r := range records {
		rows = append(rows, toCSVRecord(r))
	}

	file, err := w.createOutput(path)
	if err != nil {
		return err
	}
	defer w.closeOutput(file)

	csvWriter := csv.NewWriter(file)
	csvWriter.Comma = w.delimiter
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}

	w.logger.WithFields(
		logging.Field{Key: "file", Value: path},
		logging.Field{Key: "count", Value: len(records)},
	).Info("Wrote canonical records to CSV")
	return nil
}

// jsonDocument is the full-fidelity output form.
type jsonDocument struct {
	Records     []*models.CanonicalRecord `json:"records"`
	Diagnostics []models.Diagnostic       `json:"diagnostics"`
}

// WriteJSON writes records and diagnostics as one JSON document with every
// field the canonical record carries, including provenance.
func (w *Writer) WriteJSON(records []*models.CanonicalRecord, diags []models.Diagnostic, path string) error {
	doc := jsonDocument{Records: records, Diagnostics: diags}
	if doc.Records == nil {
		doc.Records = []*models.CanonicalRecord{}
	}
	if doc.Diagnostics == nil {
		doc.Diagnostics = []models.Diagnostic{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding JSON output: %w", err)
	}

	file, err := w.createOutput(path)
	if err != nil {
		return err
	}
	defer w.closeOutput(file)

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("error writing JSON output: %w", err)
	}

	w.logger.WithFields(
		logging.Field{Key: "file", Value: path},
		logging.Field{Key: "count", Value: len(records)},
	).Info("Wrote canonical records to JSON")
	return nil
}

func (w *Writer) createOutput(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("error creating directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error creating output file: %w", err)
	}
	return file, nil
}

func (w *Writer) closeOutput(file *os.File) {
	if err := file.Close(); err != nil {
		w.logger.WithError(err).Warn("Failed to close output file")
	}
}
