// Package ingest reads raw source exports. Source schemas are unknown ahead
// of time; the adapter profile is what gives columns meaning, so rows are
// read positionally instead of binding to a struct.
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"

	"githubledger/ledger-adapt/internal/logging"
)

// ReadCSV reads a headered CSV file into the shared header and the data rows.
// Short rows are tolerated; the missing cells resolve to empty fields.
func ReadCSV(path string, delimiter rune, logger logging.Logger) ([]string, [][]string, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	logger.WithField("file", path).Info("Reading source CSV file")

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	reader := csv.NewReader(file)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing CSV file: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("CSV file has no header row: %s", path)
	}

	header := all[0]
	rows := all[1:]
	logger.WithField("count", len(rows)).Info("Read source rows")
	return header, rows, nil
}
