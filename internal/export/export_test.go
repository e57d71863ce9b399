package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/models"
)

func sampleRecords() []*models.CanonicalRecord {
	return []*models.CanonicalRecord{
		{
			ID:              "rec-1",
			ImportTimestamp: time.Date(2024, time.March, 6, 8, 0, 0, 0, time.UTC),
			TransactionTime: models.NewDate(2024, time.March, 5),
			Amount:          models.NewAmount(decimal.RequireFromString("37.68")),
			Currency:        "CNY",
			Direction:       models.DirectionExpense,
			Merchant:        "星巴克",
			CategoryMain:    "餐饮",
			Tags:            []string{"女儿", "外食"},
			SourceFile:      "march.csv",
			ConfidenceScore: 0.95,
			Status:          models.StatusValidated,
			OriginalRow:     map[string]string{"金额": "37.68"},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "records.csv")
	w := NewWriter(',', &logging.MockLogger{})
	require.NoError(t, w.WriteCSV(sampleRecords(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header := rows[0]
	assert.Contains(t, header, "transaction_time")
	assert.Contains(t, header, "confidence_score")

	byName := map[string]string{}
	for i, h := range header {
		byName[h] = rows[1][i]
	}
	assert.Equal(t, "37.68", byName["amount"])
	assert.Equal(t, "2024-03-05", byName["transaction_time"])
	assert.Equal(t, "女儿|外食", byName["tags"])
	assert.Equal(t, "0.95", byName["confidence_score"])
	assert.Equal(t, "validated", byName["status"])
}

func TestWriteCSVRejectsNil(t *testing.T) {
	w := NewWriter(0, &logging.MockLogger{})
	assert.Error(t, w.WriteCSV(nil, filepath.Join(t.TempDir(), "records.csv")))
}

func TestWriteJSONCarriesProvenance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	w := NewWriter(0, &logging.MockLogger{})

	diags := []models.Diagnostic{
		{RowIndex: 3, Stage: models.StageCleaning, Reason: models.ReasonExcluded, Keyword: "transfer"},
	}
	require.NoError(t, w.WriteJSON(sampleRecords(), diags, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Records     []models.CanonicalRecord `json:"records"`
		Diagnostics []models.Diagnostic      `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Records, 1)
	assert.Equal(t, "37.68", doc.Records[0].Amount.String())
	assert.Equal(t, map[string]string{"金额": "37.68"}, doc.Records[0].OriginalRow)
	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, "transfer", doc.Diagnostics[0].Keyword)
}

func TestWriteJSONEmptyResultStaysArrays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	w := NewWriter(0, &logging.MockLogger{})
	require.NoError(t, w.WriteJSON(nil, nil, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"records": []`)
	assert.Contains(t, string(data), `"diagnostics": []`)
}
