package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"githubledger/ledger-adapt/internal/inference"
	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/models"
	"githubledger/ledger-adapt/internal/parsererror"
	"githubledger/ledger-adapt/internal/profile"
)

func standardProfile() *profile.AdapterProfile {
	return &profile.AdapterProfile{
		ColumnMapping: profile.ColumnMapping{
			Date:     "购买日期",
			Amount:   "金额（元）",
			Merchant: "商户",
			Category: "类别",
			Notes:    "备注",
		},
		ParsingStrategy: profile.ParsingStrategy{
			Mode:       profile.ModeStandard,
			DateFormat: "%Y-%m-%d",
		},
		CategorySystem: profile.CategorySystem{
			Type: profile.CategoryFlat,
			Mapping: map[string]profile.CategoryMapping{
				"餐饮": {CategoryMain: "餐饮"},
			},
		},
	}
}

var standardHeader = []string{"购买日期", "金额（元）", "商户", "类别", "备注"}

func newTestEngine(t *testing.T, p *profile.AdapterProfile, client inference.Client) *Engine {
	t.Helper()
	eng, err := New(p, client, &logging.MockLogger{})
	require.NoError(t, err)
	return eng
}

func TestStandardModeValidatedRecord(t *testing.T) {
	client := &inference.MockClient{}
	eng := newTestEngine(t, standardProfile(), client)

	result, err := eng.Process(context.Background(), "march.csv", standardHeader, [][]string{
		{"2024-03-05", "37.68", "星巴克", "餐饮", "拿铁"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Equal(t, models.StatusValidated, rec.Status)
	assert.Equal(t, "37.68", rec.Amount.String())
	assert.Equal(t, "星巴克", rec.Merchant)
	assert.Equal(t, "餐饮", rec.CategoryMain)
	assert.Equal(t, models.DirectionExpense, rec.Direction)
	assert.Equal(t, "CNY", rec.Currency)
	assert.Equal(t, "2024-03-05", rec.TransactionTime.String())
	assert.Equal(t, 1.0, rec.ConfidenceScore)
	assert.Equal(t, "march.csv", rec.SourceFile)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "拿铁", rec.OriginalRow["备注"])
	// the inference capability is never consulted in standard mode
	assert.Empty(t, client.Calls)
}

func TestNegativeAmountBecomesIncome(t *testing.T) {
	eng := newTestEngine(t, standardProfile(), nil)

	result, err := eng.Process(context.Background(), "refunds.csv", standardHeader, [][]string{
		{"2024-03-05", "-37.68", "星巴克", "餐饮", "退款"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, models.DirectionIncome, result.Records[0].Direction)
	assert.Equal(t, "37.68", result.Records[0].Amount.String())
}

func TestMixedNotesUnmatchedRuleRoutesToReview(t *testing.T) {
	p := standardProfile()
	p.ParsingStrategy.Mode = profile.ModeMixedNotes
	p.ParsingStrategy.MerchantExtraction = profile.MerchantExtraction{
		Enabled: true,
		Source:  profile.SourceNotes,
		Rules: []profile.ExtractionRule{
			{Pattern: "公司名|店铺名", Action: profile.ActionExtractMerchant},
		},
	}
	p.ColumnMapping.Merchant = ""
	eng := newTestEngine(t, p, nil)

	result, err := eng.Process(context.Background(), "mixed.csv", standardHeader, [][]string{
		{"2024-03-05", "42.00", "", "", "海南莱成玖"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Empty(t, rec.Merchant)
	assert.Equal(t, "海南莱成玖", rec.Notes)
	assert.Equal(t, models.StatusPendingReview, rec.Status)
	assert.Equal(t, models.ReasonLowConfidence, rec.ReviewReason)
	assert.Less(t, rec.ConfidenceScore, p.ConfidenceThreshold)
}

func TestMixedNotesExtractsMerchant(t *testing.T) {
	p := standardProfile()
	p.ParsingStrategy.Mode = profile.ModeMixedNotes
	p.ParsingStrategy.MerchantExtraction = profile.MerchantExtraction{
		Enabled: true,
		Source:  profile.SourceNotes,
		Rules: []profile.ExtractionRule{
			{Pattern: `在(.+?)消费`, Action: profile.ActionExtractMerchant},
		},
	}
	p.ColumnMapping.Merchant = ""
	p.ConfidenceThreshold = 0.8
	eng := newTestEngine(t, p, nil)

	result, err := eng.Process(context.Background(), "mixed.csv", standardHeader, [][]string{
		{"2024-03-05", "58.00", "", "餐饮", "在肯德基消费 午餐"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Equal(t, "肯德基", rec.Merchant)
	assert.Equal(t, "午餐", rec.Notes)
	assert.Equal(t, models.StatusValidated, rec.Status)
	assert.Equal(t, 0.85, rec.ConfidenceScore)
}

func TestAIInferenceMerchantRemovedFromNotes(t *testing.T) {
	p := standardProfile()
	p.ParsingStrategy.Mode = profile.ModeMixedNotes
	p.ParsingStrategy.MerchantExtraction = profile.MerchantExtraction{
		Enabled: true,
		Source:  profile.SourceAIInference,
	}
	p.ColumnMapping.Merchant = ""
	client := &inference.MockClient{
		Response: []inference.Candidate{{Merchant: "瑞幸", Confidence: 0.9}},
	}
	eng := newTestEngine(t, p, client)

	result, err := eng.Process(context.Background(), "mixed.csv", standardHeader, [][]string{
		{"2024-03-05", "28.00", "", "餐饮", "在瑞幸买咖啡"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Equal(t, "瑞幸", rec.Merchant)
	assert.NotContains(t, rec.Notes, "瑞幸")
	assert.Equal(t, "在 买咖啡", rec.Notes)
	require.Len(t, client.Calls, 1)
	assert.Equal(t, "在瑞幸买咖啡", client.Calls[0])
}

func TestFullNLPOneRecordPerCandidate(t *testing.T) {
	p := standardProfile()
	p.ParsingStrategy.Mode = profile.ModeFullNLP
	client := &inference.MockClient{
		Response: []inference.Candidate{
			{Date: "2024-03-05", Amount: "37.68", Merchant: "瑞幸", Item: "咖啡", Confidence: 0.9},
		},
	}
	eng := newTestEngine(t, p, client)

	result, err := eng.Process(context.Background(), "diary.csv", standardHeader, [][]string{
		{"", "", "", "", "今天在瑞幸花了37.68买咖啡"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Equal(t, "37.68", rec.Amount.String())
	assert.Equal(t, "瑞幸", rec.Merchant)
	assert.Equal(t, "咖啡", rec.ItemName)
	assert.Equal(t, models.StatusValidated, rec.Status)
	// confidence is exactly what the capability reported
	assert.Equal(t, 0.9, rec.ConfidenceScore)
	require.Len(t, client.Calls, 1)
	assert.Equal(t, "今天在瑞幸花了37.68买咖啡", client.Calls[0])
}

func TestFullNLPMultipleCandidates(t *testing.T) {
	p := standardProfile()
	p.ParsingStrategy.Mode = profile.ModeFullNLP
	client := &inference.MockClient{
		Response: []inference.Candidate{
			{Date: "2024-03-05", Amount: "15", Merchant: "滴滴", Confidence: 0.9},
			{Date: "2024-03-05", Amount: "28.5", Merchant: "盒马", Confidence: 0.85},
		},
	}
	eng := newTestEngine(t, p, client)

	result, err := eng.Process(context.Background(), "diary.csv", standardHeader, [][]string{
		{"", "", "", "", "打车15块 超市28.5"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "滴滴", result.Records[0].Merchant)
	assert.Equal(t, "盒马", result.Records[1].Merchant)
}

func TestFullNLPZeroCandidates(t *testing.T) {
	p := standardProfile()
	p.ParsingStrategy.Mode = profile.ModeFullNLP
	eng := newTestEngine(t, p, &inference.MockClient{})

	result, err := eng.Process(context.Background(), "diary.csv", standardHeader, [][]string{
		{"", "", "", "", "今天天气不错"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Diagnostics)
}

func TestFullNLPInferenceFailureRoutesToReview(t *testing.T) {
	p := standardProfile()
	p.ParsingStrategy.Mode = profile.ModeFullNLP
	client := &inference.MockClient{Err: errors.New("deadline exceeded")}
	eng := newTestEngine(t, p, client)

	result, err := eng.Process(context.Background(), "diary.csv", standardHeader, [][]string{
		{"", "", "", "", "今天在瑞幸花了37.68买咖啡"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, models.StatusPendingReview, result.Records[0].Status)
	assert.Equal(t, models.ReasonInferenceUnavailable, result.Records[0].ReviewReason)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, models.StageExtraction, result.Diagnostics[0].Stage)
}

func TestFullNLPCandidateWithoutDate(t *testing.T) {
	p := standardProfile()
	p.ParsingStrategy.Mode = profile.ModeFullNLP
	client := &inference.MockClient{
		Response: []inference.Candidate{
			{Amount: "20", Merchant: "美团", Confidence: 0.9},
		},
	}
	eng := newTestEngine(t, p, client)

	result, err := eng.Process(context.Background(), "diary.csv", standardHeader, [][]string{
		{"", "", "", "", "外卖20块"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, models.StatusPendingReview, result.Records[0].Status)
	assert.Equal(t, models.ReasonMissingDate, result.Records[0].ReviewReason)
	assert.True(t, result.Records[0].TransactionTime.IsZero())
}

func TestExclusionProducesZeroRecordsOneDiagnostic(t *testing.T) {
	p := standardProfile()
	p.DataCleaning.ExcludeKeywords = []string{"transfer"}
	eng := newTestEngine(t, p, nil)

	result, err := eng.Process(context.Background(), "march.csv", standardHeader, [][]string{
		{"2024-03-05", "500", "", "Transfer", "to savings"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, models.ReasonExcluded, result.Diagnostics[0].Reason)
	assert.Equal(t, "transfer", result.Diagnostics[0].Keyword)
	assert.Equal(t, 0, result.Diagnostics[0].RowIndex)
}

func TestMissingRequiredColumnRoutesToReview(t *testing.T) {
	p := standardProfile()
	p.ColumnMapping.Amount = "不存在的列"
	eng := newTestEngine(t, p, nil)

	result, err := eng.Process(context.Background(), "march.csv", standardHeader, [][]string{
		{"2024-03-05", "37.68", "星巴克", "餐饮", ""},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, models.StatusPendingReview, result.Records[0].Status)
	assert.Equal(t, models.ReasonMissingColumn, result.Records[0].ReviewReason)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, models.StageResolution, result.Diagnostics[0].Stage)
}

func TestMalformedValuesRouteToReview(t *testing.T) {
	eng := newTestEngine(t, standardProfile(), nil)

	result, err := eng.Process(context.Background(), "march.csv", standardHeader, [][]string{
		{"不是日期", "37.68", "星巴克", "餐饮", ""},
		{"2024-03-05", "三十七", "星巴克", "餐饮", ""},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	for _, rec := range result.Records {
		assert.Equal(t, models.StatusPendingReview, rec.Status)
		assert.Equal(t, models.ReasonParseFailure, rec.ReviewReason)
	}
	assert.Len(t, result.Diagnostics, 2)
}

func TestMerchantNormalizationApplied(t *testing.T) {
	p := standardProfile()
	p.DataCleaning.MerchantMappings = map[string]string{"sbux": "Starbucks"}
	eng := newTestEngine(t, p, nil)

	result, err := eng.Process(context.Background(), "march.csv", standardHeader, [][]string{
		{"2024-03-05", "37.68", "SBUX", "餐饮", ""},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Starbucks", result.Records[0].Merchant)
}

func TestDeduplicationBarrier(t *testing.T) {
	p := standardProfile()
	p.ParsingStrategy.DateFormat = "%Y-%m-%d %H:%M:%S"
	p.DataCleaning.Dedup = profile.DedupSpec{
		Enabled:              true,
		MatchFields:          []string{"amount", "transaction_time", "merchant"},
		TimeToleranceSeconds: 60,
	}
	eng := newTestEngine(t, p, nil)

	result, err := eng.Process(context.Background(), "march.csv", standardHeader, [][]string{
		{"2024-03-05 12:00:00", "37.68", "星巴克", "餐饮", ""},
		{"2024-03-05 12:00:30", "37.68", "星巴克", "餐饮", ""},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Len(t, result.Records[0].MergedFrom, 1)
	assert.Equal(t, 1, result.Records[0].MergedFrom[0].SourceRowIndex)
}

func TestProcessIsIdempotent(t *testing.T) {
	p := standardProfile()
	p.DataCleaning.Dedup = profile.DedupSpec{
		Enabled:              true,
		MatchFields:          []string{"amount", "date", "merchant"},
		TimeToleranceSeconds: 60,
	}
	values := [][]string{
		{"2024-03-05", "37.68", "星巴克", "餐饮", "拿铁"},
		{"2024-03-05", "37.68", "星巴克", "餐饮", "拿铁"},
		{"2024-03-06", "15", "滴滴", "", "通勤"},
	}

	first, err := newTestEngine(t, p, nil).Process(context.Background(), "march.csv", standardHeader, values)
	require.NoError(t, err)
	second, err := newTestEngine(t, standardProfileClone(p), nil).Process(context.Background(), "march.csv", standardHeader, values)
	require.NoError(t, err)

	require.Equal(t, len(first.Records), len(second.Records))
	for i := range first.Records {
		a, b := first.Records[i], second.Records[i]
		assert.Equal(t, a.Amount.String(), b.Amount.String())
		assert.Equal(t, a.Merchant, b.Merchant)
		assert.Equal(t, a.TransactionTime.String(), b.TransactionTime.String())
		assert.Equal(t, a.Status, b.Status)
		assert.Equal(t, a.ConfidenceScore, b.ConfidenceScore)
		assert.Equal(t, len(a.MergedFrom), len(b.MergedFrom))
	}
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
}

// standardProfileClone rebuilds an equivalent profile so the second engine
// does not share mutable state with the first.
func standardProfileClone(p *profile.AdapterProfile) *profile.AdapterProfile {
	clone := *p
	return &clone
}

func TestInvalidProfileFailsClosed(t *testing.T) {
	p := standardProfile()
	p.ParsingStrategy.Mode = "psychic"

	_, err := New(p, nil, &logging.MockLogger{})
	require.Error(t, err)
	var verr *parsererror.ProfileValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSequentialAndConcurrentAgree(t *testing.T) {
	values := make([][]string, 0, 240)
	for i := 0; i < 240; i++ {
		values = append(values, []string{"2024-03-05", "37.68", "星巴克", "餐饮", ""})
	}

	sequential := newTestEngine(t, standardProfile(), nil)
	sequential.SetWorkers(1)
	concurrent := newTestEngine(t, standardProfile(), nil)
	concurrent.SetWorkers(4)

	a, err := sequential.Process(context.Background(), "march.csv", standardHeader, values)
	require.NoError(t, err)
	b, err := concurrent.Process(context.Background(), "march.csv", standardHeader, values)
	require.NoError(t, err)

	require.Equal(t, len(a.Records), len(b.Records))
	for i := range a.Records {
		assert.Equal(t, a.Records[i].SourceRowIndex, b.Records[i].SourceRowIndex)
		assert.Equal(t, a.Records[i].Status, b.Records[i].Status)
	}
}

func TestQuantityAbsentStaysAbsent(t *testing.T) {
	p := standardProfile()
	p.ColumnMapping.Quantity = "数量"
	header := append(append([]string{}, standardHeader...), "数量")
	eng := newTestEngine(t, p, nil)

	result, err := eng.Process(context.Background(), "march.csv", header, [][]string{
		{"2024-03-05", "37.68", "星巴克", "餐饮", "", ""},
		{"2024-03-05", "20", "美团", "餐饮", "", "2"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Nil(t, result.Records[0].Quantity)
	require.NotNil(t, result.Records[1].Quantity)
	assert.Equal(t, "2", result.Records[1].Quantity.String())
}
