package inference

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/profile"
)

// GeminiClient implements Client against the Google Gemini API.
type GeminiClient struct {
	apiKey  string
	model   string
	timeout time.Duration
	logger  logging.Logger

	client *genai.Client
	gm     *genai.GenerativeModel
}

// NewGeminiClient creates a Gemini-backed inference client. The underlying
// API client is created lazily on first use.
func NewGeminiClient(apiKey, model string, timeout time.Duration, logger logging.Logger) *GeminiClient {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClient{apiKey: apiKey, model: model, timeout: timeout, logger: logger}
}

func (c *GeminiClient) ensureClient(ctx context.Context) error {
	if c.client != nil {
		return nil
	}
	if c.apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}
	c.client = client
	c.gm = client.GenerativeModel(c.model)
	return nil
}

// Infer asks the model to read the text as zero or more transactions and
// parses its line-structured reply. The call is bounded by the configured
// timeout on top of whatever deadline ctx already carries.
func (c *GeminiClient) Infer(ctx context.Context, text string, ic Context) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.ensureClient(ctx); err != nil {
		return nil, err
	}

	prompt := buildPrompt(text, ic)
	resp, err := c.gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	candidates := parseCandidates(responseText)

	c.logger.WithFields(
		logging.Field{Key: "candidates", Value: len(candidates)},
		logging.Field{Key: "model", Value: c.model},
	).Debug("Inference completed")
	return candidates, nil
}

func buildPrompt(text string, ic Context) string {
	var b strings.Builder
	b.WriteString("Read the following financial text and list every distinct transaction it describes.\n")
	b.WriteString("Respond with one line per transaction, exactly in this form:\n")
	b.WriteString("transaction: date=<date or empty>; amount=<number>; merchant=<name or empty>; item=<name or empty>; confidence=<0.0-1.0>\n")
	b.WriteString("Do not invent values absent from the text; leave them empty instead.\n")
	if ic.Mode != "" {
		fmt.Fprintf(&b, "Parsing mode: %s\n", ic.Mode)
	}
	for _, r := range ic.Rules {
		if r.Action == profile.ActionExtractMerchant && r.Pattern != "" {
			fmt.Fprintf(&b, "Merchant hint pattern: %s\n", r.Pattern)
		}
	}
	b.WriteString("\nText:\n")
	b.WriteString(text)
	return b.String()
}

// parseCandidates extracts candidates from the model's line-structured reply.
// Lines that do not follow the declared form are ignored.
func parseCandidates(response string) []Candidate {
	var candidates []Candidate
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(line), "transaction:") {
			continue
		}
		body := strings.TrimSpace(line[len("transaction:"):])

		cand := Candidate{}
		seenAmount := false
		for _, field := range strings.Split(body, ";") {
			key, value, ok := strings.Cut(field, "=")
			if !ok {
				continue
			}
			key = strings.TrimSpace(strings.ToLower(key))
			value = strings.TrimSpace(value)
			switch key {
			case "date":
				cand.Date = value
			case "amount":
				cand.Amount = value
				seenAmount = value != ""
			case "merchant":
				cand.Merchant = value
			case "item":
				cand.Item = value
			case "confidence":
				if f, err := strconv.ParseFloat(value, 64); err == nil && f >= 0 && f <= 1 {
					cand.Confidence = f
				}
			}
		}
		if seenAmount {
			candidates = append(candidates, cand)
		}
	}
	return candidates
}
