package inference

import "context"

// MockClient is a test double for the inference capability.
type MockClient struct {
	// Response is returned for every call unless ByText matches first.
	Response []Candidate
	// ByText maps exact input text to candidate lists.
	ByText map[string][]Candidate
	// Err, when set, is returned for every call.
	Err error
	// Calls records the texts passed to Infer, in order.
	Calls []string
}

// Infer implements Client.
func (m *MockClient) Infer(ctx context.Context, text string, ic Context) ([]Candidate, error) {
	m.Calls = append(m.Calls, text)
	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ByText != nil {
		if cands, ok := m.ByText[text]; ok {
			return cands, nil
		}
	}
	return m.Response, nil
}
