package llm

import "context"

// MockClient devuelve respuestas predefinidas para pruebas y para correr el
// diálogo sin API key.
type MockClient struct {
	Response  string
	Err       error
	Prompts   []string
	Responses []string
}

func (m *MockClient) Generate(_ context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) > 0 {
		r := m.Responses[0]
		m.Responses = m.Responses[1:]
		return r, nil
	}
	return m.Response, nil
}
