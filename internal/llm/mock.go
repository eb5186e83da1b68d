package llm

import (
	"context"
	"errors"
	"sync"
)

// ErrMockExhausted is returned by MockClient once its canned replies run out.
var ErrMockExhausted = errors.New("mock completion client has no canned responses left")

// MockResponse is a canned reply for the MockClient.
type MockResponse struct {
	Content string
	Usage   Usage
	Err     error
}

// MockClient is a deterministic Client for tests and local development.
// It returns canned responses in FIFO order and records all requests.
type MockClient struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
}

func NewMockClient(responses ...MockResponse) *MockClient {
	return &MockClient{responses: responses}
}

func (m *MockClient) Complete(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		return nil, ErrMockExhausted
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return nil, resp.Err
	}
	if resp.Content == "" {
		return nil, ErrEmptyResponse
	}

	return &Response{
		Content: resp.Content,
		Model:   "mock",
		Usage:   resp.Usage,
	}, nil
}

func (m *MockClient) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockClient) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Complete calls made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
