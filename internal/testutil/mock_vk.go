// Package testutil provides testing utilities for the platform client and pipeline.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// MockVKResponse defines the behavior for a mock method response.
type MockVKResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// Call is one request observed by the mock server.
type Call struct {
	Method string
	Query  url.Values
}

// MockVK is a configurable mock of the platform's method endpoint.
// Handlers are keyed by method name ("users.get", "wall.get", ...).
type MockVK struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	calls    []Call
}

// NewMockVK creates a new mock platform server.
func NewMockVK() *MockVK {
	mock := &MockVK{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.TrimPrefix(r.URL.Path, "/")

		mock.mu.Lock()
		mock.calls = append(mock.calls, Call{Method: method, Query: r.URL.Query()})
		handler, exists := mock.handlers[method]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL, usable as the client's base URL.
func (m *MockVK) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockVK) Close() {
	m.server.Close()
}

// Reset clears recorded calls.
func (m *MockVK) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// SetHandler sets a custom handler for a method.
func (m *MockVK) SetHandler(method string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method] = handler
}

// SetResponse configures a fixed response for a method.
func (m *MockVK) SetResponse(method string, resp MockVKResponse) {
	m.SetHandler(method, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// Calls returns a copy of the recorded calls in arrival order.
func (m *MockVK) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of requests made to the server.
func (m *MockVK) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// MethodCount returns the number of requests made for one method.
func (m *MockVK) MethodCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// defaultHandler answers unknown methods the way the platform does.
func (m *MockVK) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"error":{"error_code":3,"error_msg":"Unknown method passed"}}`))
}

// NewCountResponse creates a {"response":{"count":n}} body.
func NewCountResponse(n int) MockVKResponse {
	return MockVKResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"response":{"count":%d,"items":[]}}`, n),
	}
}

// NewErrorResponse creates an error envelope body.
func NewErrorResponse(code int, message string) MockVKResponse {
	body, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"error_code": code,
			"error_msg":  message,
		},
	})
	return MockVKResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
	}
}

// NewAccessDeniedResponse creates the "this profile is private" envelope.
func NewAccessDeniedResponse() MockVKResponse {
	return NewErrorResponse(30, "This profile is private")
}

// NewTimeoutResponse delays longer than any sensible test timeout.
func NewTimeoutResponse(delay time.Duration) MockVKResponse {
	resp := NewCountResponse(0)
	resp.Delay = delay
	return resp
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockVKResponse {
	return MockVKResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `<html>Internal Server Error</html>`,
	}
}

// NewUsersHandler answers users.get with the subset of profiles whose id
// appears in the user_ids parameter, mimicking the platform's behavior for
// unknown ids.
func NewUsersHandler(profiles map[int64]map[string]any) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var users []map[string]any
		for _, raw := range strings.Split(r.URL.Query().Get("user_ids"), ",") {
			var id int64
			if _, err := fmt.Sscan(raw, &id); err != nil {
				continue
			}
			if p, ok := profiles[id]; ok {
				u := map[string]any{"id": id}
				for k, v := range p {
					u[k] = v
				}
				users = append(users, u)
			}
		}
		if users == nil {
			users = []map[string]any{}
		}

		body, _ := json.Marshal(map[string]any{"response": users})
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}
