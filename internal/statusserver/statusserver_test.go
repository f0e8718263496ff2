package statusserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrchestrator struct {
	state         StateView
	inputCalls    int
	notifiedPaths []string
}

func (s *stubOrchestrator) GetState() StateView { return s.state }
func (s *stubOrchestrator) OnInput()            { s.inputCalls++ }
func (s *stubOrchestrator) NotifyFileChanged(path string) {
	s.notifiedPaths = append(s.notifiedPaths, path)
}

func newTestServer() (*Server, *stubOrchestrator) {
	orch := &stubOrchestrator{state: StateView{Busy: true, InfraState: "Idle"}}
	return New(Config{Host: "localhost", Port: 0}, orch, nil), orch
}

func TestCheckOrigin(t *testing.T) {
	s, _ := newTestServer()

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin header (non-browser client)", "", true},
		{"localhost", "http://localhost:8350", true},
		{"127.0.0.1", "http://127.0.0.1:8350", true},
		{"other host rejected by default allowlist", "http://evil.example:8350", false},
		{"malformed origin", "not-a-url://", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, s.checkOrigin(req))
		})
	}
}

func TestCheckOrigin_HonorsAllowlist(t *testing.T) {
	orch := &stubOrchestrator{}
	s := New(Config{Host: "localhost", Port: 0, AllowedOrigins: []string{"app.example:443"}}, orch, nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://app.example:443")
	assert.True(t, s.checkOrigin(req))

	req2 := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req2.Header.Set("Origin", "https://localhost:8350")
	assert.False(t, s.checkOrigin(req2))
}

func TestHandleState_ReturnsOrchestratorSnapshot(t *testing.T) {
	s, _ := newTestServer()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	s.handleState(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got StateView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.Busy)
	assert.Equal(t, "Idle", got.InfraState)
}

func TestHandleInput_CallsOnInputAndRejectsNonPost(t *testing.T) {
	s, orch := newTestServer()

	rr := httptest.NewRecorder()
	s.handleInput(rr, httptest.NewRequest(http.MethodPost, "/input", nil))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, 1, orch.inputCalls)

	rr2 := httptest.NewRecorder()
	s.handleInput(rr2, httptest.NewRequest(http.MethodGet, "/input", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr2.Code)
	assert.Equal(t, 1, orch.inputCalls)
}

func TestHandleNotify_ParsesPathAndRejectsBadBody(t *testing.T) {
	s, orch := newTestServer()

	body := strings.NewReader(`{"path":"/app/src/h.ts"}`)
	rr := httptest.NewRecorder()
	s.handleNotify(rr, httptest.NewRequest(http.MethodPost, "/notify", body))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, orch.notifiedPaths, 1)
	assert.Equal(t, "/app/src/h.ts", orch.notifiedPaths[0])

	rr2 := httptest.NewRecorder()
	s.handleNotify(rr2, httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rr2.Code)
}

func TestBroadcast_DoesNotBlockWithoutSubscribers(t *testing.T) {
	s, _ := newTestServer()
	assert.NotPanics(t, func() { s.Broadcast("busy") })
}

func TestShutdown_NoopBeforeStart(t *testing.T) {
	s, _ := newTestServer()
	assert.NoError(t, s.Shutdown(context.Background()))
}
