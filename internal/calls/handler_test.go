package calls

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voiceclinic/callpilot/pkg/logging"
)

func newCallsHandler() *Handler {
	return NewHandler(NewRegistry(), logging.New("error"))
}

func postEvent(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/vapi/events", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleEvent(w, req)
	return w
}

func TestHandleEventLifecycle(t *testing.T) {
	h := newCallsHandler()

	w := postEvent(h, `{"event": "call.started", "callId": "call_1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, h.registry.IsActive("call_1"))

	w = postEvent(h, `{"event": "transcription", "callId": "call_1", "transcript": {"text": "book me in", "is_final": true}}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = postEvent(h, `{"event": "call.ended", "callId": "call_1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, h.registry.IsActive("call_1"))

	info, ok := h.registry.Info("call_1")
	require.True(t, ok)
	require.Len(t, info.Transcript, 1)
	assert.Equal(t, "book me in", info.Transcript[0].Text)
}

func TestHandleEventMissingCallID(t *testing.T) {
	h := newCallsHandler()
	w := postEvent(h, `{"event": "call.started"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEventUnknownEventAcknowledged(t *testing.T) {
	h := newCallsHandler()
	w := postEvent(h, `{"event": "speech-update", "callId": "call_9"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "received", resp["status"])
}

func TestGetCall(t *testing.T) {
	h := newCallsHandler()
	h.registry.Register("call_1")
	h.registry.AppendTranscript("call_1", "hello", true)

	r := chi.NewRouter()
	r.Get("/calls/{callID}", h.GetCall)

	req := httptest.NewRequest(http.MethodGet, "/calls/call_1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var info CallInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "active", info.Status)
	require.Len(t, info.Transcript, 1)

	req = httptest.NewRequest(http.MethodGet, "/calls/missing", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListCalls(t *testing.T) {
	h := newCallsHandler()
	h.registry.Register("call_a")
	h.registry.Register("call_b")
	h.registry.Unregister("call_b")

	req := httptest.NewRequest(http.MethodGet, "/calls", nil)
	w := httptest.NewRecorder()
	h.ListCalls(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Active []string `json:"active_calls"`
		All    []string `json:"all_calls"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"call_a"}, resp.Active)
	assert.Len(t, resp.All, 2)
}
