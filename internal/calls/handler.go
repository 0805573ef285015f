package calls

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/voiceclinic/callpilot/pkg/logging"
)

// Handler serves live-call events and websocket transcript streaming.
type Handler struct {
	registry *Registry
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[string]map[*websocket.Conn]struct{} // callID -> conns
}

// NewHandler creates a calls handler.
func NewHandler(registry *Registry, logger *logging.Logger) *Handler {
	if registry == nil {
		panic("calls: registry required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subscribers: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// callEvent is the lifecycle/transcription payload the voice platform posts
// while a call is in flight (distinct from the end-of-call report).
type callEvent struct {
	Event      string `json:"event"`
	CallID     string `json:"callId"`
	Transcript struct {
		Text    string `json:"text"`
		IsFinal bool   `json:"is_final"`
	} `json:"transcript"`
}

// HandleEvent processes call lifecycle webhooks: call.started registers the
// call, transcription fragments are recorded and broadcast, call.ended
// unregisters. Unknown events are acknowledged and ignored.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var event callEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeStatus(w, http.StatusBadRequest, "error", "invalid payload")
		return
	}
	if event.CallID == "" {
		writeStatus(w, http.StatusBadRequest, "error", "Missing call ID")
		return
	}

	switch event.Event {
	case "call.started", "call.created":
		h.registry.Register(event.CallID)
		h.logger.Info("call started", "call_id", event.CallID)
		writeStatus(w, http.StatusOK, "success", "")
	case "transcription":
		if event.Transcript.Text != "" {
			msg := h.registry.AppendTranscript(event.CallID, event.Transcript.Text, event.Transcript.IsFinal)
			h.broadcast(event.CallID, msg)
		}
		writeStatus(w, http.StatusOK, "success", "")
	case "call.ended":
		h.registry.Unregister(event.CallID)
		h.closeSubscribers(event.CallID)
		h.logger.Info("call ended", "call_id", event.CallID)
		writeStatus(w, http.StatusOK, "success", "")
	default:
		writeStatus(w, http.StatusOK, "received", "")
	}
}

// ListCalls returns active and all-known call IDs.
func (h *Handler) ListCalls(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"active_calls": h.registry.ActiveCalls(),
		"all_calls":    h.registry.AllCalls(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// GetCall returns one call's status and transcript history.
func (h *Handler) GetCall(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	info, ok := h.registry.Info(callID)
	if !ok {
		writeStatus(w, http.StatusNotFound, "error", "call not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}

// StreamTranscript upgrades to a websocket and pushes transcript fragments
// for one call as they arrive. Existing history is replayed first.
func (h *Handler) StreamTranscript(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "call_id", callID, "error", err)
		return
	}

	if info, ok := h.registry.Info(callID); ok {
		for _, msg := range info.Transcript {
			if err := conn.WriteJSON(msg); err != nil {
				_ = conn.Close()
				return
			}
		}
	}

	h.mu.Lock()
	if h.subscribers[callID] == nil {
		h.subscribers[callID] = make(map[*websocket.Conn]struct{})
	}
	h.subscribers[callID][conn] = struct{}{}
	h.mu.Unlock()

	// Drain reads until the peer goes away, then drop the subscription.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.mu.Lock()
		delete(h.subscribers[callID], conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()
}

func (h *Handler) broadcast(callID string, msg TranscriptMessage) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.subscribers[callID]))
	for conn := range h.subscribers[callID] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Error("transcript broadcast failed", "call_id", callID, "error", err)
			h.mu.Lock()
			delete(h.subscribers[callID], conn)
			h.mu.Unlock()
			_ = conn.Close()
		}
	}
}

func (h *Handler) closeSubscribers(callID string) {
	h.mu.Lock()
	conns := h.subscribers[callID]
	delete(h.subscribers, callID)
	h.mu.Unlock()
	for conn := range conns {
		_ = conn.Close()
	}
}

func writeStatus(w http.ResponseWriter, code int, status, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	body := map[string]string{"status": status}
	if message != "" {
		body["message"] = message
	}
	_ = json.NewEncoder(w).Encode(body)
}
