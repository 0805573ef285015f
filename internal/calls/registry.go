package calls

import (
	"sync"
	"time"
)

// TranscriptMessage is one speech fragment observed during a call.
type TranscriptMessage struct {
	CallID    string  `json:"call_id"`
	Text      string  `json:"text"`
	IsFinal   bool    `json:"is_final"`
	Timestamp float64 `json:"timestamp"`
}

// CallInfo describes a call and its accumulated history.
type CallInfo struct {
	CallID     string              `json:"call_id"`
	Status     string              `json:"status"`
	Transcript []TranscriptMessage `json:"transcript_history"`
}

// Registry tracks active calls and their transcript history in memory.
// History survives call end so clients can fetch it afterwards; nothing here
// is persisted across process restarts.
type Registry struct {
	mu         sync.RWMutex
	active     map[string]struct{}
	transcript map[string][]TranscriptMessage
	now        func() time.Time
}

// NewRegistry creates an empty call registry.
func NewRegistry() *Registry {
	return &Registry{
		active:     make(map[string]struct{}),
		transcript: make(map[string][]TranscriptMessage),
		now:        time.Now,
	}
}

// Register marks a call active and initializes its history.
func (r *Registry) Register(callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[callID] = struct{}{}
	if _, ok := r.transcript[callID]; !ok {
		r.transcript[callID] = nil
	}
}

// Unregister marks a call ended. Transcript history is kept for later
// retrieval.
func (r *Registry) Unregister(callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, callID)
}

// IsActive reports whether the call is currently registered.
func (r *Registry) IsActive(callID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.active[callID]
	return ok
}

// AppendTranscript records a speech fragment and returns the stored message.
func (r *Registry) AppendTranscript(callID, text string, isFinal bool) TranscriptMessage {
	msg := TranscriptMessage{
		CallID:    callID,
		Text:      text,
		IsFinal:   isFinal,
		Timestamp: float64(r.now().UnixNano()) / float64(time.Second),
	}
	r.mu.Lock()
	r.transcript[callID] = append(r.transcript[callID], msg)
	r.mu.Unlock()
	return msg
}

// Info returns the call's status and history, or false if it was never seen.
func (r *Registry) Info(callID string) (CallInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history, ok := r.transcript[callID]
	if !ok {
		return CallInfo{}, false
	}
	status := "ended"
	if _, active := r.active[callID]; active {
		status = "active"
	}
	out := make([]TranscriptMessage, len(history))
	copy(out, history)
	return CallInfo{CallID: callID, Status: status, Transcript: out}, true
}

// ActiveCalls lists currently active call IDs.
func (r *Registry) ActiveCalls() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	return ids
}

// AllCalls lists every call ID ever seen, active or ended.
func (r *Registry) AllCalls() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.transcript))
	for id := range r.transcript {
		ids = append(ids, id)
	}
	return ids
}
