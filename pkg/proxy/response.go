package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mercator-hq/relay/pkg/proxy/types"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("response writer does not support flushing")

// WriteJSONResponse writes a JSON response with the given status code.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes an OpenAI-compatible error response using the
// status the error carries.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.StatusCode(), errResp)
}

// SetSSEHeaders sets the appropriate headers for Server-Sent Events streaming.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// SSEWriter writes stream frames as Server-Sent Events, flushing after each
// event. Frames already carry the "data: " prefix; the writer terminates
// each one with a blank line.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// NewSSEWriter wraps w. It fails if w cannot flush.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// Start writes the SSE headers and a 200 status. It is called implicitly by
// the first WriteFrame.
func (s *SSEWriter) Start() {
	if s.started {
		return
	}
	s.started = true
	SetSSEHeaders(s.w)
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

// Started reports whether headers have been sent.
func (s *SSEWriter) Started() bool {
	return s.started
}

// WriteFrame writes one frame followed by a blank line and flushes.
func (s *SSEWriter) WriteFrame(frame string) error {
	s.Start()
	if _, err := io.WriteString(s.w, frame+"\n\n"); err != nil {
		return fmt.Errorf("failed to write SSE frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// WriteError writes a terminal error event. No [DONE] marker follows it.
func (s *SSEWriter) WriteError(errResp *types.ErrorResponse) error {
	data, err := json.Marshal(map[string]interface{}{
		"error": errResp.Error,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal SSE error: %w", err)
	}
	return s.WriteFrame("data: " + string(data))
}
