// Package mockupstream provides a fake OpenAI-compatible upstream for tests.
package mockupstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// ChatPath is the path suffix of the chat completions endpoint. It matches
// both the standard layout and the Azure deployments layout.
const ChatPath = "/chat/completions"

// Server is a mock upstream HTTP server.
// It simulates chat completion responses including errors and streaming.
type Server struct {
	server    *httptest.Server
	responses map[string]Response
	requests  []Request
	mu        sync.Mutex
}

// Response defines a mock response configuration.
type Response struct {
	StatusCode int
	Body       interface{}
	Delay      time.Duration
	Headers    map[string]string

	// StreamChunks are written as SSE data events followed by [DONE].
	StreamChunks []string

	// ChunkDelay is slept between stream chunks.
	ChunkDelay time.Duration

	// Gate, when set, blocks the response until it is closed or the client
	// goes away.
	Gate <-chan struct{}

	// OmitDone leaves out the final [DONE] event.
	OmitDone bool
}

// Request is a recorded inbound request.
type Request struct {
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// New starts a mock upstream.
func New() *Server {
	s := &Server{
		responses: make(map[string]Response),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

// URL returns a base URL suitable for an upstream connection.
func (s *Server) URL() string {
	return s.server.URL + "/v1"
}

// Close shuts the server down.
func (s *Server) Close() {
	s.server.Close()
}

// SetResponse sets the response for requests whose path ends in suffix.
func (s *Server) SetResponse(suffix string, response Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.responses[suffix] = response
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request and whether there was one.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	response, ok := s.match(r.URL.Path)
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.Gate != nil {
		select {
		case <-response.Gate:
		case <-r.Context().Done():
			return
		}
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	if len(response.StreamChunks) > 0 {
		s.handleStream(w, r, response)
		return
	}

	if response.StatusCode == 0 {
		response.StatusCode = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(response.StatusCode)

	switch v := response.Body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(v))
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

// match must be called with s.mu held.
func (s *Server) match(path string) (Response, bool) {
	for suffix, response := range s.responses {
		if strings.HasSuffix(path, suffix) {
			return response, true
		}
	}
	return Response{}, false
}

// handleStream writes Server-Sent Events.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, response Response) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	for _, chunk := range response.StreamChunks {
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		flusher.Flush()
		if response.ChunkDelay > 0 {
			select {
			case <-time.After(response.ChunkDelay):
			case <-r.Context().Done():
				return
			}
		}
	}

	if !response.OmitDone {
		fmt.Fprintf(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}
