// Package apitest provides an in-process fake of the Butterfliy API with
// scripted failures for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"butterfliy/pkg/models"
)

// Failure is one scripted response. Status 0 drops the connection without
// a response.
type Failure struct {
	Status int
	Body   map[string]interface{}
}

// Server simulates the location endpoints
type Server struct {
	server       *httptest.Server
	requestCount int32

	mu        sync.RWMutex
	locations map[string]models.Location
	failures  map[string][]Failure // keyed by request path, consumed in order
	delays    map[string]time.Duration
	token     string
	seenAuth  []string
}

// NewServer starts a fake API seeded with locations
func NewServer(locations ...models.Location) *Server {
	s := &Server{
		locations: make(map[string]models.Location),
		failures:  make(map[string][]Failure),
		delays:    make(map[string]time.Duration),
	}
	for _, loc := range locations {
		s.locations[loc.ID] = loc
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/locations/search", s.handleSearch)
	mux.HandleFunc("/api/locations/", s.handleLocation)
	mux.HandleFunc("/api/locations", s.handleList)

	s.server = httptest.NewServer(s.middleware(mux))
	return s
}

// URL returns the base URL to configure the client with (without /api)
func (s *Server) URL() string {
	return s.server.URL
}

func (s *Server) Close() {
	s.server.Close()
}

// RequestCount returns the number of requests received
func (s *Server) RequestCount() int {
	return int(atomic.LoadInt32(&s.requestCount))
}

// RequireToken makes every request without "Bearer token" fail with 401
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// FailNext queues failures for path; they are served before any success
func (s *Server) FailNext(path string, failures ...Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = append(s.failures[path], failures...)
}

// SetDelay delays every response for path
func (s *Server) SetDelay(path string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[path] = delay
}

// AuthHeaders returns the Authorization headers seen so far
func (s *Server) AuthHeaders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.seenAuth...)
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.requestCount, 1)

		s.mu.Lock()
		s.seenAuth = append(s.seenAuth, r.Header.Get("Authorization"))
		delay := s.delays[r.URL.Path]
		token := s.token
		var failure *Failure
		if queue := s.failures[r.URL.Path]; len(queue) > 0 {
			failure = &queue[0]
			s.failures[r.URL.Path] = queue[1:]
		}
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if failure != nil {
			if failure.Status == 0 {
				dropConnection(w)
				return
			}
			writeJSON(w, failure.Status, failure.Body)
			return
		}

		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false,
				"message": "Unauthorized",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	state := r.URL.Query().Get("state")

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Location{}
	for _, loc := range s.locations {
		if country != "" && !strings.EqualFold(loc.Country, country) {
			continue
		}
		if state != "" && !strings.EqualFold(loc.State, state) {
			continue
		}
		out = append(out, loc)
	}
	writeJSON(w, http.StatusOK, models.Envelope[[]models.Location]{Success: true, Data: out})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Location{}
	for _, loc := range s.locations {
		text := strings.ToLower(strings.Join([]string{loc.Country, loc.State, loc.Area, loc.Description}, " "))
		if q != "" && strings.Contains(text, q) {
			out = append(out, loc)
		}
	}
	writeJSON(w, http.StatusOK, models.Envelope[[]models.Location]{Success: true, Data: out})
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/locations/")

	s.mu.RLock()
	loc, ok := s.locations[id]
	s.mu.RUnlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Location not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, models.Envelope[models.Location]{Success: true, Data: loc})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// dropConnection closes the connection without writing a response
func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("apitest: response writer does not support hijacking")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	_ = conn.Close()
}
