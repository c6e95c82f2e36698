package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/spaolacci/murmur3"
)

const errAggregateMessage = "Failed to fetch events data"

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEventFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.svc.Aggregate(r.Context())
	if err != nil {
		s.logger.Error("aggregate events", "error", err)
		writeError(w, http.StatusInternalServerError, errAggregateMessage)
		return
	}

	events, err := filter.apply(snap.Events)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := json.Marshal(events)
	if err != nil {
		s.logger.Error("encode events", "error", err)
		writeError(w, http.StatusInternalServerError, errAggregateMessage)
		return
	}

	etag := fmt.Sprintf(`"%016x"`, murmur3.Sum64(body))
	w.Header().Set("X-Snapshot-ID", snap.ID)
	w.Header().Set("ETag", etag)
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeRaw(w, http.StatusOK, body)
}

type statsResponse struct {
	SnapshotID  string                `json:"snapshot_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	Total       int                   `json:"total"`
	Merged      int                   `json:"merged"`
	BySource    map[string]int        `json:"by_source"`
	ByCategory  map[string]int        `json:"by_category"`
	BySeverity  map[string]int        `json:"by_severity"`
	ByType      map[string]int        `json:"by_type"`
	Sources     []domain.SourceReport `json:"sources"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Aggregate(r.Context())
	if err != nil {
		s.logger.Error("aggregate stats", "error", err)
		writeError(w, http.StatusInternalServerError, errAggregateMessage)
		return
	}
	writeJSON(w, http.StatusOK, buildStats(snap))
}

func buildStats(snap domain.Snapshot) statsResponse {
	resp := statsResponse{
		SnapshotID:  snap.ID,
		GeneratedAt: snap.GeneratedAt,
		Total:       len(snap.Events),
		Merged:      snap.Merged,
		BySource:    map[string]int{},
		ByCategory:  map[string]int{},
		BySeverity:  map[string]int{},
		ByType:      map[string]int{},
		Sources:     snap.Sources,
	}
	for _, ev := range snap.Events {
		resp.BySource[ev.Source]++
		resp.ByCategory[string(ev.Category)]++
		resp.BySeverity[string(ev.Severity)]++
		resp.ByType[string(ev.Type)]++
	}
	return resp
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sources": s.svc.SourceNames()})
}

func (s *Server) handleSourceEvents(w http.ResponseWriter, r *http.Request) {
	name, ok := s.lookupSource(chi.URLParam(r, "name"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown source %q", chi.URLParam(r, "name")))
		return
	}

	events, err := s.svc.FetchSource(r.Context(), name)
	if err != nil {
		s.logger.Warn("fetch source", "source", name, "error", err)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("Failed to fetch %s data", name))
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// lookupSource resolves a path segment to the configured source name.
func (s *Server) lookupSource(name string) (string, bool) {
	for _, n := range s.svc.SourceNames() {
		if strings.EqualFold(n, name) {
			return n, true
		}
	}
	return "", false
}

func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		writeRaw(w, http.StatusInternalServerError, []byte(`{"error":"encode response"}`))
		return
	}
	writeRaw(w, status, buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body) //nolint:errcheck // client went away
}
