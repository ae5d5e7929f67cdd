package api

import (
	"encoding/json"
	"net/http"
)

// handleExtractionStats reports recent durations of every analysis stage,
// keyed by stage name, plus the combined highlighting time.
func (s *Server) handleExtractionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"backend":     s.cfg.ExtractBackend,
		"queue_depth": s.orchestrator.QueueDepth(),
		"stages":      s.orchestrator.Timings().Snapshot(),
	})
}
