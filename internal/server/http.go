package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/muurk/blescan/internal/logging"
	"github.com/muurk/blescan/internal/pipeline"
	"go.uber.org/zap"
)

// StatusJSON is the wire form of pipeline.Status
type StatusJSON struct {
	Phase      string `json:"phase"`
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message"`
	Records    int    `json:"records"`
	Generation uint64 `json:"generation"`
}

// RecordJSON is the wire form of pipeline.Record
type RecordJSON struct {
	Identity    string    `json:"identity"`
	Label       string    `json:"label"`
	Address     string    `json:"address,omitempty"`
	RSSI        int       `json:"rssi"`
	Source      string    `json:"source,omitempty"`
	Highlighted bool      `json:"highlighted"`
	FirstSeen   time.Time `json:"first_seen"`
}

// StatusResponse is the body of GET /api/status and of the scan control
// endpoints.
type StatusResponse struct {
	Status  StatusJSON   `json:"status"`
	Records []RecordJSON `json:"records"`
}

func newStatusJSON(st pipeline.Status) StatusJSON {
	return StatusJSON{
		Phase:      st.Phase.String(),
		Reason:     st.ReasonText(),
		Message:    st.Message,
		Records:    st.Records,
		Generation: st.Generation,
	}
}

func newRecordJSON(r pipeline.Record) RecordJSON {
	return RecordJSON{
		Identity:    r.Identity,
		Label:       r.Label,
		Address:     r.Address,
		RSSI:        r.RSSI,
		Source:      r.Source,
		Highlighted: r.Highlighted,
		FirstSeen:   r.FirstSeen,
	}
}

func (s *Server) snapshot() StatusResponse {
	records := s.ctrl.Records()
	resp := StatusResponse{
		Status:  newStatusJSON(s.ctrl.Status()),
		Records: make([]RecordJSON, 0, len(records)),
	}
	for _, r := range records {
		resp.Records = append(resp.Records, newRecordJSON(r))
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

// handleStart begins a fresh scan. The response reflects the state right
// after the request was accepted; progress is reported over /ws.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Start()
	writeJSON(w, http.StatusAccepted, s.snapshot())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Stop()
	writeJSON(w, http.StatusOK, s.snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to write response", zap.Error(err))
	}
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status)
	})
}
