// Package api implements the HTTP control plane surface from spec.md §6:
// config posting, start/stop/status control commands, the metrics list,
// and the bounded error feed. No third-party router appears anywhere in
// the retrieved corpus (the teacher has no HTTP server at all), so this
// is built directly on net/http's ServeMux -- the one DESIGN.md
// stdlib-justification entry for this package.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/airbandcore/airbandcore/internal/config"
	"github.com/airbandcore/airbandcore/internal/metering"
	"github.com/airbandcore/airbandcore/internal/pipeline"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// MetricsRecord is the per-channel record shape spec.md §6 names for the
// Metrics (produced) interface.
type MetricsRecord struct {
	Channel       int     `json:"channel"`
	Label         string  `json:"label"`
	FrequencyMHz  float64 `json:"frequency"`
	SignalLevelDB float64 `json:"signal_level"`
	NoiseLevelDB  float64 `json:"noise_level"`
	SquelchLevel  float64 `json:"squelch_level"`
	SNRDB         float64 `json:"snr"`
	CTCSSCount    int     `json:"ctcss_count"`
	HasFileOutput bool    `json:"has_file_output"`
	IsRecording   bool    `json:"is_recording"`
	Status        string  `json:"status"`
}

// DeviceStatus is the per-device record spec.md §6's `status` control
// command returns: state plus whether capture is enabled.
type DeviceStatus struct {
	Device  int    `json:"device"`
	State   string `json:"state"`
	Enabled int    `json:"enabled"`
}

// Server exposes a Capture (and the config document it was last started
// or reconfigured with) over HTTP.
type Server struct {
	capture *pipeline.Capture
	log     *log.Logger

	mu  sync.Mutex
	cfg config.Config
}

// NewServer wraps capture, seeded with the config it was started with so
// /config GET can return the currently-running topology.
func NewServer(capture *pipeline.Capture, initial config.Config, logger *log.Logger) *Server {
	return &Server{capture: capture, log: logger, cfg: initial}
}

// Handler builds the request router. Mounted by cmd/airbandcore under
// whatever address --listen names.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/errors", s.handleErrorsGet)
	mux.HandleFunc("DELETE /api/errors", s.handleErrorsDelete)
	mux.HandleFunc("GET /api/config", s.handleConfigGet)
	mux.HandleFunc("POST /api/config", s.handleConfigPost)
	mux.HandleFunc("POST /api/control", s.handleControl)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	devices := s.cfg.Devices
	s.mu.Unlock()

	out := make([]DeviceStatus, 0, len(devices))
	for _, d := range devices {
		enabled := 0
		state := "stopped"
		if st, ok := s.capture.DeviceState(d.Index); ok {
			state = string(st)
			enabled = 1
		}
		out = append(out, DeviceStatus{Device: d.Index, State: state, Enabled: enabled})
	}
	writeJSON(w, out)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snaps := s.capture.Status()
	out := make([]MetricsRecord, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, toMetricsRecord(snap))
	}
	writeJSON(w, out)
}

func toMetricsRecord(snap metering.Snapshot) MetricsRecord {
	return MetricsRecord{
		Channel:       snap.ChannelIndex,
		Label:         snap.Label,
		FrequencyMHz:  snap.FrequencyMHz,
		SignalLevelDB: snap.SignalLevelDB,
		NoiseLevelDB:  snap.NoiseLevelDB,
		SquelchLevel:  snap.SquelchLevelDB,
		SNRDB:         snap.SNRDB,
		CTCSSCount:    snap.CTCSSCount,
		HasFileOutput: snap.HasFileOutput,
		IsRecording:   snap.IsRecording,
		Status:        string(snap.Status),
	}
}

func (s *Server) handleErrorsGet(w http.ResponseWriter, r *http.Request) {
	entries := s.capture.Errors()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Time.Format("2006-01-02T15:04:05Z07:00")+" ["+e.Component+"] "+e.Message)
	}
	writeJSON(w, out)
}

func (s *Server) handleErrorsDelete(w http.ResponseWriter, r *http.Request) {
	s.capture.ClearErrors()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.cfg)
}

// handleConfigPost accepts the full config document (YAML, matching the
// on-disk format) and diffs it against the running topology (spec.md §6:
// "the control plane edits and posts the full config atomically").
func (s *Server) handleConfigPost(w http.ResponseWriter, r *http.Request) {
	var newCfg config.Config
	dec := yaml.NewDecoder(r.Body)
	if err := dec.Decode(&newCfg); err != nil {
		http.Error(w, "invalid config: "+err.Error(), http.StatusBadRequest)
		return
	}

	problems, err := s.capture.Reconfigure(r.Context(), newCfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.cfg = newCfg
	s.mu.Unlock()

	resp := struct {
		Problems []string `json:"problems,omitempty"`
	}{}
	for _, p := range problems {
		resp.Problems = append(resp.Problems, p.Error())
	}
	writeJSON(w, resp)
}

type controlRequest struct {
	Command string `json:"command"`
}

// handleControl implements spec.md §6's "start, stop, status" control
// commands. status is also available as GET /api/status; posting it here
// is accepted as a no-op query for symmetry with start/stop.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid control request: "+err.Error(), http.StatusBadRequest)
		return
	}

	switch req.Command {
	case "stop":
		s.capture.Stop()
	case "start":
		s.mu.Lock()
		cfg := s.cfg
		s.mu.Unlock()
		if _, err := s.capture.Start(r.Context(), cfg); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	case "status":
		// handled identically to GET /api/status
	default:
		http.Error(w, "unknown command "+req.Command, http.StatusBadRequest)
		return
	}
	s.handleStatus(w, r)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
