package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jpalmerr/opsboard/record"
)

// monitorResponse is the body of the monitor endpoints.
type monitorResponse struct {
	Snapshot record.MonitorSnapshot `json:"snapshot"`
	// Overall is omitted while no sweep has completed.
	Overall *record.Overall `json:"overall,omitempty"`
	// Pending is true when Snapshot holds placeholder "checking" rows.
	Pending bool `json:"pending"`
}

// backupRequest is the body of POST /api/backups.
type backupRequest struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	Status     string `json:"status"`
	LogSummary string `json:"logSummary"`
}

// backupStats is the body of GET /api/backups/stats.
type backupStats struct {
	Total  int                         `json:"total"`
	Counts map[record.BackupStatus]int `json:"counts"`
}

func (s *Server) handleLastSpeedTest(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.backend.LastSpeedTest()
	if !ok {
		s.writeError(w, http.StatusNotFound, "no speed test recorded")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.Backups())
}

func (s *Server) handleLatestBackup(w http.ResponseWriter, r *http.Request) {
	b, ok := s.backend.LatestBackup()
	if !ok {
		s.writeError(w, http.StatusNotFound, "no backups recorded")
		return
	}
	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleBackupStats(w http.ResponseWriter, r *http.Request) {
	list := s.backend.Backups()
	s.writeJSON(w, http.StatusOK, backupStats{
		Total:  len(list),
		Counts: record.CountByStatus(list),
	})
}

func (s *Server) handleAddBackup(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	status, err := record.ParseBackupStatus(req.Status)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := s.backend.AddBackup(req.Date, req.Time, status, req.LogSummary)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("timestamp")
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "timestamp must be RFC 3339, got "+raw)
		return
	}

	removed := s.backend.DeleteBackup(ts)
	if removed == 0 {
		s.writeError(w, http.StatusNotFound, "no backup with timestamp "+raw)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.backend.LatestMonitoring()
	if !ok {
		now := s.backend.Now()
		s.writeJSON(w, http.StatusOK, monitorResponse{
			Snapshot: record.MonitorSnapshot{
				Timestamp: now,
				Results:   record.PendingStatuses(s.backend.Targets(), now),
			},
			Pending: true,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, newMonitorResponse(snap))
}

func (s *Server) handleMonitorHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.MonitoringHistory())
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	snap := s.backend.Sweep(r.Context())
	s.writeJSON(w, http.StatusOK, newMonitorResponse(snap))
}

func newMonitorResponse(snap record.MonitorSnapshot) monitorResponse {
	overall := record.Summarize(snap)
	return monitorResponse{Snapshot: snap, Overall: &overall}
}
