package api

import (
	"net/http"
	"strconv"

	"github.com/capsim/capsim/internal/api/presenter"
	"github.com/capsim/capsim/internal/audit"
	"github.com/capsim/capsim/internal/buildinfo"
	"github.com/capsim/capsim/internal/core"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	// only the in-memory auditor supports querying; file auditors are
	// append-only
	mem, ok := s.auditor.(*audit.InMemoryAuditor)
	if !ok {
		presenter.Error(w, r, "audit querying is not supported by the configured auditor", http.StatusNotImplemented)
		return
	}

	limit := 25
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	filterRunID := r.URL.Query().Get("run_id")
	filterAction := r.URL.Query().Get("action")

	var entries []core.AuditEntry
	var err error
	if filterRunID != "" || filterAction != "" {
		entries, err = mem.Find(func(entry core.AuditEntry) bool {
			if filterRunID != "" && entry.ID != filterRunID {
				return false
			}
			if filterAction != "" && entry.Action != filterAction {
				return false
			}
			return true
		}, limit)
	} else {
		entries, err = mem.GetRecent(limit)
	}
	if err != nil {
		presenter.Err(w, r, err, "failed to list runs")
		return
	}
	presenter.JSON(w, r, entries, http.StatusOK)
}
