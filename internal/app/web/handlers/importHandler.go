package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"luxemarket_api/internal/core/storage"
	"luxemarket_api/internal/importer"
	"luxemarket_api/pkg/logger"
)

// ImportHandler is the admin surface over the bulk import engine: start a
// job, poll it, list jobs, request cancellation.
type ImportHandler struct {
	scheduler *importer.Scheduler
	jobs      storage.JobStore
	log       logger.Logger
}

func NewImportHandler(scheduler *importer.Scheduler, jobs storage.JobStore, log logger.Logger) *ImportHandler {
	return &ImportHandler{
		scheduler: scheduler,
		jobs:      jobs,
		log:       log.WithPrefix("[ImportHandler]"),
	}
}

// StartImportHandler handles POST /api/admin/import-fast. The job id comes
// back immediately; ingestion happens in a detached worker.
func (h *ImportHandler) StartImportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req importer.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobID, err := h.scheduler.StartImport(r.Context(), req)
	if err != nil {
		var vErr *importer.ValidationError
		if errors.As(err, &vErr) {
			respondError(w, http.StatusBadRequest, vErr.Message)
			return
		}
		h.log.Log("Failed to start import: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to start import")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"task_id": jobID,
		"status":  "pending",
	})
}

// JobsHandler handles GET /api/admin/import-jobs, newest first.
func (h *ImportHandler) JobsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jobs, err := h.jobs.List(r.Context())
	if err != nil {
		h.log.Log("Failed to list jobs: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list import jobs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// JobHandler handles GET and DELETE on /api/admin/import-jobs/{id}.
// DELETE requests cancellation; the worker observes the flag at its next
// rate-gate acquisition and drains before going terminal.
func (h *ImportHandler) JobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/admin/import-jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		respondError(w, http.StatusNotFound, "import job not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, err := h.jobs.Get(r.Context(), jobID)
		if errors.Is(err, storage.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "import job not found")
			return
		}
		if err != nil {
			h.log.Log("Failed to load job %s: %v", jobID, err)
			respondError(w, http.StatusInternalServerError, "failed to load import job")
			return
		}
		respondJSON(w, http.StatusOK, job)

	case http.MethodDelete:
		err := h.jobs.RequestCancel(r.Context(), jobID)
		if errors.Is(err, storage.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "import job not found")
			return
		}
		if errors.Is(err, storage.ErrIllegalTransition) {
			respondError(w, http.StatusConflict, "import job already finished")
			return
		}
		if err != nil {
			h.log.Log("Failed to cancel job %s: %v", jobID, err)
			respondError(w, http.StatusInternalServerError, "failed to cancel import job")
			return
		}
		respondJSON(w, http.StatusAccepted, map[string]string{
			"job_id": jobID,
			"status": "cancelling",
		})

	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
