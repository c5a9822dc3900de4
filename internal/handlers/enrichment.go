package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/finlake/enrich/internal/enrich"
	apperrors "github.com/finlake/enrich/internal/errors"
)

// EnrichmentHandler exposes the batch trigger used by the host scheduler.
type EnrichmentHandler struct {
	controller *enrich.Controller
	log        *zap.Logger
}

// NewEnrichmentHandler creates the enrichment trigger handler.
func NewEnrichmentHandler(controller *enrich.Controller, log *zap.Logger) *EnrichmentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EnrichmentHandler{controller: controller, log: log}
}

type runRequest struct {
	StatementID string `json:"statement_id"`
	BatchID     string `json:"batch_id"`
	StopOnError bool   `json:"stop_on_error"`
	Workers     int    `json:"workers"`
}

// POST /api/enrichment/run
func (h *EnrichmentHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			verr := apperrors.Validation("body", "invalid JSON: "+err.Error())
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.Workers < 0 {
		verr := apperrors.Validation("workers", "must be non-negative")
		http.Error(w, verr.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.controller.Run(r.Context(), enrich.Config{
		BatchID:     req.BatchID,
		StatementID: req.StatementID,
		StopOnError: req.StopOnError,
		Workers:     req.Workers,
	})
	if err != nil {
		h.log.Error("enrichment run failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(report)
}
