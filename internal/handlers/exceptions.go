package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/store"
)

// ExceptionHandler serves the exception queue to follow-up tooling.
type ExceptionHandler struct {
	st  store.Store
	log *zap.Logger
}

// NewExceptionHandler creates the exception queue handler.
func NewExceptionHandler(st store.Store, log *zap.Logger) *ExceptionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExceptionHandler{st: st, log: log}
}

// GET /api/exceptions?status=pending&priority=high&limit=100
func (h *ExceptionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	q := r.URL.Query()
	status := q.Get("status")
	if status == "" {
		status = models.ExceptionStatusPending
	}

	where := "status = ?"
	params := []any{status}
	if priority := q.Get("priority"); priority != "" {
		where += " AND priority = ?"
		params = append(params, priority)
	}

	limit := 100
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	rows, err := h.st.Find(r.Context(), store.TableExceptionQueue,
		where, params, "exception_date", true, 0, limit)
	if err != nil {
		h.log.Error("exception listing failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(rows)
}
