package analytics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/magiccart-api/internal/common"
)

// Handler exposes analytics read endpoints.
type Handler struct {
	Svc *Service
}

// Selections handles GET /api/v1/analytics/selections. Either both from and to
// (RFC3339) are given, or the window is the last `days` days (default 30).
func (h *Handler) Selections(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return
	}
	query := r.URL.Query()
	fromStr := strings.TrimSpace(query.Get("from"))
	toStr := strings.TrimSpace(query.Get("to"))
	var (
		from time.Time
		to   time.Time
		err  error
	)
	switch {
	case fromStr != "" && toStr != "":
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			common.WriteError(w, common.BadRequest("from", "invalid from date", err))
			return
		}
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			common.WriteError(w, common.BadRequest("to", "invalid to date", err))
			return
		}
	case fromStr != "" || toStr != "":
		common.WriteError(w, common.BadRequest("from", "from and to must be given together", nil))
		return
	default:
		days := h.Svc.DefaultRange
		if days <= 0 {
			days = 30
		}
		if raw := strings.TrimSpace(query.Get("days")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				common.WriteError(w, common.BadRequest("days", "days must be a positive integer", err))
				return
			}
			days = parsed
		}
		to = h.Svc.now().UTC().Truncate(time.Minute)
		from = to.AddDate(0, 0, -days)
	}
	if !from.Before(to) {
		common.WriteError(w, common.BadRequest("from", "from must be before to", nil))
		return
	}
	summary, err := h.Svc.Summary(r.Context(), from, to)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteData(w, summary)
}
