package pricing

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/magiccart-api/internal/common"
	"github.com/noah-isme/magiccart-api/internal/money"
)

// Handler exposes the bidding-rules endpoint.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// BiddingRules handles GET /api/v1/bidding-rules.
func (h *Handler) BiddingRules(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing service not configured", nil)
		return
	}
	req, err := ParseRequest(r.URL.Query())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	resp, err := h.service.GetBiddingRules(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteData(w, resp)
}

// ParseRequest reads bidding-rules query parameters. bundleProductIds accepts a
// comma separated list, repeated parameters, or both.
func ParseRequest(q url.Values) (Request, error) {
	rawID := strings.TrimSpace(q.Get("productId"))
	if rawID == "" {
		return Request{}, common.BadRequest("productId", "productId is required", nil)
	}
	productID, err := uuid.Parse(rawID)
	if err != nil {
		return Request{}, common.BadRequest("productId", "productId must be a valid UUID", err)
	}
	req := Request{ProductID: productID, Location: strings.TrimSpace(q.Get("userLocation"))}

	if raw := strings.TrimSpace(q.Get("requestedDiscountPercent")); raw != "" {
		pct, err := money.Parse(raw)
		if err != nil {
			return Request{}, common.BadRequest("requestedDiscountPercent", "requestedDiscountPercent must be a number", err)
		}
		if pct.IsNegative() || pct.GreaterThan(money.Hundred) {
			return Request{}, common.BadRequest("requestedDiscountPercent", "requestedDiscountPercent must be between 0 and 100", nil)
		}
		req.RequestedDiscountPercent = money.Ptr(pct)
	}

	for _, value := range q["bundleProductIds"] {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return Request{}, common.BadRequest("bundleProductIds", "bundleProductIds must contain valid UUIDs", err)
			}
			req.BundleProductIDs = append(req.BundleProductIDs, id)
		}
	}
	return req, nil
}
