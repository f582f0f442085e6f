package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/magiccart-api/internal/cache"
)

// VendorSelections counts selections that went to one vendor.
type VendorSelections struct {
	VendorID   uuid.UUID `json:"vendorId"`
	Selections int64     `json:"selections"`
}

// SelectionSummary aggregates recorded selections over a time window.
type SelectionSummary struct {
	From               time.Time          `json:"from"`
	To                 time.Time          `json:"to"`
	TotalSelections    int64              `json:"totalSelections"`
	ValidSelections    int64              `json:"validSelections"`
	InvalidSelections  int64              `json:"invalidSelections"`
	AverageFinalTotal  decimal.Decimal    `json:"averageFinalTotal"`
	AverageDiscountPct decimal.Decimal    `json:"averageDiscountPercent"`
	TopVendors         []VendorSelections `json:"topVendors"`
}

// Querier defines the database access required for analytics reads.
type Querier interface {
	SelectionSummary(ctx context.Context, from, to time.Time, topVendors int) (SelectionSummary, error)
}

// Service provides cached access to selection analytics.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	TopVendors   int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Summary returns selection statistics for [from, to).
func (s *Service) Summary(ctx context.Context, from, to time.Time) (SelectionSummary, error) {
	if s == nil || s.Q == nil {
		return SelectionSummary{}, fmt.Errorf("analytics service not configured")
	}
	top := s.TopVendors
	if top <= 0 {
		top = 5
	}
	key := cache.KeySelectionSummary(from, to, top)
	if cached, ok := s.load(ctx, key); ok {
		return cached, nil
	}
	summary, err := s.Q.SelectionSummary(ctx, from, to, top)
	if err != nil {
		return SelectionSummary{}, err
	}
	summary.From, summary.To = from, to
	if summary.TopVendors == nil {
		summary.TopVendors = []VendorSelections{}
	}
	s.store(ctx, key, summary)
	return summary, nil
}

func (s *Service) load(ctx context.Context, key string) (SelectionSummary, bool) {
	if s.R == nil || s.TTL <= 0 {
		return SelectionSummary{}, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return SelectionSummary{}, false
	}
	var summary SelectionSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return SelectionSummary{}, false
	}
	return summary, true
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
