package repo

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/magiccart-api/internal/analytics"
)

// SelectionRepo persists selection events and serves analytics aggregates.
type SelectionRepo struct {
	DB DBTX
}

// NewSelectionRepo constructs a SelectionRepo.
func NewSelectionRepo(db DBTX) *SelectionRepo {
	return &SelectionRepo{DB: db}
}

// InsertSelection implements analytics.Store. Replayed events for the same
// session and vendor are ignored.
func (r *SelectionRepo) InsertSelection(ctx context.Context, evt analytics.SelectionEvent) error {
	if r == nil || r.DB == nil {
		return ErrStoreUnavailable
	}
	if evt.SessionID == "" {
		return errors.New("insert selection: session id is required")
	}
	recordedAt := evt.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	var location *string
	if evt.UserLocation != "" {
		location = &evt.UserLocation
	}
	_, err := r.DB.Exec(ctx, `INSERT INTO selection_sessions
(session_id, product_id, vendor_id, is_valid, final_total, baseline_price, discount_percent,
 applied_rule_ids, rounds_count, offers_considered, user_location, checkout_method, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::uuid[], $9, $10, $11, $12, $13)
ON CONFLICT (session_id, vendor_id) DO NOTHING`,
		evt.SessionID, evt.ProductID, evt.VendorID, evt.Valid, evt.FinalTotal, evt.BaselinePrice, evt.DiscountPercent,
		uuidStrings(evt.AppliedRuleIDs), evt.RoundsCount, evt.OffersConsidered, location, evt.CheckoutMethod, recordedAt)
	return err
}

// SelectionSummary implements analytics.Querier over the half-open window [from, to).
func (r *SelectionRepo) SelectionSummary(ctx context.Context, from, to time.Time, topVendors int) (analytics.SelectionSummary, error) {
	if r == nil || r.DB == nil {
		return analytics.SelectionSummary{}, ErrStoreUnavailable
	}
	summary := analytics.SelectionSummary{From: from, To: to, TopVendors: []analytics.VendorSelections{}}
	err := r.DB.QueryRow(ctx, `SELECT count(*),
  count(*) FILTER (WHERE is_valid),
  count(*) FILTER (WHERE NOT is_valid),
  COALESCE(round(avg(final_total), 2), 0),
  COALESCE(round(avg(discount_percent), 2), 0)
FROM selection_sessions
WHERE recorded_at >= $1 AND recorded_at < $2`, from, to).Scan(
		&summary.TotalSelections, &summary.ValidSelections, &summary.InvalidSelections,
		&summary.AverageFinalTotal, &summary.AverageDiscountPct)
	if err != nil {
		return analytics.SelectionSummary{}, err
	}
	if topVendors <= 0 || summary.TotalSelections == 0 {
		return summary, nil
	}
	rows, err := r.DB.Query(ctx, `SELECT vendor_id, count(*) AS selections
FROM selection_sessions
WHERE recorded_at >= $1 AND recorded_at < $2
GROUP BY vendor_id
ORDER BY selections DESC, vendor_id
LIMIT $3`, from, to, topVendors)
	if err != nil {
		return analytics.SelectionSummary{}, err
	}
	top, err := collect(rows, func(row scanner) (analytics.VendorSelections, error) {
		var v analytics.VendorSelections
		err := row.Scan(&v.VendorID, &v.Selections)
		return v, err
	})
	if err != nil {
		return analytics.SelectionSummary{}, err
	}
	summary.TopVendors = top
	return summary, nil
}
