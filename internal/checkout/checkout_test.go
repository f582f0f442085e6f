package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/magiccart-api/internal/analytics"
	"github.com/noah-isme/magiccart-api/internal/catalog"
	"github.com/noah-isme/magiccart-api/internal/common"
	"github.com/noah-isme/magiccart-api/internal/money"
)

var fixedNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeCatalog struct {
	products  map[uuid.UUID]catalog.Product
	vendors   map[uuid.UUID]catalog.Vendor
	offers    []catalog.Offer
	vendorErr error
	existsErr error
}

func (f *fakeCatalog) GetProduct(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) ProductExists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := f.products[id]
	return ok, nil
}

func (f *fakeCatalog) GetVendor(_ context.Context, id uuid.UUID) (catalog.Vendor, error) {
	if f.vendorErr != nil {
		return catalog.Vendor{}, f.vendorErr
	}
	v, ok := f.vendors[id]
	if !ok {
		return catalog.Vendor{}, catalog.ErrNotFound
	}
	return v, nil
}

func (f *fakeCatalog) GetVendorsByIDs(context.Context, []uuid.UUID) (map[uuid.UUID]catalog.Vendor, error) {
	return nil, nil
}

func (f *fakeCatalog) VendorExists(_ context.Context, id uuid.UUID) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.vendors[id]
	return ok, nil
}

func (f *fakeCatalog) ListVendors(context.Context, catalog.VendorStatus) ([]catalog.Vendor, error) {
	return nil, nil
}

func (f *fakeCatalog) GetEligibleOffers(context.Context, uuid.UUID, time.Time) ([]catalog.Offer, error) {
	return nil, nil
}

func (f *fakeCatalog) GetOffers(_ context.Context, vendorID, productID uuid.UUID) ([]catalog.Offer, error) {
	var out []catalog.Offer
	for _, o := range f.offers {
		if o.VendorID == vendorID && o.ProductID == productID {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeRecorder struct {
	events []analytics.SelectionEvent
	err    error
}

func (f *fakeRecorder) RecordSelection(_ context.Context, evt analytics.SelectionEvent) error {
	f.events = append(f.events, evt)
	return f.err
}

type fixture struct {
	store     *fakeCatalog
	recorder  *fakeRecorder
	validator *Validator
	productID uuid.UUID
	vendorID  uuid.UUID
}

func newFixture(t *testing.T, level catalog.IntegrationLevel) fixture {
	t.Helper()
	productID, vendorID := uuid.New(), uuid.New()
	tmpl := "https://alpha.example/item/{productId}"
	contact := "help@alpha.example"
	store := &fakeCatalog{
		products: map[uuid.UUID]catalog.Product{
			productID: {ID: productID, Name: "Studio Monitor", Category: "audio", MSRP: money.MustParse("100.00")},
		},
		vendors: map[uuid.UUID]catalog.Vendor{
			vendorID: {ID: vendorID, Name: "Alpha Audio", IntegrationLevel: level, ProductURLTemplate: &tmpl, SupportContact: &contact},
		},
	}
	recorder := &fakeRecorder{}
	v, err := NewValidator(ValidatorConfig{
		Products: store,
		Vendors:  store,
		Offers:   store,
		Recorder: recorder,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return fixture{store: store, recorder: recorder, validator: v, productID: productID, vendorID: vendorID}
}

func (f fixture) offer(base string, active bool) catalog.Offer {
	return catalog.Offer{
		ID:        uuid.New(),
		VendorID:  f.vendorID,
		ProductID: f.productID,
		BasePrice: money.MustParse(base),
		ValidFrom: fixedNow.Add(-time.Hour),
		Active:    active,
	}
}

func (f fixture) request(total string) SelectionRequest {
	return SelectionRequest{
		SessionID:        "sess-9",
		ProductID:        f.productID,
		SelectedVendorID: f.vendorID,
		FinalOffer: &OfferDetails{
			TotalCost:       decimal.NewNullDecimal(money.MustParse(total)),
			BasePrice:       money.MustParse("80.00"),
			ShippingCost:    money.MustParse("5.00"),
			TaxAmount:       money.MustParse("5.60"),
			DiscountPercent: money.MustParse("9.40"),
			DeliveryDays:    3,
		},
		BiddingRounds: []RoundSummary{{RoundNumber: 1, OffersConsidered: 3}, {RoundNumber: 2, OffersConsidered: 2}},
	}
}

func TestAssistedInstructions(t *testing.T) {
	productID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	contact := "support@beta.example"
	vendor := catalog.Vendor{Name: "Beta Sound", SupportContact: &contact}
	product := catalog.Product{ID: productID, Name: "Turntable"}

	got := Assisted(vendor, product, OfferDetails{TotalCost: decimal.NewNullDecimal(money.MustParse("90.6"))})
	require.Equal(t, catalog.IntegrationAssisted, got.Method)
	require.Equal(t, GuaranteeManualVerification, got.PriceGuarantee)
	require.Equal(t, "You negotiated a price of $90.60 for 'Turntable' with Beta Sound.", got.DisplayMessage)
	require.Equal(t, "https://defaultsearch.com?query=Beta+Sound+11111111-1111-1111-1111-111111111111", got.PrimaryRedirectURL)
	require.Len(t, got.Steps, 4)
	require.Equal(t, "You will be redirected to Beta Sound.", got.Steps[0].Description)
	require.Equal(t, "Add 'Turntable' to your cart.", got.Steps[1].Description)
	require.Equal(t, "IMPORTANT: Verify the price in your cart matches $90.60 before payment.", got.Steps[2].Description)
	require.Equal(t, "If the price does not match, please contact Beta Sound support (support@beta.example) or look for alternative offers.", got.Steps[3].Description)
	for i, step := range got.Steps {
		require.Equal(t, i+1, step.Step)
	}

	vendor.SupportContact = nil
	got = Assisted(vendor, product, OfferDetails{TotalCost: decimal.NewNullDecimal(money.MustParse("10"))})
	require.Equal(t, "If the price does not match, please contact Beta Sound support or look for alternative offers.", got.Steps[3].Description)
	require.Nil(t, got.SupportContact)
}

func TestGeneratorFallsBackToAssisted(t *testing.T) {
	gen := NewGenerator(zeroLogger())
	product := catalog.Product{ID: uuid.New(), Name: "Amp"}
	for _, level := range []catalog.IntegrationLevel{
		catalog.IntegrationDeepAPI,
		catalog.IntegrationAffiliateParams,
		catalog.IntegrationCouponCodes,
		catalog.IntegrationLevel("CARRIER_PIGEON"),
	} {
		vendor := catalog.Vendor{Name: "V", IntegrationLevel: level}
		got := gen.Generate(&vendor, &product, OfferDetails{TotalCost: decimal.NewNullDecimal(money.MustParse("42"))})
		require.Equal(t, catalog.IntegrationAssisted, got.Method, level)
		require.Equal(t, GuaranteeManualVerification, got.PriceGuarantee, level)
	}

	got := gen.Generate(nil, nil, OfferDetails{TotalCost: decimal.NewNullDecimal(money.MustParse("1"))})
	require.Contains(t, got.DisplayMessage, "the vendor")
	require.Len(t, got.Steps, 4)
}

func TestGeneratorRegisterOverrides(t *testing.T) {
	gen := NewGenerator(zeroLogger())
	coupon := "SAVE10"
	gen.Register(catalog.IntegrationCouponCodes, func(v catalog.Vendor, p catalog.Product, o OfferDetails) Instructions {
		inst := Assisted(v, p, o)
		inst.Method = catalog.IntegrationCouponCodes
		inst.CouponCode = &coupon
		inst.PriceGuarantee = GuaranteeLikely
		return inst
	})
	vendor := catalog.Vendor{Name: "C", IntegrationLevel: catalog.IntegrationCouponCodes}
	got := gen.Generate(&vendor, &catalog.Product{Name: "X"}, OfferDetails{})
	require.Equal(t, catalog.IntegrationCouponCodes, got.Method)
	require.Equal(t, "SAVE10", *got.CouponCode)
}

func TestValidateSelectionValid(t *testing.T) {
	f := newFixture(t, catalog.IntegrationAssisted)
	f.store.offers = []catalog.Offer{f.offer("82.00", true), f.offer("79.50", true), f.offer("60.00", false)}

	res, err := f.validator.ValidateSelection(context.Background(), f.request("90.60"))
	require.NoError(t, err)
	require.True(t, res.IsValid)
	require.Equal(t, "Offer selection logged. Proceed to checkout.", res.Message)
	require.Equal(t, "90.60", money.Format2(res.ConfirmedFinalPrice))
	require.NotNil(t, res.OriginalVendorPriceBeforeDiscount)
	require.Equal(t, "79.50", money.Format2(*res.OriginalVendorPriceBeforeDiscount))
	require.Equal(t, "https://alpha.example/item/"+f.productID.String(), res.Instructions.PrimaryRedirectURL)

	require.Len(t, f.recorder.events, 1)
	evt := f.recorder.events[0]
	require.True(t, evt.Valid)
	require.Equal(t, 2, evt.RoundsCount)
	require.Equal(t, 5, evt.OffersConsidered)
	require.Equal(t, "ASSISTED", evt.CheckoutMethod)
}

func TestValidateSelectionDeepAPIStillAssisted(t *testing.T) {
	f := newFixture(t, catalog.IntegrationDeepAPI)
	res, err := f.validator.ValidateSelection(context.Background(), f.request("90.60"))
	require.NoError(t, err)
	require.True(t, res.IsValid)
	require.Equal(t, catalog.IntegrationAssisted, res.Instructions.Method)
	require.Equal(t, GuaranteeManualVerification, res.Instructions.PriceGuarantee)
	require.Nil(t, res.OriginalVendorPriceBeforeDiscount)
}

func TestValidateSelectionUnknownVendor(t *testing.T) {
	f := newFixture(t, catalog.IntegrationAssisted)
	req := f.request("70.00")
	req.SelectedVendorID = uuid.New()

	res, err := f.validator.ValidateSelection(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsValid)
	require.Equal(t, "Validation failed: Vendor not found. Please double-check the offer.", res.Message)
	require.Equal(t, "70.00", money.Format2(res.ConfirmedFinalPrice))
	require.Nil(t, res.OriginalVendorPriceBeforeDiscount)
	require.Equal(t, GuaranteeManualVerification, res.Instructions.PriceGuarantee)
	require.True(t, strings.HasPrefix(res.Instructions.DisplayMessage, "Error: Could not fully validate this offer. Proceed with caution to https://defaultsearch.com"))
	require.Contains(t, res.Instructions.PrimaryRedirectURL, f.productID.String())
	require.Len(t, res.Instructions.Steps, 4)

	require.Len(t, f.recorder.events, 1)
	require.False(t, f.recorder.events[0].Valid)
}

func TestValidateSelectionUnknownProductAndVendor(t *testing.T) {
	f := newFixture(t, catalog.IntegrationAssisted)
	req := f.request("70.00")
	req.SelectedVendorID = uuid.New()
	req.ProductID = uuid.New()

	res, err := f.validator.ValidateSelection(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsValid)
	require.Equal(t, "Validation failed: Product and Vendor not found. Please double-check the offer.", res.Message)

	req = f.request("70.00")
	req.ProductID = uuid.New()
	res, err = f.validator.ValidateSelection(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "Validation failed: Product not found. Please double-check the offer.", res.Message)
	require.Contains(t, res.Instructions.DisplayMessage, "https://alpha.example/item/")
}

func TestValidateSelectionLookupErrorPropagates(t *testing.T) {
	f := newFixture(t, catalog.IntegrationAssisted)
	boom := errors.New("connection reset")
	f.store.vendorErr = boom
	_, err := f.validator.ValidateSelection(context.Background(), f.request("90.60"))
	require.ErrorIs(t, err, boom)
	require.Empty(t, f.recorder.events)
}

func TestValidateSelectionChecksExistenceBeforeLoading(t *testing.T) {
	f := newFixture(t, catalog.IntegrationAssisted)
	f.store.vendorErr = errors.New("vendor row should not be loaded")
	req := f.request("70.00")
	req.SelectedVendorID = uuid.New()

	res, err := f.validator.ValidateSelection(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsValid)

	boom := errors.New("pool exhausted")
	f.store.existsErr = boom
	_, err = f.validator.ValidateSelection(context.Background(), f.request("90.60"))
	require.ErrorIs(t, err, boom)
}

func TestValidateSelectionRecorderFailureIgnored(t *testing.T) {
	f := newFixture(t, catalog.IntegrationAssisted)
	f.recorder.err = errors.New("queue down")
	res, err := f.validator.ValidateSelection(context.Background(), f.request("90.60"))
	require.NoError(t, err)
	require.True(t, res.IsValid)
}

func TestValidateSelectionHandler(t *testing.T) {
	f := newFixture(t, catalog.IntegrationAssisted)
	h := NewHandler(HandlerConfig{Validator: f.validator})

	body := map[string]any{
		"sessionId":        "sess-1",
		"productId":        f.productID,
		"selectedVendorId": f.vendorID,
		"finalOfferDetails": map[string]any{
			"totalCost": 90.60, "basePrice": 80, "shippingCost": 5, "taxAmount": 5.6,
			"discountPercent": 9.4, "deliveryDays": 3, "appliedRuleIds": []string{uuid.NewString()},
		},
		"userLocation":       "US_DEFAULT",
		"biddingRoundsAudit": []map[string]any{{"roundNumber": 1, "offersConsideredCount": 2}},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ValidateSelection(rec, httptest.NewRequest(http.MethodPost, "/api/v1/validate-selection", bytes.NewReader(raw)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			IsValid      bool `json:"isValid"`
			Instructions struct {
				Method string `json:"method"`
				Steps  []struct {
					Step int `json:"step"`
				} `json:"detailedInstructions"`
				PriceGuarantee string `json:"priceGuaranteeLevel"`
			} `json:"checkoutInstructions"`
			ConfirmedFinalPrice json.RawMessage `json:"confirmedFinalPrice"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Data.IsValid)
	require.Equal(t, "ASSISTED", resp.Data.Instructions.Method)
	require.Len(t, resp.Data.Instructions.Steps, 4)
	require.Equal(t, "MANUAL_VERIFICATION", resp.Data.Instructions.PriceGuarantee)
}

func TestValidateSelectionHandlerRejectsBadBodies(t *testing.T) {
	f := newFixture(t, catalog.IntegrationAssisted)
	h := NewHandler(HandlerConfig{Validator: f.validator})

	cases := map[string]string{
		"malformed":        `{"sessionId":`,
		"missing session":  `{"productId":"` + f.productID.String() + `","selectedVendorId":"` + f.vendorID.String() + `","finalOfferDetails":{"totalCost":1,"basePrice":1,"shippingCost":0,"taxAmount":0}}`,
		"missing vendor":   `{"sessionId":"s","productId":"` + f.productID.String() + `","finalOfferDetails":{"totalCost":1,"basePrice":1,"shippingCost":0,"taxAmount":0}}`,
		"negative total":   `{"sessionId":"s","productId":"` + f.productID.String() + `","selectedVendorId":"` + f.vendorID.String() + `","finalOfferDetails":{"totalCost":-1,"basePrice":1,"shippingCost":0,"taxAmount":0}}`,
		"bad round number": `{"sessionId":"s","productId":"` + f.productID.String() + `","selectedVendorId":"` + f.vendorID.String() + `","finalOfferDetails":{"totalCost":1,"basePrice":1,"shippingCost":0,"taxAmount":0},"biddingRoundsAudit":[{"roundNumber":0}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ValidateSelection(rec, httptest.NewRequest(http.MethodPost, "/api/v1/validate-selection", strings.NewReader(body)))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := httptest.NewRecorder()
	h.ValidateSelection(rec, httptest.NewRequest(http.MethodPost, "/api/v1/validate-selection", strings.NewReader(cases["negative total"])))
	require.Contains(t, rec.Body.String(), `"finalOfferDetails.totalCost":"decimal_nonneg"`)
}

func TestValidateSelectionHandlerRequiresFinalOffer(t *testing.T) {
	f := newFixture(t, catalog.IntegrationAssisted)
	h := NewHandler(HandlerConfig{Validator: f.validator})
	ids := `"sessionId":"s1","productId":"` + f.productID.String() + `","selectedVendorId":"` + f.vendorID.String() + `"`

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"no offer", `{` + ids + `}`, `"finalOfferDetails":"required"`},
		{"null offer", `{` + ids + `,"finalOfferDetails":null}`, `"finalOfferDetails":"required"`},
		{"no total", `{` + ids + `,"finalOfferDetails":{"basePrice":80,"shippingCost":5,"taxAmount":5.6}}`, `"finalOfferDetails.totalCost":"required"`},
		{"null total", `{` + ids + `,"finalOfferDetails":{"totalCost":null,"basePrice":80}}`, `"finalOfferDetails.totalCost":"required"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ValidateSelection(rec, httptest.NewRequest(http.MethodPost, "/api/v1/validate-selection", strings.NewReader(tc.body)))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			require.Contains(t, rec.Body.String(), tc.field)
		})
	}
	require.Empty(t, f.recorder.events)

	rec := httptest.NewRecorder()
	body := `{` + ids + `,"finalOfferDetails":{"totalCost":0}}`
	h.ValidateSelection(rec, httptest.NewRequest(http.MethodPost, "/api/v1/validate-selection", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, f.recorder.events, 1)
}

func TestValidateSelectionWithoutTotalIsBadRequest(t *testing.T) {
	f := newFixture(t, catalog.IntegrationAssisted)

	req := f.request("90.60")
	req.FinalOffer = nil
	_, err := f.validator.ValidateSelection(context.Background(), req)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)

	req = f.request("90.60")
	req.FinalOffer.TotalCost = decimal.NullDecimal{}
	_, err = f.validator.ValidateSelection(context.Background(), req)
	require.ErrorAs(t, err, &appErr)
	require.Empty(t, f.recorder.events)
}

func zeroLogger() zerolog.Logger {
	return zerolog.Nop()
}
