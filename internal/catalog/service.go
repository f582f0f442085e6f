package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/magiccart-api/internal/common"
)

// Service exposes read access to products and vendors for the extension.
type Service struct {
	products ProductLookup
	vendors  VendorLookup
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Products ProductLookup
	Vendors  VendorLookup
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Products == nil {
		return nil, errors.New("catalog: product lookup is required")
	}
	if cfg.Vendors == nil {
		return nil, errors.New("catalog: vendor lookup is required")
	}
	return &Service{products: cfg.Products, vendors: cfg.Vendors}, nil
}

// GetProduct resolves a product by its string identifier.
func (s *Service) GetProduct(ctx context.Context, rawID string) (Product, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return Product{}, common.BadRequest("id", "id must be a valid UUID", err)
	}
	product, err := s.products.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, common.NotFound("product not found", err)
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// ListVendors returns vendors filtered by status; empty status means ACTIVE.
func (s *Service) ListVendors(ctx context.Context, rawStatus string) ([]Vendor, error) {
	status := VendorStatus(strings.ToUpper(strings.TrimSpace(rawStatus)))
	switch status {
	case "":
		status = VendorActive
	case VendorActive, VendorInactive, VendorSuspended:
	default:
		return nil, common.BadRequest("status", "status must be ACTIVE, INACTIVE or SUSPENDED", nil)
	}
	vendors, err := s.vendors.ListVendors(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	return vendors, nil
}
