// Package cache centralises the Redis key layout shared by the API and worker.
package cache

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// KeyProduct returns the cache key of a product.
func KeyProduct(id uuid.UUID) string {
	return "catalog:product:" + id.String()
}

// KeyVendor returns the cache key of a vendor.
func KeyVendor(id uuid.UUID) string {
	return "catalog:vendor:" + id.String()
}

// KeySelectionSummary returns the cache key of an analytics summary window.
func KeySelectionSummary(from, to time.Time, top int) string {
	return "an:selections:" + from.UTC().Format(time.RFC3339) + ":" + to.UTC().Format(time.RFC3339) + ":" + strconv.Itoa(top)
}

// PrefixRateLimit namespaces rate limiter counters.
const PrefixRateLimit = "rl:"
