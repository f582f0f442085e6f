package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/magiccart-api/internal/cache"
)

// Cache stores catalog entities as JSON in Redis. A nil client or non-positive
// TTL turns every call into a miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// get decodes key into dst and reports whether it was present.
func (c *Cache) get(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, json.Unmarshal(data, dst)
}

func (c *Cache) set(ctx context.Context, key string, v any) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// getVendors reads many vendors with one MGET; undecodable entries count as misses.
func (c *Cache) getVendors(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Vendor, error) {
	found := make(map[uuid.UUID]Vendor, len(ids))
	if !c.enabled() || len(ids) == 0 {
		return found, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cache.KeyVendor(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return found, err
	}
	for i, raw := range values {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		var v Vendor
		if json.Unmarshal([]byte(s), &v) == nil {
			found[ids[i]] = v
		}
	}
	return found, nil
}

// setVendors writes vendors in one pipeline.
func (c *Cache) setVendors(ctx context.Context, vendors map[uuid.UUID]Vendor) error {
	if !c.enabled() || len(vendors) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for id, v := range vendors {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		pipe.Set(ctx, cache.KeyVendor(id), data, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// CachedLookup is a read-through cache in front of product and vendor lookups.
// Cache failures are logged and fall through to the underlying store.
type CachedLookup struct {
	Products ProductLookup
	Vendors  VendorLookup
	Cache    *Cache
	Logger   zerolog.Logger
}

func readThrough[T any](ctx context.Context, c CachedLookup, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if ok, err := c.Cache.get(ctx, key, &cached); err != nil {
		c.Logger.Warn().Err(err).Str("key", key).Msg("catalog cache read")
	} else if ok {
		return cached, nil
	}
	fresh, err := load(ctx)
	if err != nil {
		return fresh, err
	}
	if err := c.Cache.set(ctx, key, fresh); err != nil {
		c.Logger.Warn().Err(err).Str("key", key).Msg("catalog cache write")
	}
	return fresh, nil
}

// GetProduct implements ProductLookup.
func (c CachedLookup) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return readThrough(ctx, c, cache.KeyProduct(id), func(ctx context.Context) (Product, error) {
		return c.Products.GetProduct(ctx, id)
	})
}

// ProductExists implements ProductLookup.
func (c CachedLookup) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var cached Product
	if ok, err := c.Cache.get(ctx, cache.KeyProduct(id), &cached); err == nil && ok {
		return true, nil
	}
	return c.Products.ProductExists(ctx, id)
}

// GetVendor implements VendorLookup.
func (c CachedLookup) GetVendor(ctx context.Context, id uuid.UUID) (Vendor, error) {
	return readThrough(ctx, c, cache.KeyVendor(id), func(ctx context.Context) (Vendor, error) {
		return c.Vendors.GetVendor(ctx, id)
	})
}

// GetVendorsByIDs implements VendorLookup, fetching only cache misses from the store.
func (c CachedLookup) GetVendorsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Vendor, error) {
	result, err := c.Cache.getVendors(ctx, ids)
	if err != nil {
		c.Logger.Warn().Err(err).Int("keys", len(ids)).Msg("catalog cache read")
	}
	var misses []uuid.UUID
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			misses = append(misses, id)
		}
	}
	if len(misses) == 0 {
		return result, nil
	}
	fetched, err := c.Vendors.GetVendorsByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, vendor := range fetched {
		result[id] = vendor
	}
	if err := c.Cache.setVendors(ctx, fetched); err != nil {
		c.Logger.Warn().Err(err).Int("keys", len(fetched)).Msg("catalog cache write")
	}
	return result, nil
}

// VendorExists implements VendorLookup.
func (c CachedLookup) VendorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var cached Vendor
	if ok, err := c.Cache.get(ctx, cache.KeyVendor(id), &cached); err == nil && ok {
		return true, nil
	}
	return c.Vendors.VendorExists(ctx, id)
}

// ListVendors implements VendorLookup. Listings are not cached.
func (c CachedLookup) ListVendors(ctx context.Context, status VendorStatus) ([]Vendor, error) {
	return c.Vendors.ListVendors(ctx, status)
}
