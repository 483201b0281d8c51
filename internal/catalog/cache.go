package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/orderflow/orderflow-backend/pkg/logger"
	"github.com/orderflow/orderflow-backend/pkg/redis"
)

// cacheStore is the slice of the redis client the catalog needs. Satisfied by
// *redis.Client; tests substitute a fake.
type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DelByPrefix(ctx context.Context, prefix string) error
	ProductKey(productID string) string
	ProductListPageKey(page, size int, sortField, sortDir string) string
	ProductListCategoryKey(categoryID string) string
	ProductListPrefix() string
}

// Cache is the read-through layer in front of the product store. Every failure
// here degrades to a database read; nothing is ever surfaced to callers.
type Cache struct {
	store cacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewCache builds the cache layer over the provided store. A nil store
// yields a cache whose every read misses and every write is a no-op.
func NewCache(store cacheStore, ttl time.Duration, logg *logger.Logger) *Cache {
	return &Cache{store: store, ttl: ttl, logg: logg}
}

// GetProduct returns the cached product DTO, or (nil, false) on miss. Corrupt
// payloads count as misses so a bad write never wedges a key until expiry.
func (c *Cache) GetProduct(ctx context.Context, productID string) (*ProductDTO, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	raw, err := c.store.Get(ctx, c.store.ProductKey(productID))
	if err != nil {
		c.warnUnlessMiss(ctx, "catalog cache read failed", err)
		return nil, false
	}
	var dto ProductDTO
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		c.warn(ctx, "catalog cache payload corrupt, treating as miss")
		return nil, false
	}
	return &dto, true
}

// SetProduct stores the product DTO under its key for the configured TTL.
func (c *Cache) SetProduct(ctx context.Context, dto ProductDTO) {
	if c == nil || c.store == nil {
		return
	}
	payload, err := json.Marshal(dto)
	if err != nil {
		c.warn(ctx, "catalog cache marshal failed")
		return
	}
	if err := c.store.Set(ctx, c.store.ProductKey(dto.ID.String()), payload, c.ttl); err != nil {
		c.warnUnlessMiss(ctx, "catalog cache write failed", err)
	}
}

// GetPage returns the cached listing page, or (nil, false) on miss.
func (c *Cache) GetPage(ctx context.Context, key string) (*ProductPage, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		c.warnUnlessMiss(ctx, "catalog cache read failed", err)
		return nil, false
	}
	var page ProductPage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		c.warn(ctx, "catalog cache payload corrupt, treating as miss")
		return nil, false
	}
	return &page, true
}

// SetPage stores a listing page under key for the configured TTL.
func (c *Cache) SetPage(ctx context.Context, key string, page ProductPage) {
	if c == nil || c.store == nil {
		return
	}
	payload, err := json.Marshal(page)
	if err != nil {
		c.warn(ctx, "catalog cache marshal failed")
		return
	}
	if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
		c.warnUnlessMiss(ctx, "catalog cache write failed", err)
	}
}

// GetCategoryList returns the cached category listing, or (nil, false) on miss.
func (c *Cache) GetCategoryList(ctx context.Context, categoryID string) ([]ProductDTO, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	raw, err := c.store.Get(ctx, c.store.ProductListCategoryKey(categoryID))
	if err != nil {
		c.warnUnlessMiss(ctx, "catalog cache read failed", err)
		return nil, false
	}
	var dtos []ProductDTO
	if err := json.Unmarshal([]byte(raw), &dtos); err != nil {
		c.warn(ctx, "catalog cache payload corrupt, treating as miss")
		return nil, false
	}
	return dtos, true
}

// SetCategoryList stores a category listing for the configured TTL.
func (c *Cache) SetCategoryList(ctx context.Context, categoryID string, dtos []ProductDTO) {
	if c == nil || c.store == nil {
		return
	}
	payload, err := json.Marshal(dtos)
	if err != nil {
		c.warn(ctx, "catalog cache marshal failed")
		return
	}
	if err := c.store.Set(ctx, c.store.ProductListCategoryKey(categoryID), payload, c.ttl); err != nil {
		c.warnUnlessMiss(ctx, "catalog cache write failed", err)
	}
}

// InvalidateProduct drops the single-product key plus every listing key. Any
// product write can reorder or reprice a listing, so eviction is blanket.
func (c *Cache) InvalidateProduct(ctx context.Context, productID string) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Del(ctx, c.store.ProductKey(productID)); err != nil {
		c.warnUnlessMiss(ctx, "catalog cache eviction failed", err)
	}
	c.InvalidateListings(ctx)
}

// InvalidateListings drops every listing key under the shared prefix.
func (c *Cache) InvalidateListings(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.DelByPrefix(ctx, c.store.ProductListPrefix()); err != nil {
		c.warnUnlessMiss(ctx, "catalog cache listing eviction failed", err)
	}
}

// PageKey builds the listing key for the normalized pagination params.
func (c *Cache) PageKey(page, size int, sortField, sortDir string) string {
	if c == nil || c.store == nil {
		return ""
	}
	return c.store.ProductListPageKey(page, size, sortField, sortDir)
}

func (c *Cache) warnUnlessMiss(ctx context.Context, msg string, err error) {
	if redis.IsCacheMiss(err) {
		return
	}
	if c.logg != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), msg)
	}
}

func (c *Cache) warn(ctx context.Context, msg string) {
	if c.logg != nil {
		c.logg.Warn(ctx, msg)
	}
}
