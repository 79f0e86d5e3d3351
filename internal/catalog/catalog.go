// Package catalog serves product image listings from the index through a
// small expiring LRU cache.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/erazemk/galerija/internal/metrics"
	"github.com/erazemk/galerija/internal/model"
	"github.com/erazemk/galerija/internal/store"
)

// Listing is a product and its images in order. A product that was never
// submitted has an empty listing. Listings are shared; do not modify them.
type Listing struct {
	Product model.Product
	Images  []model.Image
}

// Catalog reads listings.
type Catalog struct {
	db    *sql.DB
	cache *expirable.LRU[string, *Listing]

	// generations counts invalidations per product. A listing read before
	// an invalidation is never cached after it.
	mu          sync.Mutex
	generations map[string]uint64

	// loaded runs between reading a listing and caching it.
	loaded func(product string)
}

// New creates a Catalog caching up to size listings for ttl.
// A size of zero disables caching.
func New(db *sql.DB, size int, ttl time.Duration) *Catalog {
	c := &Catalog{db: db, generations: make(map[string]uint64)}
	if size > 0 {
		c.cache = expirable.NewLRU[string, *Listing](size, nil, ttl)
	}
	return c
}

// Get returns the listing of product.
func (c *Catalog) Get(ctx context.Context, product string) (*Listing, error) {
	if c.cache != nil {
		if l, ok := c.cache.Get(product); ok {
			metrics.CacheHit()
			return l, nil
		}
		metrics.CacheMiss()
	}
	gen := c.generation(product)

	p, err := store.GetProduct(ctx, c.db, product)
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	images, err := store.ListImages(ctx, c.db, product)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}

	l := &Listing{Product: model.Product{ID: product}, Images: images}
	if p != nil {
		l.Product = *p
	}
	if l.Images == nil {
		l.Images = []model.Image{}
	}

	if c.loaded != nil {
		c.loaded(product)
	}

	if c.cache != nil {
		c.mu.Lock()
		if c.generations[product] == gen {
			c.cache.Add(product, l)
		}
		c.mu.Unlock()
	}
	return l, nil
}

// Invalidate drops the cached listing of product. Reads already in flight
// still return their listing but do not cache it.
func (c *Catalog) Invalidate(product string) {
	if c.cache == nil {
		return
	}
	c.mu.Lock()
	c.generations[product]++
	c.cache.Remove(product)
	c.mu.Unlock()
}

func (c *Catalog) generation(product string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[product]
}

// Products returns every product that has been submitted.
func (c *Catalog) Products(ctx context.Context) ([]model.Product, error) {
	return store.ListProducts(ctx, c.db)
}
