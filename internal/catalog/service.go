package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kombee/eshop-storefront/internal/saleor"
)

// listingPageSize matches the storefront grid.
const listingPageSize = 12

// API is the slice of the remote commerce client the catalog needs.
type API interface {
	Products(ctx context.Context, first int) ([]saleor.Product, error)
	Product(ctx context.Context, id string) (*saleor.Product, error)
}

// Service is thin fetch-and-map glue over the remote catalog. The listing is
// cached for a short TTL and concurrent misses are collapsed with singleflight
// so a burst of page loads costs one upstream call.
type Service struct {
	api API
	ttl time.Duration
	sfg singleflight.Group

	mu        sync.Mutex
	listing   []saleor.Product
	fetchedAt time.Time
}

func NewService(api API, ttl time.Duration) *Service {
	return &Service{
		api: api,
		ttl: ttl,
	}
}

// Listing returns the product listing, from cache when fresh.
func (s *Service) Listing(ctx context.Context) ([]saleor.Product, error) {
	s.mu.Lock()
	// freshness is tracked by fetch time, so a legitimately empty listing is
	// cached like any other
	if !s.fetchedAt.IsZero() && time.Since(s.fetchedAt) < s.ttl {
		cached := s.listing
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	v, err, _ := s.sfg.Do("listing", func() (interface{}, error) {
		products, err := s.api.Products(ctx, listingPageSize)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.listing = products
		s.fetchedAt = time.Now()
		s.mu.Unlock()
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]saleor.Product), nil
}

// Product fetches one product for the detail page. No cache beyond collapsing
// concurrent fetches of the same id.
func (s *Service) Product(ctx context.Context, id string) (*saleor.Product, error) {
	v, err, _ := s.sfg.Do("product:"+id, func() (interface{}, error) {
		return s.api.Product(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*saleor.Product), nil
}
