package catalog

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mcapServer/game"
)

// Source is where the catalog ultimately comes from.
type Source interface {
	LoadCatalog(ctx context.Context) ([]game.CatalogItem, error)
}

// SharedCache is a catalog snapshot shared between server instances.
// GetCatalog returns nil, nil on a miss.
type SharedCache interface {
	GetCatalog(ctx context.Context) ([]game.CatalogItem, error)
	SetCatalog(ctx context.Context, items []game.CatalogItem, ttl time.Duration) error
}

// Provider serves the catalog from memory and refreshes it every ttl.
// The returned slice is shared and must not be modified.
type Provider struct {
	source Source
	shared SharedCache
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	items    []game.CatalogItem
	loaded   bool // an empty catalog is still a snapshot
	loadedAt time.Time

	group singleflight.Group
}

// NewProvider builds a provider. shared may be nil. A ttl of 0 reloads on
// every call.
func NewProvider(source Source, shared SharedCache, ttl time.Duration) *Provider {
	return &Provider{
		source: source,
		shared: shared,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Catalog returns the current snapshot sorted by id.
func (p *Provider) Catalog(ctx context.Context) ([]game.CatalogItem, error) {
	p.mu.RLock()
	items, loaded, loadedAt := p.items, p.loaded, p.loadedAt
	p.mu.RUnlock()

	if loaded && p.now().Sub(loadedAt) < p.ttl {
		return items, nil
	}

	v, err, _ := p.group.Do("catalog", func() (interface{}, error) {
		return p.refresh(ctx)
	})
	if err != nil {
		if loaded {
			log.Printf("⚠️  Catalog refresh failed, serving %d cached coins: %v", len(items), err)
			return items, nil
		}
		return nil, err
	}
	return v.([]game.CatalogItem), nil
}

func (p *Provider) refresh(ctx context.Context) ([]game.CatalogItem, error) {
	items := p.fromShared(ctx)

	if items == nil {
		loaded, err := p.source.LoadCatalog(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		items = slices.Clone(loaded)
		slices.SortFunc(items, func(a, b game.CatalogItem) int {
			return strings.Compare(a.ID, b.ID)
		})

		if p.shared != nil && p.ttl > 0 {
			if err := p.shared.SetCatalog(ctx, items, p.ttl); err != nil {
				log.Printf("⚠️  Failed to share catalog: %v", err)
			}
		}
		log.Printf("📦 Loaded catalog - %d coins", len(items))
	}

	p.mu.Lock()
	p.items = items
	p.loaded = true
	p.loadedAt = p.now()
	p.mu.Unlock()

	return items, nil
}

func (p *Provider) fromShared(ctx context.Context) []game.CatalogItem {
	if p.shared == nil || p.ttl <= 0 {
		return nil
	}
	items, err := p.shared.GetCatalog(ctx)
	if err != nil {
		log.Printf("⚠️  Shared catalog unavailable: %v", err)
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	// Another instance wrote it; don't trust its ordering.
	slices.SortFunc(items, func(a, b game.CatalogItem) int {
		return strings.Compare(a.ID, b.ID)
	})
	return items
}
