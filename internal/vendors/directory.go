// Package vendors provides cached, best-effort vendor lookup by city.
package vendors

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

// DefaultLimit caps the number of vendors returned for one turn.
const DefaultLimit = 6

// Finder defines the storage operation the Directory needs.
// Implemented by storage.Store.
type Finder interface {
	FindVendorsByCityFragment(ctx context.Context, fragment string, limit int) ([]wedding.Vendor, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type entry struct {
	vendors []wedding.Vendor
	at      time.Time
}

// Directory caches city lookups for ttl. A zero ttl disables caching.
type Directory struct {
	finder Finder
	clock  Clock
	ttl    time.Duration
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string]entry
	gen   uint64
}

// NewDirectory creates a Directory with a 60-second cache TTL.
func NewDirectory(finder Finder) *Directory {
	return NewDirectoryWithTTL(finder, 60*time.Second)
}

// NewDirectoryWithTTL creates a Directory caching lookups for ttl.
func NewDirectoryWithTTL(finder Finder, ttl time.Duration) *Directory {
	return NewDirectoryWithClock(finder, realClock{}, ttl)
}

// NewDirectoryWithClock creates a Directory with a custom clock (for testing).
func NewDirectoryWithClock(finder Finder, clock Clock, ttl time.Duration) *Directory {
	return &Directory{
		finder: finder,
		clock:  clock,
		ttl:    ttl,
		cache:  make(map[string]entry),
	}
}

// Find returns at most limit vendors whose city contains city. The result is
// never nil. limit <= 0 means DefaultLimit.
func (d *Directory) Find(ctx context.Context, city string, limit int) ([]wedding.Vendor, error) {
	key := strings.ToLower(strings.TrimSpace(city))
	if key == "" {
		return []wedding.Vendor{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	cacheKey := fmt.Sprintf("%s|%d", key, limit)

	d.mu.RLock()
	if e, ok := d.cache[cacheKey]; ok && d.fresh(e) {
		d.mu.RUnlock()
		return copyVendors(e.vendors), nil
	}
	d.mu.RUnlock()

	d.mu.RLock()
	gen := d.gen
	d.mu.RUnlock()

	// The lookup is shared by every caller of the flight, so it must not die
	// with the first caller's context.
	shared := context.WithoutCancel(ctx)
	v, err, _ := d.group.Do(fmt.Sprintf("%s#%d", cacheKey, gen), func() (any, error) {
		found, err := d.finder.FindVendorsByCityFragment(shared, key, limit)
		if err != nil {
			return nil, err
		}
		if found == nil {
			found = []wedding.Vendor{}
		}
		if d.ttl > 0 {
			d.mu.Lock()
			if d.gen == gen {
				d.cache[cacheKey] = entry{vendors: found, at: d.clock.Now()}
			}
			d.mu.Unlock()
		}
		return found, nil
	})
	if err != nil {
		return nil, fmt.Errorf("finding vendors in %q: %w", city, err)
	}
	return copyVendors(v.([]wedding.Vendor)), nil
}

// Invalidate drops every cached lookup. Called after vendors change.
// Lookups already in flight finish but are not cached.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	d.cache = make(map[string]entry)
	d.gen++
	d.mu.Unlock()
}

func (d *Directory) fresh(e entry) bool {
	return d.ttl > 0 && d.clock.Now().Before(e.at.Add(d.ttl))
}

func copyVendors(in []wedding.Vendor) []wedding.Vendor {
	out := make([]wedding.Vendor, len(in))
	copy(out, in)
	return out
}
