package planner

import (
	"context"

	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

// CatalogLoader supplies the full, read-only list of locations for a session.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) ([]types.Location, error)
}

// Catalog is the immutable per-session location set with id lookup.
type Catalog struct {
	locations []types.Location
	byID      map[string]int
}

// NewCatalog builds a catalog from the loader's snapshot. Later entries with
// a duplicate id are dropped so id lookup stays unambiguous.
func NewCatalog(locations []types.Location) *Catalog {
	c := &Catalog{
		locations: make([]types.Location, 0, len(locations)),
		byID:      make(map[string]int, len(locations)),
	}
	for _, loc := range locations {
		if _, exists := c.byID[loc.ID]; exists {
			continue
		}
		c.byID[loc.ID] = len(c.locations)
		c.locations = append(c.locations, loc)
	}
	return c
}

// All returns the catalog in stable load order. Callers must not mutate
// the returned slice.
func (c *Catalog) All() []types.Location {
	return c.locations
}

// Len returns the number of locations in the catalog.
func (c *Catalog) Len() int {
	return len(c.locations)
}

// Lookup returns the location for id, if present.
func (c *Catalog) Lookup(id string) (types.Location, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return types.Location{}, false
	}
	return c.locations[idx], true
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Categories returns the categories present in this catalog, in the fixed
// enumeration order. Drives the filter panel.
func (c *Catalog) Categories() []types.Category {
	present := make(map[types.Category]bool, len(types.Categories))
	for _, loc := range c.locations {
		present[loc.Category] = true
	}
	out := make([]types.Category, 0, len(present))
	for _, cat := range types.Categories {
		if present[cat] {
			out = append(out, cat)
		}
	}
	return out
}
