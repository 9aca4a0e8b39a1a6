package planner

import (
	"strings"

	"github.com/FACorreiaa/go-trip-explorer/internal/types"
)

// ComputeVisibleSet derives the ordered list of locations matching the
// current filter state.
//
// Precedence: an active semantic search alone determines the result
// (resolver order, unknown ids dropped); an active literal search alone
// determines the result (catalog order); otherwise the explicit filters are
// AND-composed over the catalog. The derivation is synchronous and total,
// so consumers never observe a partial recomputation.
func ComputeVisibleSet(catalog *Catalog, filters types.FilterState, isFavorited func(string) bool, days []types.ItineraryDay) []types.Location {
	switch filters.Search {
	case types.SearchModeSemantic:
		return resolveSemantic(catalog, filters.SemanticIDs)
	case types.SearchModeLiteral:
		return matchLiteral(catalog, filters.SearchTerm)
	}

	var dayIDs map[string]struct{}
	if len(filters.Days) > 0 {
		dayIDs = make(map[string]struct{})
		for _, day := range days {
			if !filters.HasDay(day.DayNumber) {
				continue
			}
			for _, id := range day.LocationIDs {
				dayIDs[id] = struct{}{}
			}
		}
	}

	out := make([]types.Location, 0, catalog.Len())
	for _, loc := range catalog.All() {
		if len(filters.Categories) > 0 && !filters.HasCategory(loc.Category) {
			continue
		}
		if filters.FavoritesOnly && !isFavorited(loc.ID) {
			continue
		}
		if dayIDs != nil {
			if _, planned := dayIDs[loc.ID]; !planned {
				continue
			}
		}
		out = append(out, loc)
	}
	return out
}

// resolveSemantic re-validates the resolver's ids against the catalog.
// Unknown ids are silently dropped; resolver order is preserved because it
// ranks by intent.
func resolveSemantic(catalog *Catalog, ids []string) []types.Location {
	out := make([]types.Location, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if loc, ok := catalog.Lookup(id); ok {
			out = append(out, loc)
		}
	}
	return out
}

// matchLiteral keeps catalog entries whose name, description, or category
// contains the term, case-insensitively.
func matchLiteral(catalog *Catalog, term string) []types.Location {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return catalog.All()
	}
	out := make([]types.Location, 0, catalog.Len())
	for _, loc := range catalog.All() {
		if strings.Contains(strings.ToLower(loc.Name), needle) ||
			strings.Contains(strings.ToLower(loc.Description), needle) ||
			strings.Contains(strings.ToLower(string(loc.Category)), needle) {
			out = append(out, loc)
		}
	}
	return out
}

// sameIDSet reports whether two location lists contain the same ids,
// ignoring order. Used to decide whether a recomputation changed the set of
// matches (which requests a viewport fit) or merely re-ordered it.
func sameIDSet(a, b []types.Location) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[string]struct{}, len(a))
	for _, loc := range a {
		ids[loc.ID] = struct{}{}
	}
	for _, loc := range b {
		if _, ok := ids[loc.ID]; !ok {
			return false
		}
	}
	return true
}
