package types

// SearchMode selects how the visible set is derived. The two search modes
// are mutually exclusive with each other and with the explicit filters.
type SearchMode string

const (
	SearchModeNone     SearchMode = "none"
	SearchModeLiteral  SearchMode = "literal"
	SearchModeSemantic SearchMode = "semantic"
)

// FilterState is the full filter/search selection driving the visible set.
type FilterState struct {
	Categories    []Category `json:"categories,omitempty"`
	FavoritesOnly bool       `json:"favorites_only,omitempty"`
	// Days restricts results to locations planned on the selected day
	// numbers. Planner context only.
	Days []int `json:"days,omitempty"`

	Search SearchMode `json:"search"`
	// SearchTerm is set when Search is literal.
	SearchTerm string `json:"search_term,omitempty"`
	// SemanticIDs is the resolver's ordered id list when Search is semantic.
	SemanticIDs []string `json:"semantic_ids,omitempty"`
}

// HasCategory reports whether c is selected.
func (f FilterState) HasCategory(c Category) bool {
	for _, sel := range f.Categories {
		if sel == c {
			return true
		}
	}
	return false
}

// HasDay reports whether day n is selected.
func (f FilterState) HasDay(n int) bool {
	for _, sel := range f.Days {
		if sel == n {
			return true
		}
	}
	return false
}

// Explicit reports whether any explicit filter or search narrows the
// catalog. The list view mirrors the viewport only when this is false.
func (f FilterState) Explicit() bool {
	return len(f.Categories) > 0 || f.FavoritesOnly || len(f.Days) > 0 || f.Search != SearchModeNone
}

// ClearSearch drops any active search mode, leaving explicit filters alone.
func (f *FilterState) ClearSearch() {
	f.Search = SearchModeNone
	f.SearchTerm = ""
	f.SemanticIDs = nil
}
