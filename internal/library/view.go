package library

import (
	"cmp"
	"slices"
	"strings"
)

// SortMode selects the ordering applied by FilterAndSort.
type SortMode string

const (
	SortAlphabeticalAsc  SortMode = "alphabetical-ascending"
	SortAlphabeticalDesc SortMode = "alphabetical-descending"
	SortRatingDesc       SortMode = "rating-descending"
)

// ParseSortMode accepts the canonical mode names and the short forms az, za
// and rate. An empty string selects ascending titles.
func ParseSortMode(raw string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "az", string(SortAlphabeticalAsc):
		return SortAlphabeticalAsc, nil
	case "za", string(SortAlphabeticalDesc):
		return SortAlphabeticalDesc, nil
	case "rate", "rating", string(SortRatingDesc):
		return SortRatingDesc, nil
	default:
		return "", validationError("parse sort mode", "unknown sort mode %q", raw)
	}
}

// FilterAndSort returns the items of p whose title contains query, ignoring
// case, ordered by mode. p is not modified. Unknown modes sort ascending.
func FilterAndSort(p Playlist, query string, mode SortMode) []Item {
	needle := fold(strings.TrimSpace(query))

	items := make([]Item, 0, len(p.Items))
	for _, item := range p.Items {
		if needle == "" || strings.Contains(fold(item.Title), needle) {
			items = append(items, item)
		}
	}

	switch mode {
	case SortRatingDesc:
		slices.SortStableFunc(items, func(a, b Item) int {
			return cmp.Compare(b.Rating, a.Rating)
		})
	case SortAlphabeticalDesc:
		sortByTitle(items)
		slices.Reverse(items)
	default:
		sortByTitle(items)
	}
	return items
}

func sortByTitle(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		return strings.Compare(a.Title, b.Title)
	})
}
