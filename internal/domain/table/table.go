// Package table derives the sorted, paginated projection of a profile dataset
// and the page selector labels shown under it.
package table

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/profiles/internal/domain/model"
)

// Defaults used by the page view.
const (
	DefaultPageSize     = 10
	DefaultSiblingCount = 1

	// Ellipsis marks a skipped range in the page selector.
	Ellipsis = "..."

	// boundaryLabels counts first, last, current and two ellipses.
	boundaryLabels = 5
)

// Order is the score sort direction.
type Order string

// Supported orders.
const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// ParseOrder accepts "asc"/"ascending" and "desc"/"descending" (case-insensitive).
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrder, s)
	}
}

// Valid reports whether o is a known order.
func (o Order) Valid() bool { return o == Ascending || o == Descending }

// Toggle returns the opposite order.
func (o Order) Toggle() Order {
	if o == Ascending {
		return Descending
	}
	return Ascending
}

// Title is the human readable name used on the sort button.
func (o Order) Title() string {
	if o == Ascending {
		return "Ascending"
	}
	return "Descending"
}

// Label is one entry of the page selector: a page number or an ellipsis.
type Label struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

// String renders the label as shown on its button.
func (l Label) String() string {
	if l.Ellipsis {
		return Ellipsis
	}
	return strconv.Itoa(l.Page)
}

// Clickable reports whether the label selects a page.
func (l Label) Clickable() bool { return !l.Ellipsis }

// SortProfiles returns a stably sorted copy of records ordered by score.
// Equal scores keep their received order in both directions.
func SortProfiles(records []model.Profile, order Order) []model.Profile {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b model.Profile) int {
		if order == Ascending {
			return cmp.Compare(a.Score, b.Score)
		}
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}

// TotalPages is ceil(count / size).
func TotalPages(count, size int) int {
	if count <= 0 || size <= 0 {
		return 0
	}
	return (count + size - 1) / size
}

// PageSlice returns the records of the 1-based page. Pages outside the
// dataset yield an empty slice.
func PageSlice(records []model.Profile, page, size int) []model.Profile {
	if page < 1 || size <= 0 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(records) {
		return nil
	}
	end := min(start+size, len(records))
	return records[start:end]
}

// PageLabels builds the page selector. When totalPages fits within
// siblingCount+5 every page is listed; otherwise the first page, a window of
// siblingCount pages around currentPage and the last page are shown, with an
// ellipsis wherever pages are skipped.
func PageLabels(totalPages, currentPage, siblingCount int) []Label {
	if totalPages <= 0 {
		return nil
	}
	if totalPages <= siblingCount+boundaryLabels {
		labels := make([]Label, 0, totalPages)
		for p := 1; p <= totalPages; p++ {
			labels = append(labels, Label{Page: p})
		}
		return labels
	}

	start := max(2, currentPage-siblingCount)
	end := min(totalPages-1, currentPage+siblingCount)

	labels := []Label{{Page: 1}}
	if start > 2 {
		labels = append(labels, Label{Ellipsis: true})
	}
	for p := start; p <= end; p++ {
		labels = append(labels, Label{Page: p})
	}
	if end < totalPages-1 {
		labels = append(labels, Label{Ellipsis: true})
	}
	return append(labels, Label{Page: totalPages})
}
