package table

import (
	"fmt"
	"slices"

	"github.com/okian/profiles/internal/domain/model"
)

// View owns a received dataset and the state of its table: sort order and
// current page. The sorted projection is rebuilt whenever the dataset or the
// order changes, and the page then resets to 1.
//
// View is not safe for concurrent use; callers serialize access.
type View struct {
	records []model.Profile
	sorted  []model.Profile

	order        Order
	page         int
	pageSize     int
	siblingCount int
}

// Snapshot is a copy of everything needed to render the table.
type Snapshot struct {
	Rows       []model.Profile `json:"rows"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	Labels     []Label         `json:"labels"`
	Order      Order           `json:"order"`
}

// NewView creates an empty view sorted descending on page 1.
func NewView(opts ...Option) *View {
	v := &View{
		order:        Descending,
		page:         1,
		pageSize:     DefaultPageSize,
		siblingCount: DefaultSiblingCount,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetRecords replaces the dataset.
func (v *View) SetRecords(records []model.Profile) {
	v.records = slices.Clone(records)
	v.rebuild()
}

// ToggleSort flips the order and returns the new one.
func (v *View) ToggleSort() Order {
	v.order = v.order.Toggle()
	v.rebuild()
	return v.order
}

// SetOrder switches to order. Setting the current order is a no-op.
func (v *View) SetOrder(order Order) error {
	if !order.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOrder, order)
	}
	if order == v.order {
		return nil
	}
	v.order = order
	v.rebuild()
	return nil
}

// SetPage selects a page in 1..TotalPages.
func (v *View) SetPage(page int) error {
	if page < 1 || page > v.TotalPages() {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, v.TotalPages())
	}
	v.page = page
	return nil
}

func (v *View) rebuild() {
	v.sorted = SortProfiles(v.records, v.order)
	v.page = 1
}

// Order returns the current sort order.
func (v *View) Order() Order { return v.order }

// Page returns the current 1-based page.
func (v *View) Page() int { return v.page }

// PageSize returns the number of rows per page.
func (v *View) PageSize() int { return v.pageSize }

// Len returns the number of records.
func (v *View) Len() int { return len(v.sorted) }

// TotalPages returns ceil(Len / PageSize).
func (v *View) TotalPages() int { return TotalPages(len(v.sorted), v.pageSize) }

// Sorted returns a copy of the whole dataset in display order.
func (v *View) Sorted() []model.Profile { return slices.Clone(v.sorted) }

// Rows returns a copy of the current page.
func (v *View) Rows() []model.Profile {
	return slices.Clone(PageSlice(v.sorted, v.page, v.pageSize))
}

// Labels returns the page selector for the current page.
func (v *View) Labels() []Label {
	return PageLabels(v.TotalPages(), v.page, v.siblingCount)
}

// Snapshot copies the render state.
func (v *View) Snapshot() Snapshot {
	return Snapshot{
		Rows:       v.Rows(),
		Total:      v.Len(),
		Page:       v.page,
		TotalPages: v.TotalPages(),
		Labels:     v.Labels(),
		Order:      v.order,
	}
}
