package table

// Option applies a configuration option to the View.
type Option func(*View)

// WithPageSize sets the number of rows per page.
func WithPageSize(size int) Option {
	return func(v *View) {
		if size > 0 {
			v.pageSize = size
		}
	}
}

// WithSiblingCount sets how many page numbers are shown on each side of the current page.
func WithSiblingCount(count int) Option {
	return func(v *View) {
		if count >= 0 {
			v.siblingCount = count
		}
	}
}

// WithOrder sets the initial sort order.
func WithOrder(order Order) Option {
	return func(v *View) {
		if order.Valid() {
			v.order = order
		}
	}
}
