package sessionstore

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithCapacity sets the maximum number of sessions kept in memory.
// If capacity > 0: bounded mode, oldest session evicted first.
// If capacity <= 0: unbounded mode.
func WithCapacity(capacity int) Option {
	return func(s *Store) {
		s.capacity = capacity
	}
}
