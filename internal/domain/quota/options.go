package quota

// Option applies a configuration option to the Guard.
type Option func(*Guard)

// WithLimit sets the number of accepted submissions per participant and task.
func WithLimit(limit int) Option {
	return func(g *Guard) {
		if limit > 0 {
			g.limit = limit
		}
	}
}
