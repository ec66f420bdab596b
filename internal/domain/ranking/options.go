package ranking

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLimit sets how many entries a ranking keeps.
func WithLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.limit = limit
		}
	}
}
