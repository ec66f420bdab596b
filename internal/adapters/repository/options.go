package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithJournal makes every write durable before it becomes visible and
// replays the journal on construction.
func WithJournal(j Journal) Option {
	return func(s *MemoryStore) {
		if j != nil {
			s.journal = j
		}
	}
}
