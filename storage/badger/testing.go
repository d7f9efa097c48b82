package badger

// NewMemoryStore creates an in-memory document store for testing.
// Caller must close the store when done.
func NewMemoryStore(opts ...Option) (*DocumentStore, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	s := NewDocumentStore(backend, opts...)
	s.ownsBackend = true
	return s, nil
}
