package badger

// Key prefixes for different data types
const (
	documentPrefix = "doc:"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id string) []byte {
	return []byte(documentPrefix + id)
}

