// Package storage defines the persistent key/value backends the account
// store can run on. Keys and values are opaque byte strings.
package storage

// KV is a flat byte-string keyed store.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(key []byte) ([]byte, bool, error)

	Set(key, value []byte) error

	Delete(key []byte) error

	// NewBatch starts a write batch; all puts/deletes land atomically on Write.
	NewBatch() Batch

	Close() error
}

// Batch collects writes to be applied atomically.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Write() error
}
