// Package snapshot provides the durable key-value store backing the dataset
// cache across restarts.
package snapshot

// Store is a minimal key-value persistence API. Get reports whether the key
// existed; a missing key is not an error.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}
