// Package storage is the key-value substrate behind history and credentials.
package storage

// KV is a string key-value port with local-storage semantics.
// Get reports whether the key exists; Remove of an absent key is not an error.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}
