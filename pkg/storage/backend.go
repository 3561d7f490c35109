// Package storage provides a bucketed key-value abstraction with
// in-memory, bbolt and SQLite implementations. Values are raw bytes;
// callers pick their own encoding.
package storage

// Backend is a bucketed key-value store. Bucket creation and deletion
// are idempotent; Get returns nil for a missing key.
type Backend interface {
	CreateBucket(name []byte) error
	DeleteBucket(name []byte) error
	BucketExists(name []byte) (bool, error)

	Put(bucket, key, value []byte) error
	Get(bucket, key []byte) ([]byte, error)
	Delete(bucket, key []byte) error

	ForEach(bucket []byte, fn func(k, v []byte) error) error

	Update(fn func(tx Transaction) error) error
	View(fn func(tx Transaction) error) error

	Close() error
}

// Transaction groups bucket operations. For backends without native
// transactions the grouping is advisory only.
type Transaction interface {
	CreateBucket(name []byte) error
	DeleteBucket(name []byte) error
	Bucket(name []byte) Bucket
	ForEachBucket(fn func(name []byte) error) error
}

// Bucket is a single bucket within a transaction. Get returns nil for a
// missing key.
type Bucket interface {
	Put(key, value []byte) error
	Get(key []byte) []byte
	Delete(key []byte) error
	ForEach(fn func(k, v []byte) error) error
}

// PutString stores a value under a string key.
func PutString(b Backend, bucket []byte, key string, value []byte) error {
	return b.Put(bucket, []byte(key), value)
}

// GetString retrieves a value stored under a string key.
func GetString(b Backend, bucket []byte, key string) ([]byte, error) {
	return b.Get(bucket, []byte(key))
}

// DeleteString removes a value stored under a string key.
func DeleteString(b Backend, bucket []byte, key string) error {
	return b.Delete(bucket, []byte(key))
}
