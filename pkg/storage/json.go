package storage

import (
	"encoding/json"
	"fmt"
)

// JSONStore layers JSON encoding over a Backend for callers that persist
// structured records.
type JSONStore struct {
	backend Backend
}

func NewJSONStore(backend Backend) *JSONStore {
	return &JSONStore{backend: backend}
}

// Backend returns the underlying backend.
func (j *JSONStore) Backend() Backend {
	return j.backend
}

// PutJSON stores the JSON encoding of v under key.
func (j *JSONStore) PutJSON(bucket, key []byte, v any) error {
	data, err := EncodeJSON(v)
	if err != nil {
		return err
	}
	return j.backend.Put(bucket, key, data)
}

// GetJSON decodes the value stored under key into v. A missing key
// leaves v untouched and returns nil.
func (j *JSONStore) GetJSON(bucket, key []byte, v any) error {
	data, err := j.backend.Get(bucket, key)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	return DecodeJSON(data, v)
}

// ForEach iterates the raw key-value pairs of a bucket.
func (j *JSONStore) ForEach(bucket []byte, fn func(k, v []byte) error) error {
	return j.backend.ForEach(bucket, fn)
}

// CreateBucket creates a bucket on the underlying backend.
func (j *JSONStore) CreateBucket(name []byte) error {
	return j.backend.CreateBucket(name)
}

// DeleteBucket deletes a bucket on the underlying backend.
func (j *JSONStore) DeleteBucket(name []byte) error {
	return j.backend.DeleteBucket(name)
}

// Delete removes a key from a bucket.
func (j *JSONStore) Delete(bucket, key []byte) error {
	return j.backend.Delete(bucket, key)
}

// Close closes the underlying backend.
func (j *JSONStore) Close() error {
	return j.backend.Close()
}

// EncodeJSON marshals v to JSON bytes.
func EncodeJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return data, nil
}

// DecodeJSON unmarshals JSON bytes into v.
func DecodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding JSON: %w", err)
	}
	return nil
}
