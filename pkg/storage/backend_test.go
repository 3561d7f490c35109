package storage

import (
	"bytes"
	"testing"
)

// backendTestSuite runs the shared conformance tests against a Backend
// implementation.
func backendTestSuite(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Run("CreateBucket", func(t *testing.T) {
		backend := newBackend(t)

		if err := backend.CreateBucket([]byte("test")); err != nil {
			t.Fatalf("CreateBucket failed: %v", err)
		}

		exists, err := backend.BucketExists([]byte("test"))
		if err != nil {
			t.Fatalf("BucketExists failed: %v", err)
		}
		if !exists {
			t.Error("bucket should exist after creation")
		}

		if err := backend.CreateBucket([]byte("test")); err != nil {
			t.Errorf("CreateBucket should be idempotent: %v", err)
		}
	})

	t.Run("DeleteBucket", func(t *testing.T) {
		backend := newBackend(t)

		backend.CreateBucket([]byte("test"))
		if err := backend.DeleteBucket([]byte("test")); err != nil {
			t.Fatalf("DeleteBucket failed: %v", err)
		}

		exists, _ := backend.BucketExists([]byte("test"))
		if exists {
			t.Error("bucket should not exist after deletion")
		}

		if err := backend.DeleteBucket([]byte("test")); err != nil {
			t.Errorf("DeleteBucket should be idempotent: %v", err)
		}
	})

	t.Run("PutAndGet", func(t *testing.T) {
		backend := newBackend(t)

		backend.CreateBucket([]byte("test"))

		if err := backend.Put([]byte("test"), []byte("key1"), []byte("value1")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := backend.Get([]byte("test"), []byte("key1"))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, []byte("value1")) {
			t.Errorf("Get returned %s, want value1", got)
		}

		got, err = backend.Get([]byte("test"), []byte("missing"))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != nil {
			t.Errorf("Get should return nil for a missing key, got %s", got)
		}
	})

	t.Run("PutIntoMissingBucket", func(t *testing.T) {
		backend := newBackend(t)

		if err := backend.Put([]byte("nope"), []byte("k"), []byte("v")); err == nil {
			t.Error("Put into a missing bucket should fail")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		backend := newBackend(t)

		backend.CreateBucket([]byte("test"))
		backend.Put([]byte("test"), []byte("key1"), []byte("value1"))

		if err := backend.Delete([]byte("test"), []byte("key1")); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		got, _ := backend.Get([]byte("test"), []byte("key1"))
		if got != nil {
			t.Error("key should not exist after deletion")
		}
	})

	t.Run("ForEach", func(t *testing.T) {
		backend := newBackend(t)

		backend.CreateBucket([]byte("test"))

		expected := map[string]string{
			"key1": "value1",
			"key2": "value2",
			"key3": "value3",
		}
		for k, v := range expected {
			backend.Put([]byte("test"), []byte(k), []byte(v))
		}

		collected := make(map[string]string)
		err := backend.ForEach([]byte("test"), func(k, v []byte) error {
			collected[string(k)] = string(v)
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach failed: %v", err)
		}

		if len(collected) != len(expected) {
			t.Errorf("ForEach collected %d items, want %d", len(collected), len(expected))
		}
		for k, v := range expected {
			if collected[k] != v {
				t.Errorf("ForEach: key %s = %s, want %s", k, collected[k], v)
			}
		}
	})

	t.Run("Transactions", func(t *testing.T) {
		backend := newBackend(t)

		err := backend.Update(func(tx Transaction) error {
			if err := tx.CreateBucket([]byte("test")); err != nil {
				return err
			}
			b := tx.Bucket([]byte("test"))
			if b == nil {
				t.Fatal("bucket should not be nil")
			}
			return b.Put([]byte("key1"), []byte("value1"))
		})
		if err != nil {
			t.Fatalf("Update transaction failed: %v", err)
		}

		var gotValue []byte
		err = backend.View(func(tx Transaction) error {
			b := tx.Bucket([]byte("test"))
			if b == nil {
				t.Fatal("bucket should not be nil")
			}
			gotValue = b.Get([]byte("key1"))
			return nil
		})
		if err != nil {
			t.Fatalf("View transaction failed: %v", err)
		}
		if !bytes.Equal(gotValue, []byte("value1")) {
			t.Errorf("got %s, want value1", gotValue)
		}
	})

	t.Run("ForEachBucket", func(t *testing.T) {
		backend := newBackend(t)

		buckets := []string{"bucket1", "bucket2", "bucket3"}
		for _, name := range buckets {
			backend.CreateBucket([]byte(name))
		}

		var collected []string
		err := backend.View(func(tx Transaction) error {
			return tx.ForEachBucket(func(name []byte) error {
				collected = append(collected, string(name))
				return nil
			})
		})
		if err != nil {
			t.Fatalf("ForEachBucket failed: %v", err)
		}

		if len(collected) != len(buckets) {
			t.Errorf("ForEachBucket found %d buckets, want %d", len(collected), len(buckets))
		}
	})
}
