package storage

import "testing"

type jobRecord struct {
	ID      string  `json:"id"`
	Average float64 `json:"average"`
}

func TestJSONStore(t *testing.T) {
	t.Run("PutAndGetJSON", func(t *testing.T) {
		store := NewJSONStore(NewMemoryBackend())
		defer store.Close()

		if err := store.CreateBucket([]byte("jobs")); err != nil {
			t.Fatalf("CreateBucket failed: %v", err)
		}

		original := jobRecord{ID: "job-1", Average: 33.33}
		if err := store.PutJSON([]byte("jobs"), []byte("job-1"), original); err != nil {
			t.Fatalf("PutJSON failed: %v", err)
		}

		var got jobRecord
		if err := store.GetJSON([]byte("jobs"), []byte("job-1"), &got); err != nil {
			t.Fatalf("GetJSON failed: %v", err)
		}
		if got != original {
			t.Errorf("got %+v, want %+v", got, original)
		}
	})

	t.Run("GetJSONMissingKey", func(t *testing.T) {
		store := NewJSONStore(NewMemoryBackend())
		defer store.Close()

		store.CreateBucket([]byte("jobs"))

		var got jobRecord
		if err := store.GetJSON([]byte("jobs"), []byte("missing"), &got); err != nil {
			t.Errorf("GetJSON should not error for a missing key: %v", err)
		}
		if got != (jobRecord{}) {
			t.Errorf("got %+v, want zero value", got)
		}
	})

	t.Run("PutJSONUnencodable", func(t *testing.T) {
		store := NewJSONStore(NewMemoryBackend())
		defer store.Close()

		store.CreateBucket([]byte("jobs"))

		if err := store.PutJSON([]byte("jobs"), []byte("bad"), func() {}); err == nil {
			t.Error("PutJSON should fail for an unencodable value")
		}
	})
}

func TestEncodeDecodeJSON(t *testing.T) {
	data, err := EncodeJSON(jobRecord{ID: "job-2", Average: 0})
	if err != nil {
		t.Fatalf("EncodeJSON failed: %v", err)
	}

	var got jobRecord
	if err := DecodeJSON(data, &got); err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if got.ID != "job-2" {
		t.Errorf("got %+v", got)
	}

	if err := DecodeJSON([]byte("{not json"), &got); err == nil {
		t.Error("DecodeJSON should fail on malformed input")
	}
}
