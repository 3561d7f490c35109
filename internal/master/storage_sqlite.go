package master

import (
	"log"

	"pkg.jsn.cam/sentireduce/pkg/storage"
)

// NewSQLiteStorage creates a new SQLite-backed storage
func NewSQLiteStorage(dbPath string) (Storage, error) {
	backend, err := storage.NewSQLiteBackend(dbPath)
	if err != nil {
		return nil, err
	}

	log.Printf("[STORAGE] SQLite storage initialized at %s", dbPath)

	return NewMasterStorage(backend)
}
