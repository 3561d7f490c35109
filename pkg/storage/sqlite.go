package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteBackend stores buckets as rows in a single SQLite file. Unlike
// bbolt it tolerates concurrent readers from other processes, which
// makes it the better choice for inspecting master state with external
// tooling while the master runs.
type SQLiteBackend struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS buckets (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS kv (
	bucket TEXT NOT NULL,
	key    BLOB NOT NULL,
	value  BLOB NOT NULL,
	PRIMARY KEY (bucket, key)
);
`

func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// modernc.org/sqlite serializes writes itself; a single connection
	// avoids SQLITE_BUSY on concurrent updates.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing sqlite schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (s *SQLiteBackend) CreateBucket(name []byte) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO buckets (name) VALUES (?)`, string(name))
	return err
}

func (s *SQLiteBackend) DeleteBucket(name []byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM kv WHERE bucket = ?`, string(name)); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM buckets WHERE name = ?`, string(name)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteBackend) BucketExists(name []byte) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM buckets WHERE name = ?`, string(name)).Scan(&n)
	return n > 0, err
}

func (s *SQLiteBackend) Put(bucket, key, value []byte) error {
	exists, err := s.BucketExists(bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket not found: %s", bucket)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO kv (bucket, key, value) VALUES (?, ?, ?)`,
		string(bucket), key, value,
	)
	return err
}

func (s *SQLiteBackend) Get(bucket, key []byte) ([]byte, error) {
	exists, err := s.BucketExists(bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("bucket not found: %s", bucket)
	}

	var value []byte
	err = s.db.QueryRow(
		`SELECT value FROM kv WHERE bucket = ? AND key = ?`,
		string(bucket), key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *SQLiteBackend) Delete(bucket, key []byte) error {
	exists, err := s.BucketExists(bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket not found: %s", bucket)
	}
	_, err = s.db.Exec(`DELETE FROM kv WHERE bucket = ? AND key = ?`, string(bucket), key)
	return err
}

func (s *SQLiteBackend) ForEach(bucket []byte, fn func(k, v []byte) error) error {
	exists, err := s.BucketExists(bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket not found: %s", bucket)
	}

	rows, err := s.db.Query(`SELECT key, value FROM kv WHERE bucket = ?`, string(bucket))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Update runs fn and commits its operations in one SQLite transaction.
func (s *SQLiteBackend) Update(fn func(tx Transaction) error) error {
	sqlTx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer sqlTx.Rollback()

	if err := fn(&sqliteTransaction{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (s *SQLiteBackend) View(fn func(tx Transaction) error) error {
	sqlTx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer sqlTx.Rollback()

	return fn(&sqliteTransaction{tx: sqlTx})
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

type sqliteTransaction struct {
	tx *sql.Tx
}

func (t *sqliteTransaction) CreateBucket(name []byte) error {
	_, err := t.tx.Exec(`INSERT OR IGNORE INTO buckets (name) VALUES (?)`, string(name))
	return err
}

func (t *sqliteTransaction) DeleteBucket(name []byte) error {
	if _, err := t.tx.Exec(`DELETE FROM kv WHERE bucket = ?`, string(name)); err != nil {
		return err
	}
	_, err := t.tx.Exec(`DELETE FROM buckets WHERE name = ?`, string(name))
	return err
}

func (t *sqliteTransaction) Bucket(name []byte) Bucket {
	var n int
	if err := t.tx.QueryRow(`SELECT COUNT(*) FROM buckets WHERE name = ?`, string(name)).Scan(&n); err != nil || n == 0 {
		return nil
	}
	return &sqliteBucket{tx: t.tx, name: string(name)}
}

func (t *sqliteTransaction) ForEachBucket(fn func(name []byte) error) error {
	rows, err := t.tx.Query(`SELECT name FROM buckets`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if err := fn([]byte(name)); err != nil {
			return err
		}
	}
	return rows.Err()
}

type sqliteBucket struct {
	tx   *sql.Tx
	name string
}

func (b *sqliteBucket) Put(key, value []byte) error {
	_, err := b.tx.Exec(
		`INSERT OR REPLACE INTO kv (bucket, key, value) VALUES (?, ?, ?)`,
		b.name, key, value,
	)
	return err
}

func (b *sqliteBucket) Get(key []byte) []byte {
	var value []byte
	err := b.tx.QueryRow(
		`SELECT value FROM kv WHERE bucket = ? AND key = ?`, b.name, key,
	).Scan(&value)
	if err != nil {
		return nil
	}
	return value
}

func (b *sqliteBucket) Delete(key []byte) error {
	_, err := b.tx.Exec(`DELETE FROM kv WHERE bucket = ? AND key = ?`, b.name, key)
	return err
}

func (b *sqliteBucket) ForEach(fn func(k, v []byte) error) error {
	rows, err := b.tx.Query(`SELECT key, value FROM kv WHERE bucket = ?`, b.name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return rows.Err()
}
