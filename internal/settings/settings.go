// Package settings persists the user's chat configuration in a small
// key-value store: the API key and the provider selection, read at startup
// and written on every change.
package settings

import (
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

const (
	bucketName  = "settings"
	keyAPIKey   = "api_key"
	keyProvider = "provider"
)

// Settings holds the two persisted values. The key is stored as-is; there is
// no encryption and no expiry.
type Settings struct {
	APIKey   string `json:"api_key"`
	Provider string `json:"provider"`
}

// Store is a bolt-backed settings store.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the settings database at the given path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open settings db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the persisted settings. Missing keys come back as empty strings.
func (s *Store) Load() (Settings, error) {
	var result Settings
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return nil
		}
		result.APIKey = string(bucket.Get([]byte(keyAPIKey)))
		result.Provider = string(bucket.Get([]byte(keyProvider)))
		return nil
	})
	return result, err
}

// Save writes both settings values.
func (s *Store) Save(settings Settings) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(keyAPIKey), []byte(settings.APIKey)); err != nil {
			return err
		}
		return bucket.Put([]byte(keyProvider), []byte(settings.Provider))
	})
}
