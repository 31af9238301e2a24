package storage

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")  // PBE params (salt, algorithm, iterations), timestamps - unencrypted
	SecretsBucket = []byte("secrets") // Named ciphertexts
	PrivateBucket = []byte("private") // Encrypted password check value
)

// Config keys
var (
	ConfigVersion    = []byte("version")
	ConfigCreated    = []byte("created")
	ConfigModified   = []byte("modified")
	ConfigSalt       = []byte("salt")
	ConfigAlgorithm  = []byte("algorithm")
	ConfigIterations = []byte("iterations")
	ConfigStoreID    = []byte("store_id")
)

var checkKey = []byte("check")

var ErrEntryNotFound = errors.New("entry not found")

// Storage provides BBolt-based storage for the secret store
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a store database
func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database. It is a no-op when a failed Compact left
// the database closed.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Initialize creates the bucket structure for a new store
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, SecretsBucket, PrivateBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// SetParams stores the PBE parameters. The passphrase is never stored.
func (s *Storage) SetParams(p Params) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		iters := make([]byte, 4)
		binary.BigEndian.PutUint32(iters, p.Iterations)
		if err := config.Put(ConfigSalt, []byte(p.Salt)); err != nil {
			return err
		}
		if err := config.Put(ConfigAlgorithm, []byte(p.Algorithm)); err != nil {
			return err
		}
		return config.Put(ConfigIterations, iters)
	})
}

// GetParams retrieves the PBE parameters
func (s *Storage) GetParams() (Params, error) {
	var p Params
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		salt := config.Get(ConfigSalt)
		if salt == nil {
			return fmt.Errorf("salt not found")
		}
		algorithm := config.Get(ConfigAlgorithm)
		if algorithm == nil {
			return fmt.Errorf("algorithm not found")
		}
		iters := config.Get(ConfigIterations)
		if len(iters) != 4 {
			return fmt.Errorf("iterations not found")
		}
		p = Params{
			Salt:       string(salt),
			Algorithm:  string(algorithm),
			Iterations: binary.BigEndian.Uint32(iters),
		}
		return nil
	})
	return p, err
}

// UpdateModified updates the last modified timestamp
func (s *Storage) UpdateModified() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		modified, _ := time.Now().MarshalBinary()
		return config.Put(ConfigModified, modified)
	})
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// GetStoreID retrieves the store ID from config bucket
func (s *Storage) GetStoreID() (string, error) {
	var storeID string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigStoreID)
		if data == nil {
			return fmt.Errorf("store_id not found")
		}
		storeID = string(data)
		return nil
	})
	return storeID, err
}

// GetOrCreateStoreID retrieves existing store ID or generates a new one
func (s *Storage) GetOrCreateStoreID() (string, error) {
	storeID, err := s.GetStoreID()
	if err == nil {
		return storeID, nil
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate store ID: %w", err)
	}
	storeID = hex.EncodeToString(b)

	err = s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		return config.Put(ConfigStoreID, []byte(storeID))
	})
	if err != nil {
		return "", err
	}

	return storeID, nil
}

// PutEntry creates or replaces a named secret. Created is preserved when the
// entry already exists.
func (s *Storage) PutEntry(name, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		secrets := tx.Bucket(SecretsBucket)
		if secrets == nil {
			return fmt.Errorf("secrets bucket not found")
		}

		now := time.Now()
		entry := Entry{Name: name, Value: value, Created: now, Modified: now}
		if existing := secrets.Get([]byte(name)); existing != nil {
			var old Entry
			if err := json.Unmarshal(existing, &old); err == nil {
				entry.Created = old.Created
			}
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return secrets.Put([]byte(name), data)
	})
}

// GetEntry returns a single named secret
func (s *Storage) GetEntry(name string) (*Entry, error) {
	var entry *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		secrets := tx.Bucket(SecretsBucket)
		if secrets == nil {
			return fmt.Errorf("secrets bucket not found")
		}
		data := secrets.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
		}
		entry = &Entry{}
		return json.Unmarshal(data, entry)
	})
	return entry, err
}

// DeleteEntry removes a named secret. It reports whether the entry existed.
func (s *Storage) DeleteEntry(name string) (bool, error) {
	var existed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		secrets := tx.Bucket(SecretsBucket)
		if secrets == nil {
			return fmt.Errorf("secrets bucket not found")
		}
		existed = secrets.Get([]byte(name)) != nil
		return secrets.Delete([]byte(name))
	})
	return existed, err
}

// ListEntries returns all secrets ordered by name
func (s *Storage) ListEntries() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		secrets := tx.Bucket(SecretsBucket)
		if secrets == nil {
			return fmt.Errorf("secrets bucket not found")
		}
		return secrets.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, err
}

// SetCheck stores the encrypted password check value
func (s *Storage) SetCheck(value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		private := tx.Bucket(PrivateBucket)
		if private == nil {
			return fmt.Errorf("private bucket not found")
		}
		return private.Put(checkKey, []byte(value))
	})
}

// GetCheck retrieves the encrypted password check value
func (s *Storage) GetCheck() (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		private := tx.Bucket(PrivateBucket)
		if private == nil {
			return fmt.Errorf("private bucket not found")
		}
		data := private.Get(checkKey)
		if data == nil {
			return fmt.Errorf("check value not found")
		}
		value = string(data)
		return nil
	})
	return value, err
}

// Rekey replaces the PBE parameters, the check value and the given secret
// values in a single transaction. Every name in values must already exist.
func (s *Storage) Rekey(p Params, check string, values map[string]string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		secrets := tx.Bucket(SecretsBucket)
		private := tx.Bucket(PrivateBucket)
		if config == nil || secrets == nil || private == nil {
			return fmt.Errorf("store buckets not found")
		}

		iters := make([]byte, 4)
		binary.BigEndian.PutUint32(iters, p.Iterations)
		if err := config.Put(ConfigSalt, []byte(p.Salt)); err != nil {
			return err
		}
		if err := config.Put(ConfigAlgorithm, []byte(p.Algorithm)); err != nil {
			return err
		}
		if err := config.Put(ConfigIterations, iters); err != nil {
			return err
		}
		if err := private.Put(checkKey, []byte(check)); err != nil {
			return err
		}

		for name, value := range values {
			data := secrets.Get([]byte(name))
			if data == nil {
				return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
			}
			var entry Entry
			if err := json.Unmarshal(data, &entry); err != nil {
				return err
			}
			entry.Value = value
			updated, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := secrets.Put([]byte(name), updated); err != nil {
				return err
			}
		}

		modified, _ := time.Now().MarshalBinary()
		return config.Put(ConfigModified, modified)
	})
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after deleting secrets to reclaim disk space.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// bolt.Compact copies every bucket in transactions of at most 64KiB.
	if err := bolt.Compact(dst, s.db, 65536); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}
	s.db = nil

	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	db, err := bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	s.db = db

	return nil
}
