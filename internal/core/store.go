package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/illarion/pbecipher/internal/crypto"
	"github.com/illarion/pbecipher/internal/storage"
	"github.com/illarion/pbecipher/pkg/pbe"
	"github.com/sirupsen/logrus"
)

const (
	StoreFile         = ".pbecipher"
	DefaultAlgorithm  = "PBEWithMD5AndDES"
	DefaultIterations = 1000
	checkString       = "pbecipher-password-check"
)

var (
	ErrNotInitialized   = errors.New("pbecipher store not initialized")
	ErrAlreadyExists    = errors.New("pbecipher store already exists")
	ErrWrongPassword    = errors.New("wrong password")
	ErrPasswordRequired = errors.New("password required")
	ErrSecretNotFound   = errors.New("secret not found")
	ErrInvalidName      = errors.New("invalid secret name")
)

// Store manages named secrets encrypted with a PBE service whose parameters
// live in the store file.
type Store struct {
	path   string
	logger logrus.FieldLogger
}

// New creates a Store for the database file at path. The file is not opened
// until an operation needs it.
func New(path string, logger logrus.FieldLogger) *Store {
	if path == "" {
		path = StoreFile
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the store file path
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the store file is present
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *Store) open() (*storage.Storage, error) {
	if !s.Exists() {
		return nil, ErrNotInitialized
	}
	db, err := storage.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}
	initialized, err := db.IsInitialized()
	if err == nil && !initialized {
		err = fmt.Errorf("%w: %s has no pbecipher data", ErrNotInitialized, s.path)
	}
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Init creates a new store. Empty fields of params get defaults; an empty
// salt is replaced by 8 random alphanumeric characters.
func (s *Store) Init(password []byte, params storage.Params) error {
	if s.Exists() {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, s.path)
	}
	if password == nil {
		return ErrPasswordRequired
	}

	if params.Salt == "" {
		salt, err := crypto.RandomSalt(pbe.SaltSize)
		if err != nil {
			return err
		}
		params.Salt = salt
	}
	if params.Algorithm == "" {
		params.Algorithm = DefaultAlgorithm
	}
	if params.Iterations == 0 {
		params.Iterations = DefaultIterations
	}

	// Validate the parameters before anything is written
	svc, err := s.newService(password, params)
	if err != nil {
		return err
	}
	defer svc.Destroy()

	check, err := svc.Encrypt(checkString)
	if err != nil {
		return fmt.Errorf("failed to encrypt check value: %w", err)
	}

	db, err := storage.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	if err := initialize(db, params, check); err != nil {
		db.Close()
		os.Remove(s.path)
		return err
	}

	return db.Close()
}

func initialize(db *storage.Storage, params storage.Params, check string) error {
	if err := db.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.SetParams(params); err != nil {
		return fmt.Errorf("failed to store parameters: %w", err)
	}
	if err := db.SetCheck(check); err != nil {
		return fmt.Errorf("failed to store check value: %w", err)
	}
	if _, err := db.GetOrCreateStoreID(); err != nil {
		return fmt.Errorf("failed to create store ID: %w", err)
	}
	return nil
}

func (s *Store) newService(password []byte, params storage.Params) (*pbe.Service, error) {
	return pbe.New(params.Salt, params.Algorithm, string(password), int(params.Iterations), pbe.WithLogger(s.logger))
}

// unlock opens the database and returns a service verified against the
// stored check value. The caller closes db and destroys svc.
func (s *Store) unlock(password []byte) (*storage.Storage, *pbe.Service, error) {
	if password == nil {
		return nil, nil, ErrPasswordRequired
	}

	db, err := s.open()
	if err != nil {
		return nil, nil, err
	}

	params, err := db.GetParams()
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to read parameters: %w", err)
	}

	svc, err := s.newService(password, params)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	check, err := db.GetCheck()
	if err != nil {
		svc.Destroy()
		db.Close()
		return nil, nil, ErrWrongPassword
	}

	plain, err := svc.Decrypt(check)
	if err != nil || !crypto.ConstantTimeCompare([]byte(plain), []byte(checkString)) {
		svc.Destroy()
		db.Close()
		return nil, nil, ErrWrongPassword
	}

	return db, svc, nil
}

// Service returns the store's PBE service after verifying the password.
// The caller should Destroy it when done.
func (s *Store) Service(password []byte) (*pbe.Service, error) {
	db, svc, err := s.unlock(password)
	if err != nil {
		return nil, err
	}
	db.Close()
	return svc, nil
}

// VerifyPassword checks if the password is correct for this store
func (s *Store) VerifyPassword(password []byte) error {
	svc, err := s.Service(password)
	if err != nil {
		return err
	}
	svc.Destroy()
	return nil
}

// Params returns the store's PBE parameters (no password required)
func (s *Store) Params() (storage.Params, error) {
	db, err := s.open()
	if err != nil {
		return storage.Params{}, err
	}
	defer db.Close()
	return db.GetParams()
}

// ValidateName rejects empty names and names containing whitespace or
// control characters.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.IndexFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidName, name)
	}
	return nil
}

// Set encrypts value and stores it under name, replacing any previous value.
func (s *Store) Set(ctx context.Context, password []byte, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}

	db, svc, err := s.unlock(password)
	if err != nil {
		return err
	}
	defer db.Close()
	defer svc.Destroy()

	encrypted, err := svc.Encrypt(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", name, err)
	}

	if err := db.PutEntry(name, encrypted); err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}

	if err := db.UpdateModified(); err != nil {
		s.logger.WithError(err).Warn("failed to update modification time")
	}
	return nil
}

// Get decrypts the secret stored under name.
func (s *Store) Get(ctx context.Context, password []byte, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	db, svc, err := s.unlock(password)
	if err != nil {
		return "", err
	}
	defer db.Close()
	defer svc.Destroy()

	entry, err := db.GetEntry(name)
	if err != nil {
		if errors.Is(err, storage.ErrEntryNotFound) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", err
	}

	value, err := svc.Decrypt(entry.Value)
	if err != nil {
		return "", fmt.Errorf("cannot decrypt %s: %w", name, err)
	}
	return value, nil
}

// Remove deletes the named secrets and compacts the database if anything was
// removed. Names that do not exist are reported back in missing.
func (s *Store) Remove(ctx context.Context, password []byte, names []string) (removed, missing []string, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	db, svc, err := s.unlock(password)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()
	svc.Destroy()

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return removed, missing, err
		}
		existed, err := db.DeleteEntry(name)
		if err != nil {
			return removed, missing, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		if existed {
			removed = append(removed, name)
		} else {
			missing = append(missing, name)
		}
	}

	if len(removed) == 0 {
		return removed, missing, nil
	}

	if err := db.UpdateModified(); err != nil {
		s.logger.WithError(err).Warn("failed to update modification time")
	}
	if err := db.Compact(); err != nil {
		s.logger.WithError(err).Warn("failed to compact database")
	}
	return removed, missing, nil
}

// ChangePassword re-encrypts every secret under newPassword. A fresh random
// salt is generated unless params.Salt is set; an empty algorithm or zero
// iteration count keeps the current value. All changes are committed in one
// transaction.
func (s *Store) ChangePassword(ctx context.Context, currentPassword, newPassword []byte, params storage.Params) error {
	if newPassword == nil {
		return ErrPasswordRequired
	}

	db, current, err := s.unlock(currentPassword)
	if err != nil {
		return err
	}
	defer db.Close()
	defer current.Destroy()

	old, err := db.GetParams()
	if err != nil {
		return fmt.Errorf("failed to read parameters: %w", err)
	}
	if params.Salt == "" {
		if params.Salt, err = crypto.RandomSalt(pbe.SaltSize); err != nil {
			return err
		}
	}
	if params.Algorithm == "" {
		params.Algorithm = old.Algorithm
	}
	if params.Iterations == 0 {
		params.Iterations = old.Iterations
	}

	next, err := s.newService(newPassword, params)
	if err != nil {
		return err
	}
	defer next.Destroy()

	entries, err := db.ListEntries()
	if err != nil {
		return fmt.Errorf("failed to list secrets: %w", err)
	}

	values := make(map[string]string, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		plain, err := current.Decrypt(entry.Value)
		if err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", entry.Name, err)
		}
		values[entry.Name], err = next.Encrypt(plain)
		if err != nil {
			return fmt.Errorf("failed to re-encrypt %s: %w", entry.Name, err)
		}
	}

	check, err := next.Encrypt(checkString)
	if err != nil {
		return fmt.Errorf("failed to encrypt check value: %w", err)
	}

	if err := db.Rekey(params, check, values); err != nil {
		return fmt.Errorf("failed to store re-encrypted secrets: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"algorithm":  params.Algorithm,
		"iterations": params.Iterations,
		"secrets":    len(values),
	}).Debug("store re-encrypted")

	if err := db.Compact(); err != nil {
		s.logger.WithError(err).Warn("failed to compact database")
	}
	return nil
}

// List returns the stored secrets without decrypting them (no password
// required).
func (s *Store) List(ctx context.Context) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.ListEntries()
}

// StatusInfo contains status information
type StatusInfo struct {
	Path         string
	Size         int64
	Params       storage.Params
	StoreID      string
	SecretCount  int
	LastModified time.Time
	Secrets      []storage.Entry
}

// Status returns the current status (no password required)
func (s *Store) Status(ctx context.Context) (*StatusInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, ErrNotInitialized
	}

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	params, err := db.GetParams()
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters: %w", err)
	}

	entries, err := db.ListEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}

	status := &StatusInfo{
		Path:        s.path,
		Size:        info.Size(),
		Params:      params,
		SecretCount: len(entries),
		Secrets:     entries,
	}

	if modified, err := db.GetModified(); err == nil {
		status.LastModified = modified
	}
	if id, err := db.GetStoreID(); err == nil {
		status.StoreID = id
	}

	return status, nil
}

// Compact compacts the database to reclaim unused space.
func (s *Store) Compact() error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Compact()
}

// GetStoreID retrieves the store ID from storage
func (s *Store) GetStoreID() (string, error) {
	db, err := s.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.GetStoreID()
}

// GetOrCreateStoreID retrieves existing store ID or generates a new one
func (s *Store) GetOrCreateStoreID() (string, error) {
	db, err := s.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.GetOrCreateStoreID()
}
