package pbe

import (
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"sync/atomic"
	"unicode/utf8"

	"github.com/illarion/pbecipher/internal/crypto"
	"github.com/sirupsen/logrus"
)

// SaltSize is the required salt length in bytes, after UTF-8 encoding.
const SaltSize = 8

// Service encrypts and decrypts short strings with a key derived once from
// a passphrase. The derived material is read-only after New returns, so a
// Service may be shared between goroutines. Each Encrypt and Decrypt call
// builds its own cipher state.
type Service struct {
	scheme     *scheme
	salt       []byte
	iterations int
	key        []byte
	iv         []byte
	logger     logrus.FieldLogger
	destroyed  atomic.Bool
}

// Option configures a Service in New.
type Option func(*Service)

// WithLogger sets the logger used to report key derivation failures.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New derives the secret key for algorithm from encryptionKey, salt and
// iterations. All errors are *ConfigurationError.
func New(salt, algorithm, encryptionKey string, iterations int, opts ...Option) (*Service, error) {
	s := &Service{
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if salt == "" || algorithm == "" || encryptionKey == "" {
		return nil, &ConfigurationError{Kind: ErrRequiredProperties}
	}

	saltBytes := []byte(salt)
	if len(saltBytes) != SaltSize {
		return nil, &ConfigurationError{
			Kind:   ErrSaltLength,
			Detail: fmt.Sprintf("found %d", len(saltBytes)),
		}
	}

	sch, key, iv, err := derive(saltBytes, algorithm, encryptionKey, iterations)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"algorithm":  algorithm,
			"iterations": iterations,
		}).Error("Error while creating secret key")
		return nil, &ConfigurationError{Kind: ErrAlgorithmUnavailable}
	}

	s.scheme = sch
	s.salt = saltBytes
	s.iterations = iterations
	s.key = key
	s.iv = iv
	return s, nil
}

func derive(salt []byte, algorithm, encryptionKey string, iterations int) (*scheme, []byte, []byte, error) {
	sch, err := lookup(algorithm)
	if err != nil {
		return nil, nil, nil, err
	}
	key, iv, err := sch.derive(encryptionKey, salt, iterations)
	if err != nil {
		return nil, nil, nil, err
	}
	// Reject key material the cipher cannot use before the first call does.
	if _, err := sch.block(key); err != nil {
		crypto.ClearBytes(key)
		return nil, nil, nil, err
	}
	return sch, key, iv, nil
}

// Algorithm returns the canonical name of the service's algorithm.
func (s *Service) Algorithm() string {
	return s.scheme.name
}

// Iterations returns the key derivation iteration count.
func (s *Service) Iterations() int {
	return s.iterations
}

// Encrypt encrypts clearText and returns the ciphertext as standard, padded
// Base64.
func (s *Service) Encrypt(clearText string) (string, error) {
	plaintext := []byte(clearText)
	defer crypto.ClearBytes(plaintext)

	out, err := s.encrypt(plaintext)
	if err != nil {
		return "", &CipherError{Op: "encrypt", Err: err}
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Malformed Base64, ciphertext of the wrong length,
// bad padding and non UTF-8 output are all reported as *CipherError.
func (s *Service) Decrypt(encryptedText string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encryptedText)
	if err != nil {
		return "", &CipherError{Op: "decrypt", Err: err}
	}

	plaintext, err := s.decrypt(data)
	if err != nil {
		return "", &CipherError{Op: "decrypt", Err: err}
	}
	defer crypto.ClearBytes(plaintext)

	if !utf8.Valid(plaintext) {
		return "", &CipherError{Op: "decrypt", Err: ErrInvalidUTF8}
	}
	return string(plaintext), nil
}

// Destroy zeroes the derived key material. Later Encrypt and Decrypt calls
// fail with ErrDestroyed. Destroy must not run concurrently with them.
func (s *Service) Destroy() {
	if s.destroyed.Swap(true) {
		return
	}
	crypto.ClearBytes(s.key)
	crypto.ClearBytes(s.iv)
}

func (s *Service) newBlock() (cipher.Block, error) {
	if s.destroyed.Load() {
		return nil, ErrDestroyed
	}
	return s.scheme.block(s.key)
}

func (s *Service) encrypt(plaintext []byte) ([]byte, error) {
	block, err := s.newBlock()
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()

	iv := s.iv
	var prefix []byte
	if s.scheme.randomIV {
		iv, err = crypto.GenerateRandom(bs)
		if err != nil {
			return nil, err
		}
		prefix = iv
	}

	padded := crypto.Pad(plaintext, bs)
	defer crypto.ClearBytes(padded)

	out := make([]byte, len(prefix)+len(padded))
	copy(out, prefix)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[len(prefix):], padded)
	return out, nil
}

func (s *Service) decrypt(data []byte) ([]byte, error) {
	block, err := s.newBlock()
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()

	iv := s.iv
	if s.scheme.randomIV {
		if len(data) < 2*bs {
			return nil, ErrCiphertextTooShort
		}
		iv, data = data[:bs], data[bs:]
	}
	if len(data) == 0 || len(data)%bs != 0 {
		return nil, fmt.Errorf("%w: input length %d is not a multiple of %d", crypto.ErrInvalidPadding, len(data), bs)
	}

	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)

	unpadded, err := crypto.Unpad(plain, bs)
	if err != nil {
		crypto.ClearBytes(plain)
		return nil, err
	}
	return unpadded, nil
}
