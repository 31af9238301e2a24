package pbe

import (
	"errors"
	"fmt"
)

// Configuration failures, reported as the Kind of a ConfigurationError.
var (
	// ErrRequiredProperties means salt, algorithm or passphrase is empty.
	ErrRequiredProperties = errors.New("required properties not set - need salt, algorithm and encryption key")
	// ErrSaltLength means the salt is not SaltSize bytes in UTF-8.
	ErrSaltLength = errors.New("salt must be 8 bytes when represented in UTF-8")
	// ErrAlgorithmUnavailable means no key could be derived for the
	// algorithm and parameters. The cause is logged, not returned.
	ErrAlgorithmUnavailable = errors.New("encryption requested not available")
)

// Cipher failures, wrapped in a CipherError.
var (
	// ErrDestroyed is returned by Encrypt and Decrypt after Destroy.
	ErrDestroyed = errors.New("service key material has been destroyed")
	// ErrInvalidUTF8 means the decrypted bytes are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("decrypted text is not valid UTF-8")
	// ErrCiphertextTooShort means the input cannot hold an IV and a block.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// ConfigurationError is returned by New when a service cannot be built.
// Kind is one of ErrRequiredProperties, ErrSaltLength or
// ErrAlgorithmUnavailable.
type ConfigurationError struct {
	Kind   error
	Detail string
}

func (e *ConfigurationError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s, %s", e.Kind, e.Detail)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Kind
}

// CipherError is returned by Encrypt and Decrypt and wraps the failure that
// caused it.
type CipherError struct {
	Op  string
	Err error
}

func (e *CipherError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *CipherError) Unwrap() error {
	return e.Err
}
