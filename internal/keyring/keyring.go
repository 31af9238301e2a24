package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "pbecipher"

// SavePassword stores the passphrase of the store with the given ID
func SavePassword(storeID, password string) error {
	return keyring.Set(serviceName, storeID, password)
}

// GetPassword retrieves the passphrase of the store with the given ID
func GetPassword(storeID string) (string, error) {
	return keyring.Get(serviceName, storeID)
}

// DeletePassword removes a stored passphrase. Deleting a missing entry
// returns an error for which IsNotFound reports true.
func DeletePassword(storeID string) error {
	return keyring.Delete(serviceName, storeID)
}

// HasPassword reports whether a passphrase is stored for the store ID
func HasPassword(storeID string) bool {
	_, err := keyring.Get(serviceName, storeID)
	return err == nil
}

// IsNotFound reports whether err means the keyring holds no entry
func IsNotFound(err error) bool {
	return errors.Is(err, keyring.ErrNotFound)
}
