package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/pbecipher/internal/core"
	"github.com/illarion/pbecipher/internal/crypto"
	"github.com/illarion/pbecipher/internal/keyring"
)

// KeyringSave verifies the password and saves it to the OS keyring
func (a *App) KeyringSave() {
	store := a.store()
	if !store.Exists() {
		HandleError(core.ErrNotInitialized)
	}

	password := a.envPassword()
	if password == nil {
		var err error
		if password, err = core.ReadPassword("Enter password: "); err != nil {
			HandleError(err)
		}
	}
	defer crypto.ClearBytes(password)

	if err := store.VerifyPassword(password); err != nil {
		HandleError(err)
	}

	storeID, err := store.GetOrCreateStoreID()
	if err != nil {
		HandleError(err)
	}

	if err := keyring.SavePassword(storeID, string(password)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Password saved to keyring")
}

// KeyringDelete removes the password from the OS keyring
func (a *App) KeyringDelete() {
	storeID, err := a.store().GetStoreID()
	if err != nil {
		fmt.Println("No password stored in keyring")
		return
	}

	if err := keyring.DeletePassword(storeID); err != nil {
		if !keyring.IsNotFound(err) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		fmt.Println("No password stored in keyring")
		return
	}

	fmt.Println("Password removed from keyring")
}

// KeyringStatus reports whether a password is stored in the keyring
func (a *App) KeyringStatus() {
	storeID, err := a.store().GetStoreID()
	if err == nil && keyring.HasPassword(storeID) {
		fmt.Println("Password: stored in keyring")
		return
	}
	fmt.Println("Password: not stored")
}
