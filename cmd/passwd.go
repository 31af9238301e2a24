package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/pbecipher/internal/core"
	"github.com/illarion/pbecipher/internal/crypto"
	"github.com/illarion/pbecipher/internal/keyring"
)

// Passwd re-encrypts the store under a new password with a fresh salt.
// Algorithm and iterations may be changed at the same time.
func (a *App) Passwd(ctx context.Context, p Params) {
	store := a.store()
	if !store.Exists() {
		HandleError(core.ErrNotInitialized)
	}
	sp, err := storeParams(p)
	if err != nil {
		HandleError(err)
	}

	storeID, _ := store.GetStoreID()

	currentPassword, err := a.storePassword(store, "Enter current password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(currentPassword)

	newPassword, err := core.ReadPasswordConfirm("Enter new password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(newPassword)

	if err := store.ChangePassword(ctx, currentPassword, newPassword, sp); err != nil {
		HandleError(err)
	}

	// Keep an existing keyring entry in sync
	if storeID != "" && keyring.HasPassword(storeID) {
		if err := keyring.SavePassword(storeID, string(newPassword)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to update keyring: %s\n", err)
		} else {
			fmt.Println("Keyring updated with new password")
		}
	}

	fmt.Println("Password changed successfully")
}
