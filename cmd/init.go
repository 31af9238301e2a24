package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/pbecipher/internal/core"
	"github.com/illarion/pbecipher/internal/crypto"
	"github.com/illarion/pbecipher/internal/keyring"
)

// Init creates a new store. Unset params come from the PBE_* environment;
// without a salt a random one is generated.
func (a *App) Init(p Params, saveToKeyring bool) {
	store := a.store()
	if store.Exists() {
		HandleError(fmt.Errorf("%w: %s", core.ErrAlreadyExists, store.Path()))
	}
	params, _ := a.explicitParams(p)
	sp, err := storeParams(params)
	if err != nil {
		HandleError(err)
	}

	password := a.envPassword()
	if password == nil {
		password, err = core.ReadPasswordConfirm("Enter password: ")
		if err != nil {
			HandleError(err)
		}
	}
	defer crypto.ClearBytes(password)

	if err := store.Init(password, sp); err != nil {
		HandleError(err)
	}

	stored, err := store.Params()
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("Initialized %s (%s, %d iterations)\n", store.Path(), stored.Algorithm, stored.Iterations)

	if !saveToKeyring {
		return
	}
	storeID, err := store.GetOrCreateStoreID()
	if err != nil {
		HandleError(err)
	}
	if err := keyring.SavePassword(storeID, string(password)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save to keyring: %s\n", err)
		return
	}
	fmt.Println("Password saved to keyring")
}
