package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/illarion/pbecipher/internal/git"
	"github.com/illarion/pbecipher/internal/keyring"
)

// Status shows the store parameters, secret count, keyring and git state.
// No password is required.
func (a *App) Status(ctx context.Context) {
	store := a.store()
	if !store.Exists() {
		fmt.Printf("No %s store found\n", store.Path())
		fmt.Println("Run 'pbecipher init' to create one")
		return
	}

	status, err := store.Status(ctx)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Store:       %s (%s)\n", status.Path, formatSize(status.Size))
	fmt.Printf("Algorithm:   %s\n", status.Params.Algorithm)
	fmt.Printf("Iterations:  %d\n", status.Params.Iterations)
	fmt.Printf("Secrets:     %d\n", status.SecretCount)
	if !status.LastModified.IsZero() {
		fmt.Printf("Modified:    %s\n", status.LastModified.Format(time.RFC3339))
	}

	if status.StoreID != "" && keyring.HasPassword(status.StoreID) {
		fmt.Println("Keyring:     password stored")
	} else {
		fmt.Println("Keyring:     not stored")
	}

	fmt.Print(git.FormatStatus(git.Check(".", status.Path, nil)))
}
