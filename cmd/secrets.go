package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/illarion/pbecipher/internal/core"
	"github.com/illarion/pbecipher/internal/crypto"
)

// Set stores a named secret. Without a value argument the value is read
// from the terminal without echo, or from stdin when piped.
func (a *App) Set(ctx context.Context, name string, args []string) {
	if err := core.ValidateName(name); err != nil {
		HandleError(err)
	}

	store := a.store()
	if !store.Exists() {
		HandleError(core.ErrNotInitialized)
	}

	var value string
	switch {
	case len(args) > 0:
		value = args[0]
	case core.IsTerminal():
		raw, err := core.ReadPassword(fmt.Sprintf("Value for %s: ", name))
		if err != nil {
			HandleError(err)
		}
		value = string(raw)
		crypto.ClearBytes(raw)
	default:
		var err error
		if value, err = readInput(nil); err != nil {
			HandleError(err)
		}
	}

	password, err := a.storePassword(store, "Enter password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	if err := store.Set(ctx, password, name, value); err != nil {
		HandleError(err)
	}
	fmt.Printf("Stored %s\n", name)
}

// Get prints the decrypted value of a named secret
func (a *App) Get(ctx context.Context, name string) {
	store := a.store()
	if !store.Exists() {
		HandleError(core.ErrNotInitialized)
	}

	password, err := a.storePassword(store, "Enter password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	value, err := store.Get(ctx, password, name)
	if err != nil {
		HandleError(err)
	}
	fmt.Println(value)
}

// Remove deletes named secrets from the store
func (a *App) Remove(ctx context.Context, names []string) {
	if len(names) == 0 {
		fmt.Fprintf(os.Stderr, "Error: rm requires at least one name\n")
		fmt.Fprintf(os.Stderr, "Usage: pbecipher rm <name> [name...]\n")
		os.Exit(1)
	}

	store := a.store()
	if !store.Exists() {
		HandleError(core.ErrNotInitialized)
	}

	password, err := a.storePassword(store, "Enter password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	removed, missing, err := store.Remove(ctx, password, names)
	if err != nil {
		HandleError(err)
	}
	for _, name := range removed {
		fmt.Printf("Removed %s\n", name)
	}
	for _, name := range missing {
		fmt.Fprintf(os.Stderr, "warning: %s not found\n", name)
	}
	if len(removed) == 0 {
		os.Exit(1)
	}
}

// Ls lists secret names without decrypting them
func (a *App) Ls(ctx context.Context) {
	entries, err := a.store().List(ctx)
	if err != nil {
		HandleError(err)
	}

	if len(entries) == 0 {
		fmt.Println("No secrets stored")
		return
	}
	for _, e := range entries {
		fmt.Printf("  %-32s %s\n", e.Name, e.Modified.Local().Format(time.DateTime))
	}
}
