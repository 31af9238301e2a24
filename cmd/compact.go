package cmd

import (
	"fmt"
	"os"
)

// Compact compacts the store database to reclaim unused space
func (a *App) Compact() {
	store := a.store()

	info, err := os.Stat(store.Path())
	if err != nil {
		HandleError(fmt.Errorf("%s: %w", store.Path(), err))
	}
	sizeBefore := info.Size()

	if err := store.Compact(); err != nil {
		HandleError(err)
	}

	info, err = os.Stat(store.Path())
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(info.Size()))
}
