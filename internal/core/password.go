package core

import (
	"errors"
	"fmt"
	"os"

	"github.com/illarion/pbecipher/internal/crypto"
	"golang.org/x/term"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// IsTerminal reports whether stdin is an interactive terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ReadPassword prompts on stderr and reads a passphrase from the terminal
// without echo.
func ReadPassword(prompt string) ([]byte, error) {
	if !IsTerminal() {
		return nil, fmt.Errorf("%w: stdin is not a terminal (set PBE_PASSWORD)", ErrPasswordRequired)
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// ReadPasswordConfirm reads a passphrase twice and ensures both match
func ReadPasswordConfirm(prompt string) ([]byte, error) {
	first, err := ReadPassword(prompt)
	if err != nil {
		return nil, err
	}

	second, err := ReadPassword("Confirm password: ")
	if err != nil {
		crypto.ClearBytes(first)
		return nil, err
	}
	defer crypto.ClearBytes(second)

	if !crypto.ConstantTimeCompare(first, second) {
		crypto.ClearBytes(first)
		return nil, ErrPasswordMismatch
	}
	return first, nil
}
