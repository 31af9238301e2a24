package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/illarion/pbecipher/internal/core"
	"github.com/illarion/pbecipher/pkg/pbe"
)

// Encrypt prints the Base64 ciphertext of the text given as arguments or on
// stdin.
func (a *App) Encrypt(ctx context.Context, p Params, args []string) {
	text, err := readInput(args)
	if err != nil {
		HandleError(err)
	}

	svc, err := a.service(p)
	if err != nil {
		HandleError(err)
	}
	defer svc.Destroy()

	if err := ctx.Err(); err != nil {
		HandleError(err)
	}
	encrypted, err := svc.Encrypt(text)
	if err != nil {
		HandleError(err)
	}
	fmt.Println(encrypted)
}

// Decrypt prints the plaintext of a Base64 ciphertext. An ENC(...) wrapper
// is accepted.
func (a *App) Decrypt(ctx context.Context, p Params, args []string) {
	text, err := readInput(args)
	if err != nil {
		HandleError(err)
	}
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "ENC(") && strings.HasSuffix(text, ")") {
		text = text[len("ENC(") : len(text)-1]
	}

	svc, err := a.service(p)
	if err != nil {
		HandleError(err)
	}
	defer svc.Destroy()

	if err := ctx.Err(); err != nil {
		HandleError(err)
	}
	decrypted, err := svc.Decrypt(text)
	if err != nil {
		HandleError(err)
	}
	fmt.Println(decrypted)
}

// Algorithms lists the supported algorithm names
func Algorithms() {
	for _, name := range pbe.Algorithms() {
		if strings.EqualFold(name, core.DefaultAlgorithm) {
			fmt.Printf("  %s (default)\n", name)
		} else {
			fmt.Printf("  %s\n", name)
		}
	}
}
