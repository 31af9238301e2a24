package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/pbecipher/internal/core"
	"github.com/illarion/pbecipher/internal/crypto"
	"github.com/illarion/pbecipher/internal/git"
	"github.com/illarion/pbecipher/internal/security"
)

func openRoot() *security.PathValidator {
	root, err := security.New(".")
	if err != nil {
		HandleError(err)
	}
	return root
}

type fileOp func(context.Context, core.Cipher, *security.PathValidator, string, bool) (*core.FileResult, error)

func (a *App) rewriteFiles(ctx context.Context, p Params, files []string, dryRun bool, verb string, op fileOp) {
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "Error: %s requires at least one file\n", verb)
		os.Exit(1)
	}

	root := openRoot()
	defer root.Close()

	svc, err := a.service(p)
	if err != nil {
		HandleError(err)
	}
	defer svc.Destroy()

	failed := false
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			HandleError(err)
		}
		result, err := op(ctx, svc, root, file, dryRun)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
			failed = true
			continue
		}
		switch {
		case result.Count == 0:
			fmt.Printf("%s: nothing to %s\n", result.Path, verb)
		case dryRun:
			fmt.Print(result.Diff)
			fmt.Printf("%s: %d value(s) to %s, +%d -%d lines\n", result.Path, result.Count, verb, result.Added, result.Removed)
		default:
			fmt.Printf("%s: %d value(s) %sed\n", result.Path, result.Count, verb)
		}
	}
	if failed {
		os.Exit(1)
	}
}

// Seal replaces DEC(...) values with ENC(...) ciphertext in each file
func (a *App) Seal(ctx context.Context, p Params, files []string, dryRun bool) {
	a.rewriteFiles(ctx, p, files, dryRun, "seal", core.SealFile)
}

// Unseal turns ENC(...) values back into editable DEC(...) values
func (a *App) Unseal(ctx context.Context, p Params, files []string, dryRun bool) {
	a.rewriteFiles(ctx, p, files, dryRun, "unseal", core.UnsealFile)
}

// Reveal prints a sealed file with every ENC(...) value decrypted, or writes
// it to outPath and warns when git could pick the plaintext up.
func (a *App) Reveal(ctx context.Context, p Params, file, outPath string) {
	root := openRoot()
	defer root.Close()

	svc, err := a.service(p)
	if err != nil {
		HandleError(err)
	}
	defer svc.Destroy()

	plain, count, err := core.RevealFile(ctx, svc, root, file, outPath)
	if err != nil {
		HandleError(err)
	}

	if outPath == "" {
		os.Stdout.Write(plain)
		crypto.ClearBytes(plain)
		return
	}

	fmt.Fprintf(os.Stderr, "%s: %d value(s) revealed to %s\n", file, count, outPath)
	if rel, err := root.Normalize(outPath); err == nil {
		status := git.Check(root.Dir(), a.cfg.Store, []string{rel})
		if status.HasProblems() {
			fmt.Fprint(os.Stderr, git.FormatWarnings(status))
		}
	}
}

// Diff shows how a sealed file differs from a plaintext file, or from its
// own revealed form when plain is empty.
func (a *App) Diff(ctx context.Context, p Params, sealed, plain string) {
	root := openRoot()
	defer root.Close()

	svc, err := a.service(p)
	if err != nil {
		HandleError(err)
	}
	defer svc.Destroy()

	diff, err := core.DiffFile(ctx, svc, root, sealed, plain)
	if err != nil {
		HandleError(err)
	}
	if diff == "" {
		fmt.Println("No changes detected")
		return
	}
	fmt.Print(diff)
}
