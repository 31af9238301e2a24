package core

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/pbecipher/internal/crypto"
	"github.com/illarion/pbecipher/internal/security"
)

// FilePermSecure is used for files that hold revealed plaintext
const FilePermSecure os.FileMode = 0600

// FileResult describes the outcome of rewriting a config file. Added and
// Removed count changed lines and are set on dry runs only.
type FileResult struct {
	Path    string
	Count   int
	Diff    string
	Added   int
	Removed int
	Written bool
}

// secureFileMode keeps owner bits only, falling back to FilePermSecure.
func secureFileMode(mode os.FileMode) os.FileMode {
	secure := mode.Perm() & 0700
	if secure == 0 {
		return FilePermSecure
	}
	return secure
}

func rewriteFile(ctx context.Context, root *security.PathValidator, path string, dryRun bool, transform func([]byte) ([]byte, int, error)) (*FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel, err := root.Normalize(path)
	if err != nil {
		return nil, err
	}
	info, err := root.Stat(rel)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", rel)
	}

	before, err := root.ReadFile(rel)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", rel, err)
	}
	defer crypto.ClearBytes(before)

	after, count, err := transform(before)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	defer crypto.ClearBytes(after)

	result := &FileResult{Path: rel, Count: count}
	if count == 0 {
		return result, nil
	}
	if dryRun {
		result.Diff = GenerateUnifiedDiff(rel, before, after)
		result.Added, result.Removed = ChangedLines(before, after)
		return result, nil
	}

	if err := root.WriteFile(rel, after, info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("cannot write %s: %w", rel, err)
	}
	result.Written = true
	return result, nil
}

// SealFile encrypts every DEC(...) value of the file in place, keeping its
// permissions. With dryRun the file is left alone and Diff shows the change.
func SealFile(ctx context.Context, c Cipher, root *security.PathValidator, path string, dryRun bool) (*FileResult, error) {
	return rewriteFile(ctx, root, path, dryRun, func(data []byte) ([]byte, int, error) {
		return SealText(c, data)
	})
}

// UnsealFile turns every ENC(...) value of the file back into DEC(...) in
// place so it can be edited and sealed again.
func UnsealFile(ctx context.Context, c Cipher, root *security.PathValidator, path string, dryRun bool) (*FileResult, error) {
	return rewriteFile(ctx, root, path, dryRun, func(data []byte) ([]byte, int, error) {
		return MarkText(c, data)
	})
}

// RevealFile decrypts every ENC(...) value of the file. When outPath is set
// the plaintext is written there with owner-only permissions and nil is
// returned; otherwise the plaintext is returned and the caller owns it.
func RevealFile(ctx context.Context, c Cipher, root *security.PathValidator, path, outPath string) ([]byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	rel, err := root.Normalize(path)
	if err != nil {
		return nil, 0, err
	}
	data, err := root.ReadFile(rel)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot read %s: %w", rel, err)
	}

	plain, count, err := RevealText(c, data)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", rel, err)
	}
	if outPath == "" {
		return plain, count, nil
	}
	defer crypto.ClearBytes(plain)

	mode := FilePermSecure
	if info, err := root.Stat(rel); err == nil {
		mode = secureFileMode(info.Mode())
	}
	if err := root.WriteFile(outPath, plain, mode); err != nil {
		return nil, 0, fmt.Errorf("cannot write %s: %w", outPath, err)
	}
	return nil, count, nil
}

// DiffFile reveals sealedPath and diffs it against plainPath. Without
// plainPath the sealed file is diffed against its own revealed form.
func DiffFile(ctx context.Context, c Cipher, root *security.PathValidator, sealedPath, plainPath string) (string, error) {
	rel, err := root.Normalize(sealedPath)
	if err != nil {
		return "", err
	}

	revealed, _, err := RevealFile(ctx, c, root, rel, "")
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(revealed)

	if plainPath == "" {
		sealed, err := root.ReadFile(rel)
		if err != nil {
			return "", fmt.Errorf("cannot read %s: %w", rel, err)
		}
		return GenerateUnifiedDiff(rel, sealed, revealed), nil
	}

	plainRel, err := root.Normalize(plainPath)
	if err != nil {
		return "", err
	}
	local, err := root.ReadFile(plainRel)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", plainRel, err)
	}
	defer crypto.ClearBytes(local)

	return GenerateUnifiedDiff(plainRel, revealed, local), nil
}
