package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Status describes how git sees the store file and revealed plaintext files
type Status struct {
	IsRepo             bool
	StoreFile          string
	StoreTracked       bool
	TrackedPlaintext   []string // revealed files committed to git (bad)
	IgnoredPlaintext   []string // revealed files covered by .gitignore (good)
	UnignoredPlaintext []string // revealed files git would pick up (warning)
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by any .gitignore
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	// exit code 0 means ignored
	return cmd.Run() == nil
}

// Check inspects the store file and the given plaintext outputs. Outside a
// git repository it returns a Status with IsRepo unset.
func Check(workDir, storeFile string, plaintext []string) *Status {
	status := &Status{StoreFile: storeFile}
	if !IsGitRepo(workDir) {
		return status
	}
	status.IsRepo = true
	status.StoreTracked = IsTracked(workDir, storeFile)

	for _, file := range plaintext {
		switch {
		case IsTracked(workDir, file):
			status.TrackedPlaintext = append(status.TrackedPlaintext, file)
		case IsIgnored(workDir, file):
			status.IgnoredPlaintext = append(status.IgnoredPlaintext, file)
		default:
			status.UnignoredPlaintext = append(status.UnignoredPlaintext, file)
		}
	}
	return status
}

// HasProblems reports whether a revealed file could end up in a commit
func (s *Status) HasProblems() bool {
	return len(s.TrackedPlaintext) > 0 || len(s.UnignoredPlaintext) > 0
}

// FormatStatus renders the status for the status command. It returns "" for
// non-repositories.
func FormatStatus(s *Status) string {
	if !s.IsRepo {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nGit:\n")

	if s.StoreTracked {
		fmt.Fprintf(&b, "   ok: %s is tracked by git\n", s.StoreFile)
	} else {
		fmt.Fprintf(&b, "   warning: %s not tracked (run: git add %s)\n", s.StoreFile, s.StoreFile)
	}
	b.WriteString(FormatWarnings(s))

	if !s.HasProblems() && len(s.IgnoredPlaintext) > 0 {
		fmt.Fprintf(&b, "   ok: %d revealed file(s) in .gitignore\n", len(s.IgnoredPlaintext))
	}
	return b.String()
}

// FormatWarnings lists revealed plaintext files that git tracks or would
// pick up.
func FormatWarnings(s *Status) string {
	var b strings.Builder
	for _, file := range s.TrackedPlaintext {
		fmt.Fprintf(&b, "   error: %s holds plaintext and is tracked by git (run: git rm --cached %s)\n", file, file)
	}
	for _, file := range s.UnignoredPlaintext {
		fmt.Fprintf(&b, "   warning: %s holds plaintext and is not in .gitignore\n", file)
	}
	return b.String()
}
