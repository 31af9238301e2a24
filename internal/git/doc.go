// Package git checks how git sees pbecipher files.
//
// Checks performed:
//   - Whether the .pbecipher store is tracked by git (should be)
//   - Whether revealed plaintext files are tracked by git (should not be)
//   - Whether revealed plaintext files are in .gitignore (should be)
package git
