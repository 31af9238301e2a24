// Package keyring keeps store passphrases in the OS keyring, keyed by the
// random store ID written at init.
package keyring
