// Package storage provides the BBolt database interface for pbecipher stores.
//
// Database structure uses three buckets:
//   - config: PBE parameters (salt, algorithm, iterations), timestamps, store ID (unencrypted)
//   - secrets: Named Base64 ciphertexts with creation and modification times
//   - private: Encrypted check value used to verify the passphrase
//
// The passphrase itself is never written. Names and timestamps are stored in
// the clear so that pbecipher ls and pbecipher status work without it.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
