// Package core implements the pbecipher store and config-file operations.
//
// Store operations:
//   - Init: create a .pbecipher store with salt, algorithm and iteration count
//   - Set/Get/Remove: encrypt, decrypt and delete named secrets
//   - List/Status: inspect the store without a password
//   - ChangePassword: re-encrypt every secret under a new passphrase
//
// Config-file operations rewrite placeholders in text files:
//   - SealFile: DEC(plain) becomes ENC(base64 ciphertext)
//   - RevealFile: ENC(...) becomes the plaintext value
//   - UnsealFile: ENC(...) becomes DEC(plain) again for editing
//   - DiffFile: unified diff between sealed and plaintext forms
package core
