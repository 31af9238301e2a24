// Package crypto provides the key derivation and padding primitives behind
// the password-based ciphers in pkg/pbe.
//
// Key derivation functions:
//   - PBKDF1 (PKCS#5 v1.5) over MD5 or SHA-1, password as printable ASCII
//   - the SunJCE MD5 triple-DES scheme, which hashes each salt half separately
//   - PKCS#12 appendix B, password as a NUL-terminated BMPString
//   - PBKDF2-HMAC via golang.org/x/crypto/pbkdf2
//
// Block cipher input uses PKCS#5/PKCS#7 padding (Pad, Unpad).
//
// Memory safety:
//   - Use ClearBytes() to zero passwords and key material after use
package crypto
