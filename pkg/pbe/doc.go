// Package pbe provides password-based encryption of short strings such as
// passwords kept in configuration files.
//
// A Service is built once from a salt, an algorithm name, a passphrase and an
// iteration count:
//
//	svc, err := pbe.New("12345678", "PBEWithMD5AndDES", passphrase, 1000)
//	enc, err := svc.Encrypt("db-password")  // standard Base64
//	dec, err := svc.Decrypt(enc)
//
// The salt must be exactly 8 bytes when UTF-8 encoded. Algorithm names follow
// the JCE naming and are matched case-insensitively; see Algorithms for the
// full list. PBEWithMD5AndDES, PBEWithMD5AndTripleDES and PBEWithSHA1AndDESede
// produce the same ciphertext as the JDK ciphers of the same name;
// PBEWithSHA1AndDES and the *-BC names follow Bouncy Castle. The PBEWithHmac*
// schemes use a random IV per call, stored in front of the ciphertext.
//
// Construction failures are *ConfigurationError; Encrypt and Decrypt failures
// are *CipherError. Both support errors.Is against the Err* sentinels.
package pbe
