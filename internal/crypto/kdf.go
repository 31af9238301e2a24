package crypto

import (
	"crypto/md5"
	"errors"
	"fmt"
	"hash"
	"unicode/utf16"

	"golang.org/x/crypto/pbkdf2"
)

// Diversifier IDs from RFC 7292 appendix B.3. The MAC key ID is unused.
const (
	PKCS12KeyMaterial byte = 1
	PKCS12IV          byte = 2
)

var (
	ErrNonASCIIPassword = errors.New("password is not ASCII")
	ErrIterations       = errors.New("iteration count must be positive")
	ErrKeyTooLong       = errors.New("derived key too long")
)

// ASCIIPassword encodes a password for the PKCS#5 v1.5 schemes, which only
// accept printable ASCII.
func ASCIIPassword(password string) ([]byte, error) {
	out := make([]byte, 0, len(password))
	for _, r := range password {
		if r < 0x20 || r > 0x7e {
			return nil, ErrNonASCIIPassword
		}
		out = append(out, byte(r))
	}
	return out, nil
}

// BMPString encodes a password as big-endian UTF-16 with a two byte NUL
// terminator, the form PKCS#12 key derivation hashes.
func BMPString(password string) []byte {
	units := utf16.Encode([]rune(password))
	out := make([]byte, 0, 2*len(units)+2)
	for _, u := range units {
		out = append(out, byte(u>>8), byte(u))
	}
	return append(out, 0, 0)
}

// PBKDF1 implements RFC 8018 section 5.1. keyLen may not exceed the digest
// size of h.
func PBKDF1(h func() hash.Hash, password, salt []byte, iterations, keyLen int) ([]byte, error) {
	if iterations < 1 {
		return nil, ErrIterations
	}
	md := h()
	if keyLen > md.Size() {
		return nil, fmt.Errorf("%w: %d > %d", ErrKeyTooLong, keyLen, md.Size())
	}

	md.Write(password)
	md.Write(salt)
	t := md.Sum(nil)
	for i := 1; i < iterations; i++ {
		md.Reset()
		md.Write(t)
		t = md.Sum(t[:0])
	}
	return t[:keyLen], nil
}

// TripleDESKeyIV derives a 24-byte DESede key and an 8-byte IV the way the
// SunJCE PBEWithMD5AndTripleDES cipher does: each salt half is hashed with the
// password separately, and the two digests are concatenated.
func TripleDESKeyIV(password, salt []byte, iterations int) (key, iv []byte, err error) {
	if iterations < 1 {
		return nil, nil, ErrIterations
	}
	if len(salt) != 8 {
		return nil, nil, fmt.Errorf("salt must be 8 bytes, got %d", len(salt))
	}

	s := append([]byte(nil), salt...)
	same := true
	for i := 0; i < 4; i++ {
		if s[i] != s[i+4] {
			same = false
			break
		}
	}
	if same {
		// Same shuffle as the JDK, including its fixed write to index 2.
		for i := 0; i < 2; i++ {
			tmp := s[i]
			s[i] = s[3-i]
			s[2] = tmp
		}
	}

	md := md5.New()
	result := make([]byte, 0, 2*md5.Size)
	for half := 0; half < 2; half++ {
		t := append([]byte(nil), s[half*4:half*4+4]...)
		for j := 0; j < iterations; j++ {
			md.Reset()
			md.Write(t)
			md.Write(password)
			t = md.Sum(nil)
		}
		result = append(result, t...)
	}
	return result[:24], result[24:32], nil
}

// PKCS12 implements the key derivation of RFC 7292 appendix B.2. password
// must already be BMPString encoded.
func PKCS12(h func() hash.Hash, password, salt []byte, iterations int, id byte, size int) ([]byte, error) {
	if iterations < 1 {
		return nil, ErrIterations
	}
	md := h()
	u := md.Size()
	v := md.BlockSize()

	d := make([]byte, v)
	for i := range d {
		d[i] = id
	}

	fill := func(src []byte) []byte {
		if len(src) == 0 {
			return nil
		}
		out := make([]byte, v*((len(src)+v-1)/v))
		for i := range out {
			out[i] = src[i%len(src)]
		}
		return out
	}
	in := append(fill(salt), fill(password)...)

	out := make([]byte, 0, size+u)
	b := make([]byte, v)
	for len(out) < size {
		md.Reset()
		md.Write(d)
		md.Write(in)
		a := md.Sum(nil)
		for i := 1; i < iterations; i++ {
			md.Reset()
			md.Write(a)
			a = md.Sum(a[:0])
		}
		out = append(out, a...)

		for i := range b {
			b[i] = a[i%u]
		}
		// I_j = (I_j + B + 1) mod 2^(v*8) for every v-byte block of I.
		for j := 0; j < len(in); j += v {
			block := in[j : j+v]
			carry := 1
			for k := v - 1; k >= 0; k-- {
				sum := int(block[k]) + int(b[k]) + carry
				block[k] = byte(sum)
				carry = sum >> 8
			}
		}
	}
	return out[:size], nil
}

// PBKDF2 derives keyLen bytes with PBKDF2-HMAC over h.
func PBKDF2(h func() hash.Hash, password, salt []byte, iterations, keyLen int) ([]byte, error) {
	if iterations < 1 {
		return nil, ErrIterations
	}
	return pbkdf2.Key(password, salt, iterations, keyLen, h), nil
}
