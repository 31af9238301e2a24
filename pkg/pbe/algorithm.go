package pbe

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"sort"
	"strings"

	"github.com/illarion/pbecipher/internal/crypto"
)

// scheme binds a key derivation function to a CBC block cipher.
//
// When randomIV is set, derive only produces the key and every encryption
// draws a fresh IV that is stored in front of the ciphertext.
type scheme struct {
	name     string
	derive   func(password string, salt []byte, iterations int) (key, iv []byte, err error)
	block    func(key []byte) (cipher.Block, error)
	randomIV bool
}

var schemes = map[string]*scheme{}

func register(s *scheme) {
	schemes[strings.ToLower(s.name)] = s
}

func init() {
	register(&scheme{
		name:   "PBEWithMD5AndDES",
		derive: pbkdf1Scheme(md5.New),
		block:  des.NewCipher,
	})
	register(&scheme{
		name:   "PBEWithSHA1AndDES",
		derive: pbkdf1Scheme(sha1.New),
		block:  des.NewCipher,
	})
	register(&scheme{
		name: "PBEWithMD5AndTripleDES",
		derive: func(password string, salt []byte, iterations int) ([]byte, []byte, error) {
			pw, err := crypto.ASCIIPassword(password)
			if err != nil {
				return nil, nil, err
			}
			defer crypto.ClearBytes(pw)
			return crypto.TripleDESKeyIV(pw, salt, iterations)
		},
		block: des.NewTripleDESCipher,
	})
	register(&scheme{
		name:   "PBEWithSHA1AndDESede",
		derive: pkcs12Scheme(sha1.New, 24, des.BlockSize),
		block:  des.NewTripleDESCipher,
	})
	register(&scheme{
		name:   "PBEWithSHA256And128BitAES-CBC-BC",
		derive: pkcs12Scheme(sha256.New, 16, aes.BlockSize),
		block:  aes.NewCipher,
	})
	register(&scheme{
		name:   "PBEWithSHA256And256BitAES-CBC-BC",
		derive: pkcs12Scheme(sha256.New, 32, aes.BlockSize),
		block:  aes.NewCipher,
	})

	hmacs := []struct {
		name string
		h    func() hash.Hash
	}{
		{"HmacSHA1", sha1.New},
		{"HmacSHA256", sha256.New},
		{"HmacSHA512", sha512.New},
	}
	for _, m := range hmacs {
		for _, bits := range []int{128, 256} {
			register(&scheme{
				name:     fmt.Sprintf("PBEWith%sAndAES_%d", m.name, bits),
				derive:   pbkdf2Scheme(m.h, bits/8),
				block:    aes.NewCipher,
				randomIV: true,
			})
		}
	}
}

// pbkdf1Scheme is the PKCS#5 v1.5 PBES1 layout: the first 8 bytes of the
// digest are the DES key, the next 8 the IV.
func pbkdf1Scheme(h func() hash.Hash) func(string, []byte, int) ([]byte, []byte, error) {
	return func(password string, salt []byte, iterations int) ([]byte, []byte, error) {
		pw, err := crypto.ASCIIPassword(password)
		if err != nil {
			return nil, nil, err
		}
		defer crypto.ClearBytes(pw)
		dk, err := crypto.PBKDF1(h, pw, salt, iterations, 16)
		if err != nil {
			return nil, nil, err
		}
		return dk[:8], dk[8:16], nil
	}
}

func pkcs12Scheme(h func() hash.Hash, keyLen, ivLen int) func(string, []byte, int) ([]byte, []byte, error) {
	return func(password string, salt []byte, iterations int) ([]byte, []byte, error) {
		pw := crypto.BMPString(password)
		defer crypto.ClearBytes(pw)
		key, err := crypto.PKCS12(h, pw, salt, iterations, crypto.PKCS12KeyMaterial, keyLen)
		if err != nil {
			return nil, nil, err
		}
		iv, err := crypto.PKCS12(h, pw, salt, iterations, crypto.PKCS12IV, ivLen)
		if err != nil {
			return nil, nil, err
		}
		return key, iv, nil
	}
}

func pbkdf2Scheme(h func() hash.Hash, keyLen int) func(string, []byte, int) ([]byte, []byte, error) {
	return func(password string, salt []byte, iterations int) ([]byte, []byte, error) {
		pw := []byte(password)
		defer crypto.ClearBytes(pw)
		key, err := crypto.PBKDF2(h, pw, salt, iterations, keyLen)
		if err != nil {
			return nil, nil, err
		}
		return key, nil, nil
	}
}

func lookup(algorithm string) (*scheme, error) {
	s, ok := schemes[strings.ToLower(algorithm)]
	if !ok {
		return nil, fmt.Errorf("unknown algorithm %q", algorithm)
	}
	return s, nil
}

// Algorithms returns the canonical names of all supported algorithms, sorted.
func Algorithms() []string {
	names := make([]string, 0, len(schemes))
	for _, s := range schemes {
		names = append(names, s.name)
	}
	sort.Strings(names)
	return names
}

// Supported reports whether algorithm names a supported scheme. Names are
// matched case-insensitively.
func Supported(algorithm string) bool {
	_, err := lookup(algorithm)
	return err == nil
}
