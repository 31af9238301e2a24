package crypto

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
)

func TestPBKDF2_RFC6070(t *testing.T) {
	tests := []struct {
		name       string
		iterations int
		want       string
	}{
		{"one iteration", 1, "0c60c80f961f0e71f3a9b524af6012062fe037a6"},
		{"two iterations", 2, "ea6c014dc72d6f8ccd1ed92ace1d41f0d8de8957"},
		{"4096 iterations", 4096, "4b007901b765489abead49d926f721d065a429c1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := PBKDF2(sha1.New, []byte("password"), []byte("salt"), tt.iterations, 20)
			if err != nil {
				t.Fatalf("PBKDF2 failed: %v", err)
			}
			if got := hex.EncodeToString(key); got != tt.want {
				t.Errorf("PBKDF2 = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPBKDF1(t *testing.T) {
	password := []byte("secret")
	salt := []byte("12345678")

	first := md5.Sum(append(append([]byte(nil), password...), salt...))
	second := md5.Sum(first[:])
	third := md5.Sum(second[:])

	key, err := PBKDF1(md5.New, password, salt, 1, 16)
	if err != nil {
		t.Fatalf("PBKDF1 failed: %v", err)
	}
	if !bytes.Equal(key, first[:]) {
		t.Errorf("1 iteration: got %x, want %x", key, first)
	}

	key, err = PBKDF1(md5.New, password, salt, 3, 16)
	if err != nil {
		t.Fatalf("PBKDF1 failed: %v", err)
	}
	if !bytes.Equal(key, third[:]) {
		t.Errorf("3 iterations: got %x, want %x", key, third)
	}

	if _, err := PBKDF1(md5.New, password, salt, 1, 17); !errors.Is(err, ErrKeyTooLong) {
		t.Errorf("Expected ErrKeyTooLong, got %v", err)
	}
	if _, err := PBKDF1(md5.New, password, salt, 0, 16); !errors.Is(err, ErrIterations) {
		t.Errorf("Expected ErrIterations, got %v", err)
	}
}

func TestTripleDESKeyIV(t *testing.T) {
	password := []byte("secret")
	salt := []byte("abcdefgh")

	key, iv, err := TripleDESKeyIV(password, salt, 1)
	if err != nil {
		t.Fatalf("TripleDESKeyIV failed: %v", err)
	}
	if len(key) != 24 || len(iv) != 8 {
		t.Fatalf("Unexpected lengths: key %d, iv %d", len(key), len(iv))
	}

	left := md5.Sum(append([]byte("abcd"), password...))
	right := md5.Sum(append([]byte("efgh"), password...))
	want := append(left[:], right[:]...)
	if !bytes.Equal(key, want[:24]) || !bytes.Equal(iv, want[24:]) {
		t.Errorf("Derived material mismatch: got %x%x, want %x", key, iv, want)
	}

	// Salt must not be modified in place
	if string(salt) != "abcdefgh" {
		t.Errorf("Salt was modified: %q", salt)
	}
}

func TestTripleDESKeyIV_EqualHalves(t *testing.T) {
	salt := []byte("abcdabcd")
	key, iv, err := TripleDESKeyIV([]byte("secret"), salt, 5)
	if err != nil {
		t.Fatalf("TripleDESKeyIV failed: %v", err)
	}
	if string(salt) != "abcdabcd" {
		t.Errorf("Salt was modified: %q", salt)
	}
	// The first half is shuffled, so both halves no longer hash the same
	if bytes.Equal(key[:16], append(key[16:24:24], iv...)) {
		t.Error("Equal salt halves should not yield identical digests")
	}
}

func TestPKCS12(t *testing.T) {
	password := BMPString("secret")
	salt := []byte("12345678")

	key1, err := PKCS12(sha1.New, password, salt, 1000, PKCS12KeyMaterial, 24)
	if err != nil {
		t.Fatalf("PKCS12 failed: %v", err)
	}
	key2, err := PKCS12(sha1.New, password, salt, 1000, PKCS12KeyMaterial, 24)
	if err != nil {
		t.Fatalf("PKCS12 failed: %v", err)
	}
	if !bytes.Equal(key1, key2) {
		t.Error("PKCS12 should be deterministic")
	}
	if len(key1) != 24 {
		t.Errorf("Expected 24 bytes, got %d", len(key1))
	}

	iv, err := PKCS12(sha1.New, password, salt, 1000, PKCS12IV, 24)
	if err != nil {
		t.Fatalf("PKCS12 failed: %v", err)
	}
	if bytes.Equal(key1, iv) {
		t.Error("Different diversifiers should yield different output")
	}

	// A longer request extends the shorter one
	long, err := PKCS12(sha256.New, password, salt, 10, PKCS12KeyMaterial, 64)
	if err != nil {
		t.Fatalf("PKCS12 failed: %v", err)
	}
	short, err := PKCS12(sha256.New, password, salt, 10, PKCS12KeyMaterial, 32)
	if err != nil {
		t.Fatalf("PKCS12 failed: %v", err)
	}
	if !bytes.Equal(long[:32], short) {
		t.Error("Derived output should be a prefix-stable stream")
	}

	// Single iteration is H(D || I)
	d := bytes.Repeat([]byte{PKCS12KeyMaterial}, 64)
	i := append(bytes.Repeat(salt, 8), bytes.Repeat(password, 64/len(password)+1)[:64*((len(password)+63)/64)]...)
	want := sha1.Sum(append(d, i...))
	got, err := PKCS12(sha1.New, password, salt, 1, PKCS12KeyMaterial, 20)
	if err != nil {
		t.Fatalf("PKCS12 failed: %v", err)
	}
	if !bytes.Equal(got, want[:]) {
		t.Errorf("PKCS12 single block = %x, want %x", got, want)
	}
}

func TestPKCS12_KnownAnswers(t *testing.T) {
	// Published SHA-1 vectors; 24-byte keys span two digest blocks.
	tests := []struct {
		name       string
		password   string
		salt       string
		iterations int
		id         byte
		want       string
	}{
		{"smeg key", "smeg", "0A58CF64530D823F", 1, PKCS12KeyMaterial, "8AAAE6297B6CB04642AB5B077851284EB7128F1A2A7FBCA3"},
		{"smeg iv", "smeg", "0A58CF64530D823F", 1, PKCS12IV, "79993DFE048D3B76"},
		{"queeg key", "queeg", "1682C0FC5B3F7EC5", 1000, PKCS12KeyMaterial, "483DD6E919D7DE2E8E648BA8F862F3FBFBDC2BCB2C02957F"},
		{"queeg iv", "queeg", "1682C0FC5B3F7EC5", 1000, PKCS12IV, "9D461D1B00355C50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			salt, err := hex.DecodeString(tt.salt)
			if err != nil {
				t.Fatalf("bad salt: %v", err)
			}
			want, err := hex.DecodeString(tt.want)
			if err != nil {
				t.Fatalf("bad expected value: %v", err)
			}

			got, err := PKCS12(sha1.New, BMPString(tt.password), salt, tt.iterations, tt.id, len(want))
			if err != nil {
				t.Fatalf("PKCS12 failed: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("PKCS12 = %X, want %X", got, want)
			}
		})
	}
}

func TestBMPString(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"", []byte{0, 0}},
		{"a", []byte{0, 'a', 0, 0}},
		{"é", []byte{0x00, 0xe9, 0, 0}},
		{"😀", []byte{0xd8, 0x3d, 0xde, 0x00, 0, 0}},
	}
	for _, tt := range tests {
		if got := BMPString(tt.in); !bytes.Equal(got, tt.want) {
			t.Errorf("BMPString(%q) = %x, want %x", tt.in, got, tt.want)
		}
	}
}

func TestASCIIPassword(t *testing.T) {
	got, err := ASCIIPassword("Pa ss~")
	if err != nil {
		t.Fatalf("ASCIIPassword failed: %v", err)
	}
	if string(got) != "Pa ss~" {
		t.Errorf("Got %q", got)
	}

	for _, bad := range []string{"pässword", "tab\there", "\x7f"} {
		if _, err := ASCIIPassword(bad); !errors.Is(err, ErrNonASCIIPassword) {
			t.Errorf("ASCIIPassword(%q): expected ErrNonASCIIPassword, got %v", bad, err)
		}
	}
}
