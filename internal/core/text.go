package core

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// Placeholders recognised in configuration text. DEC(...) marks a value to
// be encrypted, ENC(...) holds a Base64 ciphertext. A DEC value cannot
// contain parentheses or line breaks.
var (
	encPattern = regexp.MustCompile(`ENC\(([A-Za-z0-9+/=]*)\)`)
	decPattern = regexp.MustCompile(`DEC\(([^()\r\n]*)\)`)
)

// Cipher is the part of *pbe.Service the text helpers use
type Cipher interface {
	Encrypt(clearText string) (string, error)
	Decrypt(encryptedText string) (string, error)
}

// SealText replaces every DEC(plain) in data with ENC(ciphertext) and
// returns the new text and the number of values sealed.
func SealText(c Cipher, data []byte) ([]byte, int, error) {
	return replacePlaceholders(decPattern, data, func(value string) (string, error) {
		enc, err := c.Encrypt(value)
		if err != nil {
			return "", err
		}
		return "ENC(" + enc + ")", nil
	})
}

// RevealText replaces every ENC(ciphertext) in data with the decrypted value
// and returns the new text and the number of values revealed.
func RevealText(c Cipher, data []byte) ([]byte, int, error) {
	return replacePlaceholders(encPattern, data, c.Decrypt)
}

// MarkText replaces every ENC(ciphertext) in data with DEC(plain), the
// inverse of SealText. Values containing parentheses or line breaks cannot
// be marked and cause an error.
func MarkText(c Cipher, data []byte) ([]byte, int, error) {
	return replacePlaceholders(encPattern, data, func(value string) (string, error) {
		plain, err := c.Decrypt(value)
		if err != nil {
			return "", err
		}
		if strings.ContainsAny(plain, "()\r\n") {
			return "", fmt.Errorf("value cannot be expressed as DEC(...)")
		}
		return "DEC(" + plain + ")", nil
	})
}

func replacePlaceholders(pattern *regexp.Regexp, data []byte, fn func(string) (string, error)) ([]byte, int, error) {
	matches := pattern.FindAllSubmatchIndex(data, -1)
	if len(matches) == 0 {
		return append([]byte(nil), data...), 0, nil
	}

	var buf bytes.Buffer
	last := 0
	for _, m := range matches {
		buf.Write(data[last:m[0]])
		out, err := fn(string(data[m[2]:m[3]]))
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", lineNumber(data, m[0]), err)
		}
		buf.WriteString(out)
		last = m[1]
	}
	buf.Write(data[last:])

	return buf.Bytes(), len(matches), nil
}

func lineNumber(data []byte, offset int) int {
	return bytes.Count(data[:offset], []byte{'\n'}) + 1
}
