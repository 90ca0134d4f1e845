package links

import (
	"crypto/rand"
	"regexp"
)

const (
	base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	DefaultCodeLength = 6
	MinCodeLength     = 6
	MaxCodeLength     = 8
)

// Bytes at or above this value are rejected so every alphabet symbol keeps
// the same probability (248 = 4 * 62).
const maxUnbiasedByte = 256 - 256%len(base62Alphabet)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// ValidCode reports whether s is an acceptable short code.
func ValidCode(s string) bool {
	return codePattern.MatchString(s)
}

type CryptoCodeGenerator struct{}

func NewCryptoCodeGenerator() *CryptoCodeGenerator { return &CryptoCodeGenerator{} }

func (g *CryptoCodeGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= maxUnbiasedByte {
				continue
			}
			out = append(out, base62Alphabet[int(b)%len(base62Alphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
