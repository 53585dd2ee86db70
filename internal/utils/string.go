package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	LowercaseBytes = "abcdefghijklmnopqrstuvwxyz"
	UppercaseBytes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	NumberBytes    = "0123456789"
	SpecialBytes   = "!@#$%&*+-_=?"
	letterBytes    = NumberBytes + LowercaseBytes + UppercaseBytes
)

// RandomString returns a string of the given size drawn from crypto/rand. When charSetOptions are provided, they are
// concatenated and used instead of the default alphanumeric charset.
func RandomString(size int, charSetOptions ...string) (string, error) {
	charSet := letterBytes
	if len(charSetOptions) > 0 {
		charSet = ""
		for _, cs := range charSetOptions {
			charSet += cs
		}
	}
	if charSet == "" {
		return "", fmt.Errorf("charset cannot be empty")
	}

	b := make([]byte, size)
	for i := range b {
		randInt, err := rand.Int(rand.Reader, big.NewInt(int64(len(charSet))))
		if err != nil {
			return "", fmt.Errorf("error generating random number in RandomString: %w", err)
		}

		b[i] = charSet[randInt.Int64()]
	}
	return string(b), nil
}

// RandomIntInRange returns a uniformly distributed number in [minValue, maxValue].
func RandomIntInRange(minValue, maxValue int) (int, error) {
	if maxValue < minValue {
		return 0, fmt.Errorf("invalid range [%d, %d]", minValue, maxValue)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(maxValue-minValue+1)))
	if err != nil {
		return 0, fmt.Errorf("generating random number: %w", err)
	}
	return minValue + int(n.Int64()), nil
}

func TruncateString(str string, borderSizeToKeep int) string {
	if len(str) <= 2*borderSizeToKeep {
		return str
	}
	return str[:borderSizeToKeep] + "..." + str[len(str)-borderSizeToKeep:]
}
