package booking

import (
	"crypto/rand"
	"math/big"
	"time"
)

const (
	codePrefix     = "BK"
	codeTimeLayout = "20060102150405"
	codeSuffixLen  = 6
	codeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewCode builds a human-readable booking code: BK, the creation time to the
// second, then a random uppercase alphanumeric suffix.
func NewCode(now time.Time) (string, error) {
	suffix, err := RandomSuffix(codeSuffixLen)
	if err != nil {
		return "", err
	}
	return codePrefix + now.UTC().Format(codeTimeLayout) + suffix, nil
}

// RandomSuffix draws n characters uniformly from the code alphabet.
func RandomSuffix(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
