package services

import (
	"crypto/rand"
	"math/big"
)

const passwordChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// generatePassword returns a random alphanumeric password of 8 to 12 characters.
func generatePassword() (string, error) {
	size, err := rand.Int(rand.Reader, big.NewInt(5))
	if err != nil {
		return "", err
	}
	buf := make([]byte, 8+int(size.Int64()))
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordChars))))
		if err != nil {
			return "", err
		}
		buf[i] = passwordChars[n.Int64()]
	}
	return string(buf), nil
}
