package utils

import "crypto/rand"

const alphaNumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomAlphaNumeric returns an n-character random token. At 32 characters
// the token carries roughly 190 bits of entropy, so concurrent launches on
// one host never collide on channel names.
func RandomAlphaNumeric(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = alphaNumeric[int(b)%len(alphaNumeric)]
	}
	return string(buf), nil
}
