package cryptox

import "crypto/rand"

// RandBytes returns n bytes from the platform CSPRNG. Randomness being
// unavailable makes every key and IV in the system unsafe, so this panics
// instead of returning an error.
func RandBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("cryptox: no secure randomness source: " + err.Error())
	}
	return b
}
