package latch

import (
	"crypto/rand"
	"math/big"
)

// DummyAccountIDLength is the length of the throwaway account id used
// for status calls on behalf of unpaired users.
const DummyAccountIDLength = 64

const accountIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomAccountID returns n characters drawn uniformly from accountIDAlphabet
func randomAccountID(n int) (string, error) {
	size := big.NewInt(int64(len(accountIDAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		out[i] = accountIDAlphabet[idx.Int64()]
	}
	return string(out), nil
}
