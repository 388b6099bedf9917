package latch

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used by HashPassword. It is a variable
// so test binaries can drop to bcrypt.MinCost, every login otherwise pays
// the production cost. Raising it only affects hashes created afterwards,
// stored hashes carry their own cost.
var PasswordCost = 12

// HashPassword hashes a credential backend password. Empty passwords are
// rejected with ErrNoEmptyString.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(h), err
}

// ComparePasswordAndHash checks password against a stored hash. A mismatch
// is reported as ErrMismatchedHashAndPassword so callers can not tell it
// apart from an unknown identifier.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// RandomPasswordHash hashes a random password. UserProvider compares
// unknown identifiers against it so they cost as much as a real user.
func RandomPasswordHash() string {
	h, err := HashPassword(uuid.NewString())
	if err != nil {
		return RandomPasswordHash()
	}
	return h
}
