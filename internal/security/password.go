package security

import (
	"crypto/rand"
	"errors"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// bcrypt refuses longer input
	MaxPasswordLength = 72
	MinPINLength      = 4
	MaxPINLength      = 6

	generatedPINLow  = 100000
	generatedPINHigh = 999999
)

var ErrMismatch = errors.New("secret does not match")

// HashSecret hashes a plain text password or PIN with bcrypt.
func HashSecret(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckSecret compares a bcrypt hash with a plaintext secret.
// Any failure, including a malformed hash, is reported as ErrMismatch.
func CheckSecret(hash, plain string) error {
	if hash == "" {
		return ErrMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return ErrMismatch
	}
	return nil
}

// ValidPIN reports whether pin is 4 to 6 ASCII digits.
func ValidPIN(pin string) bool {
	if len(pin) < MinPINLength || len(pin) > MaxPINLength {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

// ValidPassword reports whether password is 6 to 72 bytes long.
func ValidPassword(password string) bool {
	return len(password) >= MinPasswordLength && len(password) <= MaxPasswordLength
}

// GeneratePIN draws a 6-digit PIN uniformly from [100000, 999999].
func GeneratePIN() (string, error) {
	span := big.NewInt(generatedPINHigh - generatedPINLow + 1)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}

	return n.Add(n, big.NewInt(generatedPINLow)).String(), nil
}

// Bcrypt adapts HashSecret/CheckSecret to an injectable hasher.
// A zero Cost means bcrypt.DefaultCost.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(plain string) (string, error) {
	if b.Cost == 0 {
		return HashSecret(plain)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), b.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b Bcrypt) Check(hash, plain string) error {
	return CheckSecret(hash, plain)
}
