package lobby

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	pinDigits   = 6
	pinAttempts = 10
)

var pinSpace = big.NewInt(1_000_000)

// randomPin returns a zero-padded six digit code a person can type.
func randomPin() (string, error) {
	n, err := rand.Int(rand.Reader, pinSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", pinDigits, n.Int64()), nil
}
