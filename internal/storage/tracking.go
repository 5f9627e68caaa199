package storage

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const trackingLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewTrackingID generates a citizen-facing reference like "GR518582ZTBEMB":
// the "GR" prefix, six digits, then six uppercase letters.
func NewTrackingID() (string, error) {
	digits := make([]byte, 6)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generating tracking digits: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	letters := make([]byte, 6)
	for i := range letters {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(trackingLetters))))
		if err != nil {
			return "", fmt.Errorf("generating tracking letters: %w", err)
		}
		letters[i] = trackingLetters[n.Int64()]
	}
	return "GR" + string(digits) + string(letters), nil
}
