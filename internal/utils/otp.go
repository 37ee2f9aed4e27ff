package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateOTP generates a cryptographically secure numeric code with the
// given number of digits and no leading zero.
func GenerateOTP(digits int) (string, error) {
	if digits < 1 || digits > 9 {
		return "", fmt.Errorf("unsupported OTP length %d", digits)
	}

	low := int64(1)
	for i := 1; i < digits; i++ {
		low *= 10
	}
	// Random number in [low, 10*low)
	n, err := rand.Int(rand.Reader, big.NewInt(9*low))
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+low), nil
}
