package credential

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	// OTPLength is the number of digits in a one-time code.
	OTPLength = 6
	// ResetTokenBytes is the entropy of a password reset token before hex encoding.
	ResetTokenBytes = 32
)

var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly distributed 6-digit numeric code. Leading
// zeros are preserved, so the result is always exactly six characters.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// GenerateResetToken returns a 64-character hex token backed by 256 bits of
// CSPRNG entropy, infeasible to enumerate within its validity window.
func GenerateResetToken() (string, error) {
	b := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
