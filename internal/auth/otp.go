package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// otpDigits is the length of generated one-time codes.
const otpDigits = 6

// GenerateOTP returns a random 6-digit code and its bcrypt hash. Only the
// hash is persisted; the clear code goes to the mailer.
func GenerateOTP() (code, hash string, err error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", "", err
	}
	code = fmt.Sprintf("%0*d", otpDigits, n)
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return code, string(h), nil
}

// CheckOTP reports whether code matches the stored bcrypt hash.
func CheckOTP(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
