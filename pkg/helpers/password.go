package helpers

import "golang.org/x/crypto/bcrypt"

// dummyHash is compared against when no account matches, so unknown emails
// cost the same bcrypt work as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// HashPassword hashes the plain text password using bcrypt
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareHashAndPassword compares a bcrypt hash with a plain password
func CompareHashAndPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// BurnPasswordCheck performs a throwaway comparison.
func BurnPasswordCheck(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
