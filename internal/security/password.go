package security

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plain text password with bcrypt.
// The salt is randomized per call, so hashing the same input twice
// yields different digests.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
// A malformed hash is reported as a mismatch error, never a panic.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
