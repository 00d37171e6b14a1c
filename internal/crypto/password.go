package crypto

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a salted bcrypt hash. bcrypt embeds a fresh random
// salt in the output, so two calls with the same password never match.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword returns nil when password matches the stored hash.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
