package auth

import "golang.org/x/crypto/bcrypt"

// HashSecret hashes a bridge client secret for AUTH_BRIDGE_SECRET_HASH.
func HashSecret(secret string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareSecret verifies a secret against its hashed value.
func CompareSecret(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
