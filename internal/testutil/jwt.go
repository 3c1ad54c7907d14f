package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/alaga-care/care-service/internal/auth"
	"github.com/golang-jwt/jwt/v4"
)

// GenerateTestKeyPair generates an RSA key pair for testing JWT tokens
func GenerateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

// GenerateTestJWT creates an ID token for userID accepted by CreateTestVerifier.
// With no roles the verifier falls back to its default role.
func GenerateTestJWT(t *testing.T, privateKey *rsa.PrivateKey, userID string, roles ...string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   userID,
		"iss":   TestIssuer,
		"aud":   TestAudience,
		"email": userID + "@example.com",
		"exp":   time.Now().Add(1 * time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	if len(roles) > 0 {
		claims["roles"] = interfaceSlice(roles)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = auth.TestKeyID

	tokenString, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	return tokenString
}

// GenerateCaregiverToken creates a CAREGIVER token for testing
func GenerateCaregiverToken(t *testing.T, privateKey *rsa.PrivateKey, userID string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, userID, "CAREGIVER")
}

// GenerateViewerToken creates a read-only VIEWER token for testing
func GenerateViewerToken(t *testing.T, privateKey *rsa.PrivateKey, userID string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, userID, "VIEWER")
}

// interfaceSlice converts []string to []interface{} for JWT claims
func interfaceSlice(strings []string) []interface{} {
	result := make([]interface{}, len(strings))
	for i, s := range strings {
		result[i] = s
	}
	return result
}
