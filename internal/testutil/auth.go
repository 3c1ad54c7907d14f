package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/alaga-care/care-service/internal/auth"
)

const (
	TestIssuer   = "https://securetoken.google.com/alaga-care-test"
	TestAudience = "alaga-care-test"
)

// CreateTestVerifier creates a verifier that accepts tokens signed by the
// returned private key.
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)

	cfg := auth.Config{
		Issuer:      TestIssuer,
		Audience:    TestAudience,
		DefaultRole: "CAREGIVER",
	}

	return auth.NewVerifier(cfg, auth.NewTestJWKS(publicKey)), privateKey
}
