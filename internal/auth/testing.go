package auth

import (
	"context"
	"crypto/rsa"
)

// TestKeyID is the kid that NewTestJWKS registers its key under.
const TestKeyID = "test-key-id"

// ContextWithPrincipal adds a principal to the context. Handler tests use it
// to skip token verification.
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// NewTestJWKS returns a key cache holding only publicKey under TestKeyID. It
// never fetches remote keys.
func NewTestJWKS(publicKey *rsa.PublicKey) *JWKS {
	return &JWKS{
		keys: map[string]*rsa.PublicKey{TestKeyID: publicKey},
	}
}
