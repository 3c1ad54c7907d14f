package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Principal holds identity extracted from a validated token.
type Principal struct {
	UserID string
	Email  string
	Roles  []string
	Claims jwt.MapClaims
}

var (
	ErrNoToken         = errors.New("no token provided")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidIssuer   = errors.New("invalid issuer")
	ErrInvalidAudience = errors.New("invalid audience")
	ErrMissingSub      = errors.New("missing sub claim")
)

// Verifier checks ID tokens issued by the identity service.
type Verifier struct {
	cfg  Config
	keys KeySource
}

// NewVerifier constructs a verifier with config and a key source, normally a *JWKS.
func NewVerifier(cfg Config, keys KeySource) *Verifier {
	return &Verifier{cfg: cfg, keys: keys}
}

// ParseAndVerifyToken verifies a bearer token, validates issuer/audience/exp
// and returns Principal.
func (v *Verifier) ParseAndVerifyToken(tokenString string) (*Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrNoToken
	}
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		// enforce RS256
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrInvalidToken
		}
		return v.keys.Get(kid)
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if iss, _ := claims["iss"].(string); iss != v.cfg.Issuer {
		return nil, ErrInvalidIssuer
	}
	if v.cfg.Audience != "" && !claims.VerifyAudience(v.cfg.Audience, true) {
		return nil, ErrInvalidAudience
	}
	if !claims.VerifyExpiresAt(jwt.TimeFunc().Unix(), true) {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSub
	}

	email, _ := claims["email"].(string)

	return &Principal{
		UserID: sub,
		Email:  email,
		Roles:  v.roles(claims),
		Claims: claims,
	}, nil
}

// roles reads the custom "roles" (list) or "role" (single) claim.
func (v *Verifier) roles(claims jwt.MapClaims) []string {
	var roles []string
	switch rr := claims["roles"].(type) {
	case []interface{}:
		for _, r := range rr {
			if s, ok := r.(string); ok && s != "" {
				roles = append(roles, strings.ToUpper(s))
			}
		}
	case string:
		if rr != "" {
			roles = append(roles, strings.ToUpper(rr))
		}
	}
	if r, ok := claims["role"].(string); ok && r != "" {
		roles = append(roles, strings.ToUpper(r))
	}
	if len(roles) == 0 && v.cfg.DefaultRole != "" {
		roles = []string{v.cfg.DefaultRole}
	}
	return roles
}
