package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"lab-allocation-backend/internal/model"
)

// Claims represents the JWT claims. The subject carries the caller's uid.
type Claims struct {
	LoginID string     `json:"login_id"`
	Name    string     `json:"name"`
	Role    model.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed token for identity that expires after ttl.
func GenerateToken(secret string, identity model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		LoginID: identity.LoginID,
		Name:    identity.Name,
		Role:    identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.UID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// Resolver turns bearer tokens into caller identities.
type Resolver struct {
	secret string
}

// NewResolver creates a resolver for tokens signed with secret.
func NewResolver(secret string) *Resolver {
	return &Resolver{secret: secret}
}

// Resolve validates token and returns the identity it asserts. Every failure wraps
// model.ErrUnauthenticated.
func (r *Resolver) Resolve(token string) (model.Identity, error) {
	claims, err := ValidateToken(r.secret, token)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", model.ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return model.Identity{}, fmt.Errorf("%w: token has no subject", model.ErrUnauthenticated)
	}
	if !claims.Role.Valid() {
		return model.Identity{}, fmt.Errorf("%w: unknown role %q", model.ErrUnauthenticated, claims.Role)
	}
	return model.Identity{
		UID:     claims.Subject,
		LoginID: claims.LoginID,
		Name:    claims.Name,
		Role:    claims.Role,
	}, nil
}
