package auth

import (
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/config"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// Role is the privilege level carried in a token
type Role string

const (
	RoleBidder Role = "bidder"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleBidder, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Claims are the JWT claims; the subject is the principal ID.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// MintToken issues a signed JWT for the principal using the configured TTL.
func MintToken(cfg config.JWTConfig, now time.Time, p Principal) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if cfg.TTL <= 0 {
		return "", fmt.Errorf("jwt ttl must be positive")
	}
	if strings.TrimSpace(p.ID) == "" {
		return "", fmt.Errorf("principal id is required")
	}
	if !p.Role.IsValid() {
		return "", fmt.Errorf("invalid role %q", p.Role)
	}

	claims := Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseToken validates the JWT string and returns the principal it names.
// Every failure wraps ErrUnauthenticated.
func ParseToken(cfg config.JWTConfig, tokenString string) (Principal, error) {
	if cfg.Secret == "" {
		return Principal{}, fmt.Errorf("%w: jwt secret is not configured", biddingerrors.ErrUnauthenticated)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", biddingerrors.ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: token has no subject", biddingerrors.ErrUnauthenticated)
	}

	role := claims.Role
	if role == "" {
		role = RoleBidder
	}
	if !role.IsValid() {
		return Principal{}, fmt.Errorf("%w: invalid role %q", biddingerrors.ErrUnauthenticated, role)
	}
	return Principal{ID: claims.Subject, Role: role}, nil
}
