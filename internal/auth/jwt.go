package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
)

// Identity tokens are minted by the campus identity service; this service
// only verifies and reads them.

// Claims is the JWT payload this service understands.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Actor is the resolved caller of a request.
type Actor struct {
	Kind models.ActorKind
	ID   uuid.UUID
}

// Parse validates a token string and returns its claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	return *claims, nil
}

// ActorFromClaims resolves the claims into an actor.
func ActorFromClaims(claims Claims) (Actor, error) {
	kind, err := internalKind(claims.Role)
	if err != nil {
		return Actor{}, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid subject: %w", err)
	}

	return Actor{Kind: kind, ID: id}, nil
}

// The identity service names roles "teacher" and "student" on the wire;
// internally this service works with actor kinds. Both translations live
// here and nowhere else, so the mapping stays auditable.

func internalKind(role string) (models.ActorKind, error) {
	switch role {
	case "teacher":
		return models.ActorInstructor, nil
	case "student":
		return models.ActorStudent, nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

// ExternalRole returns the wire name for an actor kind.
func ExternalRole(kind models.ActorKind) string {
	switch kind {
	case models.ActorInstructor:
		return "teacher"
	case models.ActorStudent:
		return "student"
	default:
		return string(kind)
	}
}
