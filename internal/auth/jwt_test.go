package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/stretchr/testify/require"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "campus-identity"
)

func signToken(t *testing.T, key, issuer, role string, subject string) string {
	t.Helper()

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestParse(t *testing.T) {
	subject := uuid.New().String()

	t.Run("valid token", func(t *testing.T) {
		tokenStr := signToken(t, testKey, testIssuer, "teacher", subject)

		claims, err := Parse(tokenStr, testKey, testIssuer)
		require.NoError(t, err)
		require.Equal(t, "teacher", claims.Role)
		require.Equal(t, subject, claims.Subject)
	})

	t.Run("wrong key", func(t *testing.T) {
		tokenStr := signToken(t, "other-key", testIssuer, "teacher", subject)

		_, err := Parse(tokenStr, testKey, testIssuer)
		require.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		tokenStr := signToken(t, testKey, "someone-else", "teacher", subject)

		_, err := Parse(tokenStr, testKey, testIssuer)
		require.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := Claims{
			Role: "teacher",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    testIssuer,
				Subject:   subject,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testKey))
		require.NoError(t, err)

		_, err = Parse(tokenStr, testKey, testIssuer)
		require.Error(t, err)
	})

	t.Run("wrong signing method", func(t *testing.T) {
		claims := Claims{
			Role: "teacher",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    testIssuer,
				Subject:   subject,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte(testKey))
		require.NoError(t, err)

		_, err = Parse(tokenStr, testKey, testIssuer)
		require.Error(t, err)
	})
}

func TestActorFromClaims(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name     string
		role     string
		subject  string
		wantKind models.ActorKind
		wantErr  bool
	}{
		{
			name:     "teacher maps to instructor",
			role:     "teacher",
			subject:  id.String(),
			wantKind: models.ActorInstructor,
		},
		{
			name:     "student maps to student",
			role:     "student",
			subject:  id.String(),
			wantKind: models.ActorStudent,
		},
		{
			name:    "unknown role",
			role:    "admin",
			subject: id.String(),
			wantErr: true,
		},
		{
			name:    "bad subject",
			role:    "student",
			subject: "not-a-uuid",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor, err := ActorFromClaims(Claims{
				Role: tt.role,
				RegisteredClaims: jwt.RegisteredClaims{
					Subject: tt.subject,
				},
			})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantKind, actor.Kind)
			require.Equal(t, id, actor.ID)
		})
	}
}

func TestExternalRole(t *testing.T) {
	require.Equal(t, "teacher", ExternalRole(models.ActorInstructor))
	require.Equal(t, "student", ExternalRole(models.ActorStudent))
	require.Equal(t, "system", ExternalRole(models.ActorSystem))
}
