package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rollcall-app/rollcall/internal/models"
)

const actorContextKey = "actor"

// Middleware enforces bearer JWT tokens signed with HS256 and resolves the
// caller into an Actor on the gin context.
func Middleware(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		actor, err := ActorFromClaims(claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// RequireKind aborts requests whose actor is not of the given kind.
func RequireKind(kind models.ActorKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok || actor.Kind != kind {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role mismatch", "required_role": ExternalRole(kind)})
			return
		}
		c.Next()
	}
}

// ActorFromContext returns the actor resolved by Middleware.
func ActorFromContext(c *gin.Context) (Actor, bool) {
	value, exists := c.Get(actorContextKey)
	if !exists {
		return Actor{}, false
	}
	actor, ok := value.(Actor)
	return actor, ok
}
