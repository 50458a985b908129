package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rajeshk/taskhub/internal/auth"
	"github.com/rajeshk/taskhub/internal/observability"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

type AuthMiddleware struct {
	jwt  TokenVerifier
	prom *observability.Prom
}

func NewAuthMiddleware(jwt TokenVerifier, prom *observability.Prom) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, prom: prom}
}

const ctxUserIDKey = "auth.userID"

func (m *AuthMiddleware) countFailure(kind string) {
	if m.prom != nil {
		m.prom.AuthFailures.WithLabelValues(kind).Inc()
	}
}

// RequireAuth gates every protected endpoint. The check runs
// independently per request; there is no session or per-request cache.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.countFailure("missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "No token provided",
				},
			})
			return
		}

		// Take the second whitespace-separated component of
		// "Bearer <token>". A header without one is rejected as an
		// invalid token rather than a dedicated malformed-header kind.
		parts := strings.Fields(authHeader)

		raw := ""

		if len(parts) >= 2 {
			raw = parts[1]
		}

		userID, err := m.jwt.VerifyToken(raw)

		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				m.countFailure("expired")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": gin.H{
						"code":    "token_expired",
						"message": "Token expired",
					},
				})
				return
			}

			m.countFailure("invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "token_invalid",
					"message": "Invalid token",
				},
			})
			return
		}

		// Stash the resolved identity on the context
		c.Set(ctxUserIDKey, userID)

		c.Next()
	}
}

// UserIDFromContext lets handlers read the resolved identity without
// knowing the magic key.
func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
