package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zhanatb/linguabook/internal/metrics"
	"github.com/zhanatb/linguabook/internal/token"
)

const errUnauthorized = "Unauthorized"

// UserIDKey is the gin context key under which Auth stores the
// authenticated user's ID.
const UserIDKey = "userID"

// Auth validates a Bearer token and sets the subject's user ID in the gin
// context. Every rejection, whatever the cause, produces the same 401 body
// so a caller cannot tell a missing header from an expired or forged token.
func Auth(verifier *token.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			metrics.TokenRejectionsTotal.WithLabelValues("missing_header").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		raw := strings.TrimPrefix(header, "Bearer ")

		userID, err := verifier.Verify(raw)
		if err != nil {
			metrics.TokenRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrBadSignature):
		return "bad_signature"
	default:
		return "malformed"
	}
}
