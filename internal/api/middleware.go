package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/util"
)

const (
	identityKey       = "identity"
	sessionCartCookie = "session_cart_id"
)

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

// authOptional parses a bearer token when present; anonymous requests
// proceed without an identity.
func authOptional(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, ok := bearerIdentity(c, secret); ok {
			c.Set(identityKey, identity)
		}
		c.Next()
	}
}

// authRequired rejects requests without a valid bearer token
func authRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := bearerIdentity(c, secret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// adminRequired rejects non-admin callers. Must run after authRequired.
func adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !callerIdentity(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			return
		}
		c.Next()
	}
}

func bearerIdentity(c *gin.Context, secret string) (models.Identity, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return models.Identity{}, false
	}

	identity, err := auth.ParseToken(strings.TrimPrefix(header, "Bearer "), secret)
	if err != nil {
		return models.Identity{}, false
	}
	return identity, true
}

// callerIdentity returns the identity set by the auth middleware, or the
// zero identity for anonymous callers.
func callerIdentity(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(models.Identity); ok {
			return identity
		}
	}
	return models.Identity{}
}

// sessionCartID resolves the anonymous cart key from the header or cookie.
func sessionCartID(c *gin.Context) string {
	if id := c.GetHeader("X-Session-Cart-Id"); id != "" {
		return id
	}
	if id, err := c.Cookie(sessionCartCookie); err == nil {
		return id
	}
	return ""
}
