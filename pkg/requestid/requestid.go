package requestid

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const DefaultHeaderKey = "X-Request-Id"

// ResolveHeaderKey returns the provided header key when non-empty,
// otherwise falls back to the default request id header key.
func ResolveHeaderKey(headerKey string) string {
	if v := strings.TrimSpace(headerKey); v != "" {
		return v
	}
	return DefaultHeaderKey
}

// Gen returns a time-ordered UUID (version 7) in canonical form.
func Gen() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Middleware keeps an inbound request id or generates one, echoes it on the
// response and stores it on the gin context under headerKey.
func Middleware(headerKey string) gin.HandlerFunc {
	headerKey = ResolveHeaderKey(headerKey)
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerKey))
		if id == "" || len(id) > 128 {
			id = Gen()
		}
		c.Set(headerKey, id)
		c.Header(headerKey, id)
		c.Next()
	}
}
