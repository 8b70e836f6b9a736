package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-ops/internal/fetcher"
)

// UpstreamToken lifts the caller's bearer token onto the request
// context so the fetcher can attach it to every upstream call.
// Verification is the upstream's job; requests without a token are
// let through and fail at the first upstream call with an auth error.
func UpstreamToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
			ctx := fetcher.WithToken(c.Request.Context(), token)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
