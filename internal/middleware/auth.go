package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/fox-gonic/fox"
)

// Authentication checks the Authorization bearer token. An empty token allows every request;
// paths listed in open are never checked.
func Authentication(token string, open ...string) func(c *fox.Context) {
	return func(c *fox.Context) {
		if token == "" || isOpen(c.Request.URL.Path, open) {
			c.Next()
			return
		}
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"code": "UNAUTHORIZED", "message": "missing or invalid bearer token"},
			})
			return
		}
		c.Next()
	}
}

func isOpen(path string, open []string) bool {
	for _, p := range open {
		if path == p {
			return true
		}
	}
	return false
}
