package auth

import (
	"github.com/gin-gonic/gin"
)

const (
	CookieName    = "analyzer_session"
	HeaderToken   = "X-Session-Token"
	sessionCtxKey = "sessionId"
)

// SessionID returns the session attached by SessionMiddleware.
func SessionID(c *gin.Context) (string, bool) {
	v, ok := c.Get(sessionCtxKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
