package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"akamai-analyzer/internal/config"
	"akamai-analyzer/internal/logging"
)

// SessionMiddleware gives every visitor an anonymous session. The session
// id travels in a signed cookie (or a Bearer token for API clients); a
// missing, expired or tampered token starts a new session. The token is
// re-issued on each request so the session expires only after inactivity.
func SessionMiddleware(cfg *config.Config) gin.HandlerFunc {
	ttl := time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute
	cookiePath := cfg.Server.Subpath
	if cookiePath == "" {
		cookiePath = "/"
	}
	log := logging.For("Session")

	return func(c *gin.Context) {
		var sessionID string
		if tokenStr := tokenFromRequest(c); tokenStr != "" {
			if claims, err := ParseJWT(cfg.Server.SessionSecret, tokenStr); err == nil {
				sessionID = claims.SessionID
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
			log.WithField("session", sessionID).Debug("new session")
		}

		token, err := GenerateJWT(cfg.Server.SessionSecret, sessionID, ttl)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Failed to issue session"}})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, token, int(ttl.Seconds()), cookiePath, "", false, true)
		c.Header(HeaderToken, token)

		c.Set(sessionCtxKey, sessionID)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}
