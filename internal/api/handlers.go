package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"akamai-analyzer/internal/analysis"
	"akamai-analyzer/internal/config"
	"akamai-analyzer/internal/llm"
	"akamai-analyzer/internal/logging"
	"akamai-analyzer/internal/rules"
)

var errConfigTooLarge = errors.New("configuration file is too large")

// GET /health
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GET /config
func configHandler(cfg *config.Config, svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only return non-sensitive config fields
		c.JSON(http.StatusOK, gin.H{
			"server": gin.H{
				"host":          cfg.Server.Host,
				"port":          cfg.Server.Port,
				"subpath":       cfg.Server.Subpath,
				"max_upload_mb": cfg.Server.MaxUploadMB,
			},
			"providers":     svc.Analyzer.Providers().List(),
			"default_rules": rules.Defaults(),
		})
	}
}

func requestLogger() gin.HandlerFunc {
	log := logging.For("HTTP")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithField("method", c.Request.Method).
			WithField("path", c.Request.URL.Path).
			WithField("status", c.Writer.Status()).
			WithField("ms", time.Since(start).Milliseconds()).
			Debug("request")
	}
}

// errorStatus maps an analysis error to the HTTP status and the message
// shown to the user.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, analysis.ErrMissingAPIKey):
		return http.StatusBadRequest, "Please enter your API key"
	case errors.Is(err, analysis.ErrMissingConfig):
		return http.StatusBadRequest, "Please upload an Akamai configuration file"
	case errors.Is(err, errConfigTooLarge):
		return http.StatusRequestEntityTooLarge, "Configuration file is too large"
	case errors.Is(err, analysis.ErrNoRules):
		return http.StatusBadRequest, "At least one security rule is required"
	case errors.Is(err, llm.ErrUnknownProvider):
		return http.StatusBadRequest, "Unsupported model"
	case errors.Is(err, rules.ErrEmptyRule):
		return http.StatusBadRequest, "Please enter a rule"
	case errors.Is(err, rules.ErrRuleNotFound):
		return http.StatusNotFound, "Rule not found"
	}
	var perr *llm.ProviderError
	if errors.As(err, &perr) {
		return http.StatusBadGateway, "Analysis failed: " + perr.Err.Error()
	}
	return http.StatusInternalServerError, "Internal error"
}

func errorJSON(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	c.JSON(status, gin.H{"error": gin.H{"message": msg}})
}
