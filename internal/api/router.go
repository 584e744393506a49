package api

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"akamai-analyzer/internal/analysis"
	"akamai-analyzer/internal/audit"
	"akamai-analyzer/internal/auth"
	"akamai-analyzer/internal/config"
	"akamai-analyzer/internal/rules"
)

//go:embed templates/*.html
var templateFS embed.FS

// Services are the dependencies shared by all handlers.
type Services struct {
	Analyzer *analysis.Analyzer
	Rules    rules.Store
	Audit    audit.Sink
}

func SetupRouter(cfg *config.Config, svc *Services) *gin.Engine {
	if svc.Audit == nil {
		svc.Audit = audit.NopSink{}
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.MaxMultipartMemory = int64(cfg.Server.MaxUploadMB) << 20

	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))
	r.SetHTMLTemplate(tmpl)

	subpath := cfg.Server.Subpath // "" or e.g. "/analyzer", never with a trailing slash

	group := r.Group(subpath)
	group.GET("/health", healthHandler)
	group.GET("/config", configHandler(cfg, svc))
	group.GET("/metrics", gin.WrapH(promhttp.Handler()))

	session := group.Group("", auth.SessionMiddleware(cfg))
	{
		// Page routes
		if subpath == "" {
			session.GET("/", IndexHandler(cfg, svc))
		} else {
			r.GET(subpath, auth.SessionMiddleware(cfg), IndexHandler(cfg, svc))
			r.GET(subpath+"/", func(c *gin.Context) {
				c.Redirect(http.StatusMovedPermanently, subpath)
			})
		}
		session.POST("/rules", AddRuleFormHandler(cfg, svc))
		session.POST("/rules/:index/delete", RemoveRuleFormHandler(cfg, svc))
		session.POST("/analyze", AnalyzeFormHandler(cfg, svc))

		// JSON API
		session.GET("/api/providers", ListProvidersHandler(svc))
		session.GET("/api/rules", ListRulesHandler(svc))
		session.POST("/api/rules", AddRuleHandler(svc))
		session.DELETE("/api/rules/:index", RemoveRuleHandler(svc))
		session.POST("/api/analyze", AnalyzeHandler(cfg, svc))
		session.GET("/api/audit", ListAuditHandler(svc))

		// Websocket analyze with a status frame before the report
		session.GET("/ws/analyze", WSAnalyzeHandler(cfg, svc))
	}
	return r
}
