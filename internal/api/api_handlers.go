package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"akamai-analyzer/internal/analysis"
	"akamai-analyzer/internal/config"
	"akamai-analyzer/internal/metrics"
	"akamai-analyzer/internal/rules"
)

// AnalyzeRequest is the JSON body of POST /api/analyze and the websocket
// message. Config may be the document itself or a string holding it.
type AnalyzeRequest struct {
	Provider string          `json:"provider"`
	APIKey   string          `json:"api_key"`
	Config   json.RawMessage `json:"config"`
	Rules    []string        `json:"rules"`
}

type AnalyzeResponse struct {
	Report     string       `json:"report"`
	Provider   string       `json:"provider"`
	Model      string       `json:"model"`
	Rules      []rules.Rule `json:"rules"`
	DurationMs int64        `json:"duration_ms"`
}

func responseFrom(rep *analysis.Report) AnalyzeResponse {
	return AnalyzeResponse{
		Report:     rep.Text,
		Provider:   rep.Provider,
		Model:      rep.Model,
		Rules:      rep.Rules,
		DurationMs: rep.Duration.Milliseconds(),
	}
}

// configBytes unwraps a JSON string; any other JSON value is used as sent.
func (r AnalyzeRequest) configBytes() []byte {
	raw := bytes.TrimSpace(r.Config)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return []byte(s)
		}
	}
	return []byte(r.Config)
}

// toAnalysisRequest merges the session's custom rules with any per-request
// rules after the defaults.
func (r AnalyzeRequest) toAnalysisRequest(c *gin.Context, svc *Services) (analysis.Request, error) {
	session := mustSession(c)
	custom, err := svc.Rules.List(c.Request.Context(), session)
	if err != nil {
		return analysis.Request{}, err
	}
	for _, text := range r.Rules {
		rule, err := rules.ParseRule(text)
		if err != nil {
			return analysis.Request{}, err
		}
		custom = append(custom, rule)
	}
	provider := r.Provider
	if provider == "" {
		if p := svc.Analyzer.Providers().Default(); p != nil {
			provider = p.Name()
		}
	}
	return analysis.Request{
		Provider:  provider,
		APIKey:    r.APIKey,
		Config:    r.configBytes(),
		Rules:     rules.Combined(custom),
		SessionID: session,
	}, nil
}

// GET /api/providers
func ListProvidersHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		reg := svc.Analyzer.Providers()
		resp := gin.H{"providers": reg.List()}
		if p := reg.Default(); p != nil {
			resp["default"] = p.Name()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GET /api/rules
func ListRulesHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		custom, err := svc.Rules.List(c.Request.Context(), mustSession(c))
		if err != nil {
			errorJSON(c, err)
			return
		}
		if custom == nil {
			custom = []rules.Rule{}
		}
		c.JSON(http.StatusOK, gin.H{
			"default": rules.Defaults(),
			"custom":  custom,
		})
	}
}

// POST /api/rules accepts {"rule": "NAME: description"} or
// {"name": ..., "description": ...}.
func AddRuleHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Rule        string `json:"rule"`
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request"}})
			return
		}

		var rule rules.Rule
		var err error
		if req.Name != "" || req.Description != "" {
			rule = rules.Rule{Name: strings.TrimSpace(req.Name), Description: strings.TrimSpace(req.Description)}
			if rule.Description == "" {
				err = rules.ErrEmptyRule
			}
		} else {
			rule, err = rules.ParseRule(req.Rule)
		}
		if err != nil {
			errorJSON(c, err)
			return
		}

		ctx := c.Request.Context()
		session := mustSession(c)
		if err := svc.Rules.Add(ctx, session, rule); err != nil {
			errorJSON(c, err)
			return
		}
		metrics.CustomRulesAdded.Inc()

		custom, err := svc.Rules.List(ctx, session)
		if err != nil {
			errorJSON(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"index": len(custom) - 1, "rule": rule, "custom": custom})
	}
}

// DELETE /api/rules/:index removes the rule at index. With ?description=
// (and optionally &name=) the rule there must match or nothing is removed.
func RemoveRuleHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid rule index"}})
			return
		}
		var want *rules.Rule
		if desc, ok := c.GetQuery("description"); ok {
			want = &rules.Rule{Name: c.Query("name"), Description: desc}
		}
		if err := svc.Rules.Remove(c.Request.Context(), mustSession(c), idx, want); err != nil {
			errorJSON(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

// POST /api/analyze
func AnalyzeHandler(cfg *config.Config, svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := int64(cfg.Server.MaxUploadMB) << 20
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+4096)

		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request"}})
			return
		}
		areq, err := req.toAnalysisRequest(c, svc)
		if err != nil {
			errorJSON(c, err)
			return
		}
		if int64(len(areq.Config)) > limit {
			errorJSON(c, errConfigTooLarge)
			return
		}

		rep, err := svc.Analyzer.Analyze(c.Request.Context(), areq)
		if err != nil {
			errorJSON(c, err)
			return
		}
		c.JSON(http.StatusOK, responseFrom(rep))
	}
}

// GET /api/audit lists the caller's own analysis history.
func ListAuditHandler(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		records, err := svc.Audit.Recent(c.Request.Context(), mustSession(c), limit)
		if err != nil {
			errorJSON(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	}
}
