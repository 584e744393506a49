package api

import (
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"akamai-analyzer/internal/analysis"
	"akamai-analyzer/internal/auth"
	"akamai-analyzer/internal/config"
	"akamai-analyzer/internal/llm"
	"akamai-analyzer/internal/metrics"
	"akamai-analyzer/internal/report"
	"akamai-analyzer/internal/rules"
)

var templateFuncs = template.FuncMap{
	"markdown": report.HTML,
}

// notices carried across the post/redirect/get cycle
var notices = map[string]string{
	"rule_added":   "Rule added!",
	"rule_removed": "Rule removed",
	"rule_empty":   "Please enter a rule",
	"rule_missing": "Rule not found",
}

type pageData struct {
	Subpath      string
	Providers    []llm.Info
	Selected     string
	DefaultRules []rules.Rule
	CustomRules  []rules.Rule
	Notice       string
	Warning      string
	Error        string
	Report       *analysis.Report
	MaxUploadMB  int
}

func basePage(cfg *config.Config, svc *Services) pageData {
	data := pageData{
		Subpath:      cfg.Server.Subpath,
		Providers:    svc.Analyzer.Providers().List(),
		DefaultRules: rules.Defaults(),
		MaxUploadMB:  cfg.Server.MaxUploadMB,
	}
	if p := svc.Analyzer.Providers().Default(); p != nil {
		data.Selected = p.Name()
	}
	return data
}

func homeURL(cfg *config.Config, notice string) string {
	target := cfg.Server.Subpath
	if target == "" {
		target = "/"
	}
	if notice != "" {
		target += "?notice=" + url.QueryEscape(notice)
	}
	return target
}

func mustSession(c *gin.Context) string {
	id, _ := auth.SessionID(c)
	return id
}

// GET /
func IndexHandler(cfg *config.Config, svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		data := basePage(cfg, svc)
		data.Notice = notices[c.Query("notice")]

		custom, err := svc.Rules.List(c.Request.Context(), mustSession(c))
		if err != nil {
			data.Error = "Failed to load custom rules"
			c.HTML(http.StatusInternalServerError, "index.html", data)
			return
		}
		data.CustomRules = custom
		c.HTML(http.StatusOK, "index.html", data)
	}
}

// POST /rules
func AddRuleFormHandler(cfg *config.Config, svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := rules.ParseRule(c.PostForm("rule"))
		if err != nil {
			c.Redirect(http.StatusSeeOther, homeURL(cfg, "rule_empty"))
			return
		}
		if err := svc.Rules.Add(c.Request.Context(), mustSession(c), r); err != nil {
			data := basePage(cfg, svc)
			data.Error = "Failed to save rule"
			c.HTML(http.StatusInternalServerError, "index.html", data)
			return
		}
		metrics.CustomRulesAdded.Inc()
		c.Redirect(http.StatusSeeOther, homeURL(cfg, "rule_added"))
	}
}

// POST /rules/:index/delete
func RemoveRuleFormHandler(cfg *config.Config, svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			c.Redirect(http.StatusSeeOther, homeURL(cfg, "rule_missing"))
			return
		}
		// the form echoes the rule it showed; a stale or repeated submit
		// must not delete whichever rule now sits at idx
		var want *rules.Rule
		if desc, ok := c.GetPostForm("description"); ok {
			want = &rules.Rule{Name: c.PostForm("name"), Description: desc}
		}
		err = svc.Rules.Remove(c.Request.Context(), mustSession(c), idx, want)
		switch {
		case errors.Is(err, rules.ErrRuleNotFound):
			c.Redirect(http.StatusSeeOther, homeURL(cfg, "rule_missing"))
		case err != nil:
			data := basePage(cfg, svc)
			data.Error = "Failed to remove rule"
			c.HTML(http.StatusInternalServerError, "index.html", data)
		default:
			c.Redirect(http.StatusSeeOther, homeURL(cfg, "rule_removed"))
		}
	}
}

// POST /analyze renders the page again with either the report or the error.
func AnalyzeFormHandler(cfg *config.Config, svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		session := mustSession(c)

		data := basePage(cfg, svc)
		if p := c.PostForm("provider"); p != "" {
			data.Selected = p
		}

		custom, err := svc.Rules.List(ctx, session)
		if err != nil {
			data.Error = "Failed to load custom rules"
			c.HTML(http.StatusInternalServerError, "index.html", data)
			return
		}
		data.CustomRules = custom

		apiKey := c.PostForm("api_key")
		var content []byte
		if strings.TrimSpace(apiKey) != "" {
			content, err = readUpload(c, "config", int64(cfg.Server.MaxUploadMB)<<20)
			if err != nil {
				status, msg := errorStatus(err)
				data.Warning = msg
				c.HTML(status, "index.html", data)
				return
			}
		}

		rep, err := svc.Analyzer.Analyze(ctx, analysis.Request{
			Provider:  data.Selected,
			APIKey:    apiKey,
			Config:    content,
			Rules:     rules.Combined(custom),
			SessionID: session,
		})
		if err != nil {
			status, msg := errorStatus(err)
			if analysis.IsInputError(err) {
				data.Warning = msg
			} else {
				data.Error = msg
			}
			c.HTML(status, "index.html", data)
			return
		}
		data.Report = rep
		c.HTML(http.StatusOK, "index.html", data)
	}
}

// readUpload returns the uploaded file's bytes, or nil when no file was sent.
func readUpload(c *gin.Context, field string, limit int64) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	if fh.Size > limit {
		return nil, errConfigTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit))
}
