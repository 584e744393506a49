package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akamai-analyzer/internal/llm"
	"akamai-analyzer/internal/rules"
)

func TestIndex_ListsDefaultRulesAndProviders(t *testing.T) {
	env := newTestEnv(t, "")
	w, _ := env.do(httptest.NewRequest(http.MethodGet, "/", nil), "")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	for _, r := range rules.Defaults() {
		assert.Contains(t, body, r.Name)
	}
	assert.Contains(t, body, `value="gpt-4" selected`)
	assert.Contains(t, body, `value="gemini-pro"`)
	assert.Contains(t, body, "No custom rules yet.")
	assert.NotContains(t, body, "Analysis Report")
}

func TestAddRuleForm_RedirectsWithNotice(t *testing.T) {
	env := newTestEnv(t, "")

	w, token := env.do(formRequest("/rules", map[string]string{"rule": "HSTS_ENABLED: HSTS must be on"}), "")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?notice=rule_added", w.Header().Get("Location"))

	w, _ = env.do(httptest.NewRequest(http.MethodGet, "/?notice=rule_added", nil), token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Rule added!")
	assert.Contains(t, w.Body.String(), "HSTS_ENABLED: HSTS must be on")
	assert.Contains(t, w.Body.String(), `action="/rules/0/delete"`)
}

func TestAddRuleForm_Empty(t *testing.T) {
	env := newTestEnv(t, "")
	w, token := env.do(formRequest("/rules", map[string]string{"rule": "   "}), "")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?notice=rule_empty", w.Header().Get("Location"))

	w, _ = env.do(httptest.NewRequest(http.MethodGet, "/", nil), token)
	assert.Contains(t, w.Body.String(), "No custom rules yet.")
}

func TestRemoveRuleForm(t *testing.T) {
	env := newTestEnv(t, "")
	_, token := env.do(formRequest("/rules", map[string]string{"rule": "ONE: first"}), "")
	_, token = env.do(formRequest("/rules", map[string]string{"rule": "TWO: second"}), token)

	w, token := env.do(formRequest("/rules/0/delete", nil), token)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?notice=rule_removed", w.Header().Get("Location"))

	w, token = env.do(formRequest("/rules/5/delete", nil), token)
	assert.Equal(t, "/?notice=rule_missing", w.Header().Get("Location"))

	w, _ = env.do(httptest.NewRequest(http.MethodGet, "/", nil), token)
	assert.NotContains(t, w.Body.String(), "ONE: first")
	assert.Contains(t, w.Body.String(), "TWO: second")
}

func TestAnalyzeForm_OneCallWithRulesAndConfig(t *testing.T) {
	env := newTestEnv(t, "")
	_, token := env.do(formRequest("/rules", map[string]string{"rule": "HSTS_ENABLED: HSTS must be on"}), "")

	req := uploadRequest(t, "/analyze", map[string]string{"provider": "gpt-4", "api_key": "sk-test"}, []byte(sampleConfig))
	w, _ := env.do(req, token)
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, 1, env.gpt.callCount())
	assert.Equal(t, 0, env.gemini.callCount())
	p := env.gpt.lastPrompt()
	assert.Contains(t, p, sampleConfig)
	for _, r := range rules.Defaults() {
		assert.Contains(t, p, r.Name+": "+r.Description)
	}
	assert.Contains(t, p, "HSTS_ENABLED: HSTS must be on")

	body := w.Body.String()
	assert.Contains(t, body, "Analysis Report")
	assert.Contains(t, body, "<h2>Overall security score</h2>")
	assert.NotContains(t, body, "sk-test")
}

func TestAnalyzeForm_MissingInputsMakeNoCall(t *testing.T) {
	cases := []struct {
		name    string
		fields  map[string]string
		file    []byte
		warning string
	}{
		{"no key", map[string]string{"provider": "gpt-4"}, []byte(sampleConfig), "Please enter your API key"},
		{"blank key", map[string]string{"provider": "gpt-4", "api_key": "  "}, []byte(sampleConfig), "Please enter your API key"},
		{"no file", map[string]string{"provider": "gpt-4", "api_key": "sk"}, nil, "Please upload an Akamai configuration file"},
		{"empty file", map[string]string{"provider": "gpt-4", "api_key": "sk"}, []byte{}, "Please upload an Akamai configuration file"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, "")
			w, _ := env.do(uploadRequest(t, "/analyze", tc.fields, tc.file), "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.warning)
			assert.Contains(t, w.Body.String(), `class="warning"`)
			assert.NotContains(t, w.Body.String(), "Analysis Report")
			assert.Equal(t, 0, env.gpt.callCount())
			assert.Equal(t, 0, env.gemini.callCount())
		})
	}
}

func TestAnalyzeForm_TooLarge(t *testing.T) {
	env := newTestEnv(t, "")
	big := []byte(`{"pad":"` + strings.Repeat("a", 1<<20) + `"}`)
	w, _ := env.do(uploadRequest(t, "/analyze", map[string]string{"api_key": "sk"}, big), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, 0, env.gpt.callCount())
}

func TestAnalyzeForm_ProviderErrorShowsNoReport(t *testing.T) {
	env := newTestEnv(t, "")
	env.gpt.err = &llm.ProviderError{Provider: "gpt-4", Err: errors.New("invalid api key")}

	w, _ := env.do(uploadRequest(t, "/analyze", map[string]string{"provider": "gpt-4", "api_key": "bad"}, []byte(sampleConfig)), "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 1, env.gpt.callCount())
	body := w.Body.String()
	assert.Contains(t, body, "Analysis failed: invalid api key")
	assert.Contains(t, body, `class="error"`)
	assert.NotContains(t, body, "Analysis Report")
}

func TestAnalyzeForm_UnknownProvider(t *testing.T) {
	env := newTestEnv(t, "")
	w, _ := env.do(uploadRequest(t, "/analyze", map[string]string{"provider": "claude", "api_key": "sk"}, []byte(sampleConfig)), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unsupported model")
	assert.Equal(t, 0, env.gpt.callCount()+env.gemini.callCount())
}

func TestAnalyzeForm_SwitchingProviderKeepsRules(t *testing.T) {
	env := newTestEnv(t, "")
	_, token := env.do(formRequest("/rules", map[string]string{"rule": "CUSTOM_ONE: keep me"}), "")

	_, token = env.do(uploadRequest(t, "/analyze", map[string]string{"provider": "gpt-4", "api_key": "sk"}, []byte(sampleConfig)), token)
	w, _ := env.do(uploadRequest(t, "/analyze", map[string]string{"provider": "gemini-pro", "api_key": "gk"}, []byte(sampleConfig)), token)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1, env.gpt.callCount())
	assert.Equal(t, 1, env.gemini.callCount())
	assert.Contains(t, env.gemini.lastPrompt(), "CUSTOM_ONE: keep me")
	assert.Contains(t, w.Body.String(), `value="gemini-pro" selected`)
	assert.Contains(t, w.Body.String(), "CUSTOM_ONE: keep me")
}

func TestRemoveRuleForm_RepeatedSubmitRemovesOnce(t *testing.T) {
	env := newTestEnv(t, "")
	_, token := env.do(formRequest("/rules", map[string]string{"rule": "FIRST: remove me"}), "")
	w, token := env.do(formRequest("/rules", map[string]string{"rule": "SECOND: keep me"}), token)
	require.Equal(t, http.StatusSeeOther, w.Code)

	w, token = env.do(httptest.NewRequest(http.MethodGet, "/", nil), token)
	assert.Contains(t, w.Body.String(), `name="description" value="remove me"`)

	removal := map[string]string{"name": "FIRST", "description": "remove me"}
	w, token = env.do(formRequest("/rules/0/delete", removal), token)
	assert.Equal(t, "/?notice=rule_removed", w.Header().Get("Location"))

	w, token = env.do(formRequest("/rules/0/delete", removal), token)
	assert.Equal(t, "/?notice=rule_missing", w.Header().Get("Location"))

	w, _ = env.do(httptest.NewRequest(http.MethodGet, "/", nil), token)
	assert.NotContains(t, w.Body.String(), "FIRST: remove me")
	assert.Contains(t, w.Body.String(), "SECOND: keep me")
}
