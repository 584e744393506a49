package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"akamai-analyzer/internal/analysis"
	"akamai-analyzer/internal/auth"
	"akamai-analyzer/internal/config"
	"akamai-analyzer/internal/llm"
	"akamai-analyzer/internal/rules"
)

const sampleConfig = `{"propertyName": "www.example.com", "rules": {"behaviors": [{"name": "origin"}]}}`

type fakeProvider struct {
	name  string
	kind  llm.Kind
	reply string
	err   error

	mu      sync.Mutex
	calls   int
	prompts []string
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Kind() llm.Kind { return f.kind }
func (f *fakeProvider) Model() string { return f.name + "-model" }

func (f *fakeProvider) Complete(_ context.Context, _, _, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeProvider) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type testEnv struct {
	cfg    *config.Config
	router *gin.Engine
	gpt    *fakeProvider
	gemini *fakeProvider
	store  *rules.MemoryStore
}

func newTestEnv(t *testing.T, subpath string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Subpath = subpath
	cfg.Server.SessionSecret = "test-secret"
	cfg.Server.SessionTTLMinutes = 30
	cfg.Server.MaxUploadMB = 1

	gpt := &fakeProvider{name: "gpt-4", kind: llm.KindOpenAI, reply: "## Overall security score\n\n85/100"}
	gem := &fakeProvider{name: "gemini-pro", kind: llm.KindGemini, reply: "## Findings\n\nAll good"}
	store := rules.NewMemoryStore(30 * time.Minute)

	svc := &Services{
		Analyzer: analysis.New(llm.NewRegistry(gpt, gem), nil),
		Rules:    store,
	}
	return &testEnv{cfg: cfg, router: SetupRouter(cfg, svc), gpt: gpt, gemini: gem, store: store}
}

// do sends req with the given session token and returns the recorder and
// the session token the server issued.
func (e *testEnv) do(req *http.Request, token string) (*httptest.ResponseRecorder, string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w, w.Header().Get(auth.HeaderToken)
}

func formRequest(target string, fields map[string]string) *http.Request {
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// uploadRequest builds the multipart analyze form. A nil file omits the
// file part entirely.
func uploadRequest(t *testing.T, target string, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("config", "property.json")
		require.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader(file))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
