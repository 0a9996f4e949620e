package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"callqa/internal/config"
	"callqa/internal/testsupport"
)

// fakeBackend is an in-memory stand-in for the evaluation API. Responses are
// plain JSON strings so tests read like the wire traffic they simulate.
type fakeBackend struct {
	t *testing.T

	mu             sync.Mutex
	uploadStatus   int
	uploadBody     string
	statusReplies  []string
	statusCalls    int
	uploadCalls    int
	requests       []string
	authHeaders    []string
	itemsBody      string
	carteirasBody  string
	evaluationBody string
	meBody         string
	loginToken     string
	aiHealthy      bool
	lastUploadForm map[string]string

	agentsBody     string
	summaryBody    string
	callsBody      string
	worstItemBody  string
	kpisBody       string
	trendBody      string
	reportQueries  []string
	lastSuggestion map[string]any
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{
		t:            t,
		uploadStatus: http.StatusOK,
		uploadBody:   `{"file_id": 42, "status": "pending"}`,
		statusReplies: []string{
			`{"status": "processing"}`,
			`{"status": "processing"}`,
			`{"status": "completed", "avaliacao_id": 99, "call_id": "c-1"}`,
		},
		itemsBody:     `[{"categoria": "saudacao_padrao", "resultado": "conforme", "descricao": "ok"}, {"categoria": "finalizacao_adequada", "resultado": "nao conforme"}]`,
		carteirasBody: `[{"id": 1, "nome": "Vendas", "ativo": true}, {"id": 2, "nome": "Cobrança", "ativo": false}]`,
		meBody:        `{"id": 3, "username": "ana", "full_name": "Ana Souza", "active": true}`,
		loginToken:    "issued-token",
		aiHealthy:     true,
		agentsBody:    `[{"agent_id": 7, "nome": "Bruna Lima", "ligacoes": 12, "media": "82.50"}, {"agent_id": "9", "nome": "Caio Reis", "ligacoes": 4, "media": 61.25}]`,
		summaryBody:   `{"agent_id": 7, "name": "Bruna Lima", "ligacoes": 12, "media": 82.5}`,
		callsBody:     `[{"avaliacao_id": 301, "call_id": "c-88", "data_ligacao": "2025-01-20", "pontuacao": 90, "status_avaliacao": "APROVADA"}]`,
		worstItemBody: `{"categoria": "finalizacao_adequada", "qtd_nao_conforme": 3, "total_avaliacoes_item": 4, "taxa_nao_conforme": "0.75"}`,
		kpisBody:      `{"media_geral": 74.3, "total_ligacoes": 16, "pior_item": {"categoria": "empatia", "nao_conformes": 5, "conformes": 11, "pct_nao_conforme": 31.25}}`,
		trendBody:     `[{"dia": "2025-01-20", "media": 70}, {"dia": "2025-01-21", "media": "78.5"}]`,
	}
	server := httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(server.Close)
	return fb, server
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.requests = append(fb.requests, r.Method+" "+r.URL.Path)
	fb.authHeaders = append(fb.authHeaders, r.Header.Get("Authorization"))

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/uploads/audio":
		fb.uploadCalls++
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			fb.t.Errorf("parse multipart: %v", err)
		}
		fb.lastUploadForm = map[string]string{
			"agent_id":    r.FormValue("agent_id"),
			"carteira_id": r.FormValue("carteira_id"),
		}
		w.WriteHeader(fb.uploadStatus)
		_, _ = w.Write([]byte(fb.uploadBody))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/uploads/"):
		reply := `{"status": "processing"}`
		if fb.statusCalls < len(fb.statusReplies) {
			reply = fb.statusReplies[fb.statusCalls]
		}
		fb.statusCalls++
		_, _ = w.Write([]byte(reply))
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/items"):
		_, _ = w.Write([]byte(fb.itemsBody))
	case r.Method == http.MethodGet && r.URL.Path == "/api/carteiras/":
		_, _ = w.Write([]byte(fb.carteirasBody))
	case r.Method == http.MethodPost && r.URL.Path == "/api/avaliacao/automatica":
		_, _ = w.Write([]byte(fb.evaluationBody))
	case r.Method == http.MethodPost && r.URL.Path == "/auth/token":
		if err := r.ParseForm(); err != nil {
			fb.t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("password") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail": "Usuário ou senha incorretos"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": fb.loginToken,
			"token_type":   "bearer",
			"user":         map[string]any{"username": r.PostForm.Get("username"), "full_name": "Ana Souza"},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/auth/me":
		if r.Header.Get("Authorization") != "Bearer "+fb.loginToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail": "Not authenticated"}`))
			return
		}
		_, _ = w.Write([]byte(fb.meBody))
	case r.Method == http.MethodGet && r.URL.Path == "/api/ai/health":
		if !fb.aiHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"detail": "ai offline"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/api/ai/suggestions":
		fb.lastSuggestion = map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&fb.lastSuggestion); err != nil {
			fb.t.Errorf("decode suggestion request: %v", err)
		}
		_, _ = w.Write([]byte(`{"title": "Plano de melhoria", "summary": "Reforçar a finalização", "specificActions": ["Revisar o roteiro"], "priority": "alta", "timeToImplement": "1 semana", "expectedImprovement": "+10 pontos"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/api/agents":
		fb.reportQueries = append(fb.reportQueries, r.URL.RawQuery)
		_, _ = w.Write([]byte(fb.agentsBody))
	case r.Method == http.MethodGet && r.URL.Path == "/api/kpis":
		fb.reportQueries = append(fb.reportQueries, r.URL.RawQuery)
		_, _ = w.Write([]byte(fb.kpisBody))
	case r.Method == http.MethodGet && r.URL.Path == "/api/trend":
		fb.reportQueries = append(fb.reportQueries, r.URL.RawQuery)
		_, _ = w.Write([]byte(fb.trendBody))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/agent/"):
		fb.reportQueries = append(fb.reportQueries, r.URL.RawQuery)
		fb.serveAgentReport(w, strings.TrimPrefix(r.URL.Path, "/api/agent/"))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail": "Not Found"}`))
	}
}

// serveAgentReport answers /api/agent/{id}/{resource}. Only agent 7 exists.
func (fb *fakeBackend) serveAgentReport(w http.ResponseWriter, rest string) {
	agentID, resource, _ := strings.Cut(rest, "/")
	if agentID != "7" {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail": "Agente não encontrado"}`))
		return
	}
	var body string
	switch resource {
	case "summary":
		body = fb.summaryBody
	case "calls":
		body = fb.callsBody
	case "worst_item":
		body = fb.worstItemBody
	}
	if body == "" {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail": "Nenhum item encontrado para esse agente e período"}`))
		return
	}
	_, _ = w.Write([]byte(body))
}

func (fb *fakeBackend) counts() (uploads, statuses int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.uploadCalls, fb.statusCalls
}

func (fb *fakeBackend) requestCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.requests)
}

type cliTestEnv struct {
	cfg        *config.Config
	backend    *fakeBackend
	configPath string
	baseDir    string
}

type envOption func(*config.Config)

func withoutToken() envOption {
	return func(cfg *config.Config) { cfg.Auth.Token = "" }
}

func setupCLITestEnv(t *testing.T, opts ...envOption) *cliTestEnv {
	t.Helper()

	backend, server := newFakeBackend(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithBaseURL(server.URL),
		testsupport.WithToken("test-token"),
	)
	cfg.Logging.Level = "error"
	for _, opt := range opts {
		opt(cfg)
	}

	base := testsupport.BaseDir(cfg)
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("CALLQA_API_URL", "")
	t.Setenv("CALLQA_TOKEN", "")
	t.Setenv("CALLQA_NTFY_TOPIC", "")
	t.Setenv("CALLQA_LOG_LEVEL", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		backend:    backend,
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	flags := []string{}
	if env != nil {
		flags = append(flags, "--config", env.configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func (fb *fakeBackend) queries() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.reportQueries...)
}

func (fb *fakeBackend) suggestionRequest() map[string]any {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastSuggestion
}
