package qaapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"callqa/internal/auth"
	"callqa/internal/evaluation"
	"callqa/internal/services"
	"callqa/internal/services/qaapi"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *qaapi.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := qaapi.NewClient(server.URL, qaapi.WithTokenProvider(auth.StaticToken(token)))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func writeAudio(t *testing.T, name string, payload string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestUploadAudioSendsMultipartFields(t *testing.T) {
	t.Parallel()

	path := writeAudio(t, "call1.mp3", "ID3-audio-bytes")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/uploads/audio" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("agent_id") != "17" || r.FormValue("carteira_id") != "Vendas" {
			t.Errorf("unexpected fields %v", r.MultipartForm.Value)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "call1.mp3" || string(data) != "ID3-audio-bytes" {
			t.Errorf("unexpected file %s %q", header.Filename, data)
		}
		_, _ = io.WriteString(w, `{"file_id":5,"status":"pending"}`)
	}, "secret")

	var lastSent, lastTotal atomic.Int64
	resp, err := client.UploadAudio(context.Background(), qaapi.UploadRequest{
		Path:        path,
		ContentType: "audio/mpeg",
		AgentID:     "17",
		CarteiraID:  "Vendas",
		Progress: func(sent, total int64) {
			lastSent.Store(sent)
			lastTotal.Store(total)
		},
	})
	if err != nil {
		t.Fatalf("UploadAudio: %v", err)
	}
	if resp.FileID != "5" || resp.Duplicate() {
		t.Fatalf("unexpected response %#v", resp)
	}
	if lastTotal.Load() != int64(len("ID3-audio-bytes")) || lastSent.Load() != lastTotal.Load() {
		t.Fatalf("expected full progress, got %d/%d", lastSent.Load(), lastTotal.Load())
	}
}

func TestUploadAudioDuplicateResponse(t *testing.T) {
	t.Parallel()

	path := writeAudio(t, "dup.wav", "RIFF")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"duplicate","call_id":"c-1","avaliacao_id":"77"}`)
	}, "secret")

	resp, err := client.UploadAudio(context.Background(), qaapi.UploadRequest{Path: path, AgentID: "1", CarteiraID: "Cobranca"})
	if err != nil {
		t.Fatalf("UploadAudio: %v", err)
	}
	if !resp.Duplicate() || resp.AvaliacaoID != "77" || resp.CallID != "c-1" {
		t.Fatalf("unexpected duplicate response %#v", resp)
	}
}

func TestUploadAudioSurfacesDetail(t *testing.T) {
	t.Parallel()

	path := writeAudio(t, "call.mp3", "x")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"detail":"disk full"}`)
	}, "secret")

	_, err := client.UploadAudio(context.Background(), qaapi.UploadRequest{Path: path, AgentID: "1", CarteiraID: "Vendas"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport marker, got %v", err)
	}
	if got := qaapi.ErrorMessage(err); got != "disk full" {
		t.Fatalf("expected backend detail, got %q", got)
	}
	if qaapi.StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", qaapi.StatusCode(err))
	}
}

func TestAuthenticatedCallWithoutTokenMakesNoRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, "")

	_, err := client.UploadStatus(context.Background(), "42")
	if !errors.Is(err, auth.ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
	if !errors.Is(err, services.ErrAuthentication) {
		t.Fatalf("expected authentication marker, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no requests, got %d", calls.Load())
	}
}

func TestUploadStatusDecodesFlexibleIDs(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/uploads/42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"status":"done","call_id":null,"avaliacao_id":99}`)
	}, "secret")

	resp, err := client.UploadStatus(context.Background(), "42")
	if err != nil {
		t.Fatalf("UploadStatus: %v", err)
	}
	if resp.AvaliacaoID != "99" || !resp.CallID.Empty() || resp.Failed() {
		t.Fatalf("unexpected status %#v", resp)
	}
}

func TestUnauthorizedMapsToAuthentication(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":[{"msg":"token expired"},{"msg":"login again"}]}`)
	}, "stale")

	_, err := client.Carteiras(context.Background())
	if !errors.Is(err, services.ErrAuthentication) {
		t.Fatalf("expected authentication marker, got %v", err)
	}
	if got := qaapi.ErrorMessage(err); got != "token expired; login again" {
		t.Fatalf("unexpected detail %q", got)
	}
}

func TestTranscribeNormalizesResult(t *testing.T) {
	t.Parallel()

	path := writeAudio(t, "call.wav", "RIFF")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/transcricao/upload" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if _, _, err := r.FormFile("arquivo"); err != nil {
			t.Errorf("expected arquivo part: %v", err)
		}
		_, _ = io.WriteString(w, `{"mensagem":"ok","transcricao":{"text":"Olá cliente","words":[
			{"text":"Olá","start":0.1,"end":0.4,"type":"word","speaker_id":"A","speaker_role":"agente"},
			{"text":" ","start":0.4,"end":0.5,"type":"spacing","speaker_id":"A"},
			{"text":"cliente","start":0.5,"end":1.25,"type":"word","speaker_id":"A"}
		]}}`)
	}, "secret")

	result, err := client.Transcribe(context.Background(), path)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.FileName != "call.wav" || result.WordCount != 2 {
		t.Fatalf("unexpected result %#v", result)
	}
	if result.Transcription.SpeakerClassifications == nil {
		t.Fatal("expected non-nil speaker classifications")
	}
	if result.TotalDuration != 1.25 {
		t.Fatalf("expected derived duration 1.25, got %v", result.TotalDuration)
	}
}

func TestEvaluateNormalizesItems(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req qaapi.EvaluationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.CarteiraID != 3 || req.Transcricao == "" {
			t.Errorf("unexpected request %#v", req)
		}
		_, _ = io.WriteString(w, `{
			"id_chamada": 12,
			"falha_critica": false,
			"itens": [
				{"criterio_id": 1, "criterio_nome": "saudacao_padrao", "status": "CONFORME", "peso": 2},
				{"criterio_id": 2, "criterio_nome": "empatia_genuina", "status": "Não Conforme", "observacao": "faltou empatia", "peso": 1}
			]
		}`)
	}, "secret")

	result, err := client.Evaluate(context.Background(), qaapi.EvaluationRequest{Transcricao: "texto", CarteiraID: 3})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.CallID != "12" || result.Evaluator != evaluation.DefaultEvaluator {
		t.Fatalf("unexpected result header %#v", result)
	}
	if len(result.Items) != 2 || result.Items[1].Status != evaluation.StatusNaoConforme {
		t.Fatalf("unexpected items %#v", result.Items)
	}
	if result.Percentage != 66.7 || result.Verdict != evaluation.VerdictRejected {
		t.Fatalf("expected derived 66.7%% rejected, got %v %s", result.Percentage, result.Verdict)
	}
}

func TestEvaluateRejectsMissingCarteira(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }, "secret")
	_, err := client.Evaluate(context.Background(), qaapi.EvaluationRequest{Transcricao: "texto"})
	if !errors.Is(err, services.ErrValidation) || calls.Load() != 0 {
		t.Fatalf("expected local validation failure, got %v (calls=%d)", err, calls.Load())
	}
}

func TestCallItemsMapsStoredShape(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/call/99/items" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[{"categoria":"clareza_direta","resultado":"NAO SE APLICA","descricao":"n/a"}]`)
	}, "secret")

	items, err := client.CallItems(context.Background(), "99")
	if err != nil {
		t.Fatalf("CallItems: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Clareza na Comunicação" || items[0].Status != evaluation.StatusNaoSeAplica || items[0].Note != "n/a" {
		t.Fatalf("unexpected items %#v", items)
	}
}

func TestGenerateSuggestionAppliesDefaults(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("suggestions must not carry a token")
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["agentId"] != "17" || body["timestamp"] == "" {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = io.WriteString(w, `{"title":"","priority":"urgent"}`)
	}, "secret")

	got, err := client.GenerateSuggestion(context.Background(), qaapi.SuggestionRequest{
		AgentName:      "Ana",
		AgentID:        "17",
		WorstCriterion: qaapi.WorstCriterion{Category: "empatia_genuina", NonConformRatio: 0.4},
	})
	if err != nil {
		t.Fatalf("GenerateSuggestion: %v", err)
	}
	if got.Title != qaapi.DefaultSuggestionTitle || got.Priority != "medium" || got.TimeToImplement != "2-4 semanas" {
		t.Fatalf("unexpected defaults %#v", got)
	}
	if got.SpecificActions == nil {
		t.Fatal("expected empty actions slice")
	}
}

func TestGenerateSuggestionFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, "")

	_, err := client.GenerateSuggestion(context.Background(), qaapi.SuggestionRequest{AgentID: "1"})
	if !errors.Is(err, qaapi.ErrSuggestionUnavailable) {
		t.Fatalf("expected ErrSuggestionUnavailable, got %v", err)
	}
	if client.AIHealth(context.Background()) {
		t.Fatal("expected AI health to be false")
	}
}

func TestLoginPostsForm(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("username") != "ana" || r.PostForm.Get("password") != "pw" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		_, _ = io.WriteString(w, `{"access_token":"jwt","token_type":"bearer","user":{"id":1,"username":"ana","full_name":"Ana Lima","active":true}}`)
	}, "")

	resp, err := client.Login(context.Background(), "ana", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken != "jwt" || resp.User.FullName != "Ana Lima" || resp.User.ID != "1" {
		t.Fatalf("unexpected login response %#v", resp)
	}
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	if _, err := qaapi.NewClient("localhost:8000/api"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestMeUsesBearerToken(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/auth/me" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization %q", got)
		}
		_, _ = io.WriteString(w, `{"id":"7","username":"ana","full_name":"Ana Lima","active":true}`)
	}, "secret")

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if user.Username != "ana" || user.ID != "7" || !user.Active {
		t.Fatalf("unexpected user %#v", user)
	}
}

func TestCallTranscriptFetchesStoredText(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/call/99/transcription" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"conteudo":"Bom dia, em que posso ajudar?","callerid":"5511999"}`)
	}, "secret")

	stored, err := client.CallTranscript(context.Background(), "99")
	if err != nil {
		t.Fatalf("CallTranscript: %v", err)
	}
	if stored.Content != "Bom dia, em que posso ajudar?" || stored.CallerID != "5511999" {
		t.Fatalf("unexpected transcript %#v", stored)
	}

	if _, err := client.CallTranscript(context.Background(), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank id, got %v", err)
	}
}

func TestCarteirasTreatsMissingActiveFlagAsEnabled(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/carteiras/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[{"id":1,"nome":"Vendas"},{"id":"2","nome":"Cobrança","ativo":false}]`)
	}, "secret")

	carteiras, err := client.Carteiras(context.Background())
	if err != nil {
		t.Fatalf("Carteiras: %v", err)
	}
	if len(carteiras) != 2 {
		t.Fatalf("expected 2 carteiras, got %d", len(carteiras))
	}
	if !carteiras[0].Enabled() || carteiras[1].Enabled() {
		t.Fatalf("unexpected enabled flags %#v", carteiras)
	}
	if carteiras[1].ID != "2" || carteiras[1].Name != "Cobrança" {
		t.Fatalf("unexpected carteira %#v", carteiras[1])
	}
}

func TestAIHealthIsUnauthenticated(t *testing.T) {
	t.Parallel()

	var healthy atomic.Bool
	healthy.Store(true)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ai/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("health probe should not carry a token")
		}
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}, "")

	if !client.AIHealth(context.Background()) {
		t.Fatal("expected healthy service")
	}
	healthy.Store(false)
	if client.AIHealth(context.Background()) {
		t.Fatal("expected unhealthy service")
	}
}
