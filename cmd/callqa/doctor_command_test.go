package main

import (
	"encoding/json"
	"strings"
	"testing"

	"callqa/internal/preflight"
)

func TestDoctorAllChecksPass(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.loginToken = "test-token"

	out, _, err := runCLI(t, env, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "State directory:")
	requireContains(t, out, "[OK] signed in as ana")
	requireContains(t, out, "[OK] reachable")
}

func TestDoctorReportsRejectedToken(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.aiHealthy = false

	out, _, err := runCLI(t, env, "doctor", "--json")
	if err == nil {
		t.Fatal("expected doctor to fail")
	}
	if !strings.Contains(err.Error(), "2 of 5 checks failed") {
		t.Fatalf("unexpected error: %v", err)
	}
	var results []preflight.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	byName := map[string]preflight.Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	if got := byName["Backend session"]; got.Passed || !strings.Contains(got.Detail, "token rejected") {
		t.Fatalf("session result = %+v", got)
	}
	if got := byName["AI service"]; got.Passed {
		t.Fatalf("ai result = %+v", got)
	}
}

func TestDoctorOfflineSkipsBackend(t *testing.T) {
	env := setupCLITestEnv(t, withoutToken())

	out, _, err := runCLI(t, env, "doctor", "--offline")
	if err == nil {
		t.Fatal("expected missing token to fail")
	}
	requireContains(t, out, "missing (run 'callqa login')")
	if strings.Contains(out, "AI service") {
		t.Fatalf("offline doctor contacted backend:\n%s", out)
	}
	if n := env.backend.requestCount(); n != 0 {
		t.Fatalf("expected no backend requests, got %d", n)
	}
}
