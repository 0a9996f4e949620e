package preflight

import (
	"context"

	"callqa/internal/auth"
	"callqa/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the directory, token, and backend checks for cfg. The
// session check only runs when a token was found.
func RunAll(ctx context.Context, cfg *config.Config, backend Backend, tokens auth.TokenProvider) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	token := CheckToken(ctx, tokens)
	results = append(results, token)

	if backend == nil {
		return results
	}
	if token.Passed {
		results = append(results, CheckSession(ctx, backend))
	}
	results = append(results, CheckAIService(ctx, backend))
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
