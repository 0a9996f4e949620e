package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"callqa/internal/auth"
	"callqa/internal/services/qaapi"
)

const backendCheckTimeout = 10 * time.Second

// Backend is the subset of the API client the checks need.
type Backend interface {
	Me(ctx context.Context) (qaapi.User, error)
	AIHealth(ctx context.Context) bool
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckToken reports whether a bearer token is available locally. It does
// not contact the backend.
func CheckToken(ctx context.Context, tokens auth.TokenProvider) Result {
	const name = "Token"
	if tokens == nil {
		return Result{Name: name, Detail: "no token source configured"}
	}
	if _, err := tokens.Token(ctx); err != nil {
		if errors.Is(err, auth.ErrTokenMissing) {
			return Result{Name: name, Detail: "missing (run 'callqa login')"}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "present"}
}

// CheckSession asks the backend who the current token belongs to.
func CheckSession(ctx context.Context, backend Backend) Result {
	const name = "Backend session"

	checkCtx, cancel := context.WithTimeout(ctx, backendCheckTimeout)
	defer cancel()

	user, err := backend.Me(checkCtx)
	if err != nil {
		switch qaapi.StatusCode(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return Result{Name: name, Detail: "token rejected (run 'callqa login')"}
		case 0:
			return Result{Name: name, Detail: summarizeNetworkError(err)}
		default:
			return Result{Name: name, Detail: fmt.Sprintf("check failed (%s)", qaapi.ErrorMessage(err))}
		}
	}
	who := user.Username
	if who == "" {
		who = user.ID.String()
	}
	if who == "" {
		return Result{Name: name, Passed: true, Detail: "authenticated"}
	}
	return Result{Name: name, Passed: true, Detail: "signed in as " + who}
}

// CheckAIService probes the AI suggestion service health endpoint.
func CheckAIService(ctx context.Context, backend Backend) Result {
	const name = "AI service"

	checkCtx, cancel := context.WithTimeout(ctx, backendCheckTimeout)
	defer cancel()

	if !backend.AIHealth(checkCtx) {
		return Result{Name: name, Detail: "unavailable"}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (backend unreachable)"
	}
	return "unreachable (" + err.Error() + ")"
}
