package qaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"callqa/internal/auth"
	"callqa/internal/logging"
	"callqa/internal/services"
)

const (
	defaultHTTPTimeout = 120 * time.Second
	userAgent          = "callqa/0.1"
	maxErrorBody       = 4096
)

// HTTPDoer describes the HTTP client used by the backend client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the evaluation backend REST API.
type Client struct {
	baseURL *url.URL
	http    HTTPDoer
	tokens  auth.TokenProvider
	logger  *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout replaces the HTTP client with one using the given timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http = &http.Client{Timeout: timeout}
		}
	}
}

// WithTokenProvider sets the bearer token source for authenticated endpoints.
func WithTokenProvider(tokens auth.TokenProvider) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a client rooted at baseURL (scheme and host, without
// the /api prefix).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "qaapi", "parse base url", baseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "qaapi", "parse base url", fmt.Sprintf("%q is not absolute", baseURL), nil)
	}
	client := &Client{
		baseURL: parsed,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "qaapi")
	return client, nil
}

// HTTPError is returned for non-2xx responses. Detail carries the
// human-readable message extracted from the body when one was present.
type HTTPError struct {
	StatusCode int
	Detail     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Detail)
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, body)
}

// ErrorMessage returns the text shown to a user for err: the backend detail
// when the failure was an HTTP error that carried one, else the error text.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Detail != "" {
		return httpErr.Detail
	}
	return err.Error()
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// extractDetail reads FastAPI-style {detail: "..."} or {detail: [{msg}]},
// falling back to message or error keys.
func extractDetail(body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "message", "error", "mensagem"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		var list []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(raw, &list); err == nil {
			msgs := make([]string, 0, len(list))
			for _, item := range list {
				if m := strings.TrimSpace(item.Msg); m != "" {
					msgs = append(msgs, m)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	return ""
}

// FlexibleID accepts JSON numbers, strings, and null for identifiers the
// backend emits inconsistently.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("decode identifier %s: %w", trimmed, err)
	}
	*id = FlexibleID(n.String())
	return nil
}

func (id FlexibleID) String() string { return string(id) }

// Empty reports whether the identifier is absent.
func (id FlexibleID) Empty() bool { return strings.TrimSpace(string(id)) == "" }

// FlexibleNumber accepts JSON numbers, numeric strings, and null. Aggregates
// computed by the backend database arrive in either form.
type FlexibleNumber float64

func (n *FlexibleNumber) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*n = 0
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		trimmed = []byte(s)
	}
	value, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil {
		return fmt.Errorf("decode number %s: %w", trimmed, err)
	}
	*n = FlexibleNumber(value)
	return nil
}

// Float returns the value as a float64.
func (n FlexibleNumber) Float() float64 { return float64(n) }

// Int returns the value truncated to an int.
func (n FlexibleNumber) Int() int { return int(n) }

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, authenticated bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, nil), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	rid, ok := services.RequestIDFromContext(ctx)
	if !ok {
		rid = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", rid)
	if authenticated {
		if c.tokens == nil {
			return nil, auth.ErrTokenMissing
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send executes req and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) send(req *http.Request, operation string, out any) error {
	start := time.Now()
	logger := logging.WithContext(req.Context(), c.logger)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrTransport, "qaapi", operation, "request failed", err)
	}
	defer resp.Body.Close()

	logger.Debug("backend response",
		logging.String("operation", operation),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		httpErr := &HTTPError{
			StatusCode: resp.StatusCode,
			Detail:     extractDetail(body),
			Body:       strings.TrimSpace(string(body)),
		}
		marker := services.ErrTransport
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			marker = services.ErrAuthentication
		case http.StatusNotFound:
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, "qaapi", operation, "status "+strconv.Itoa(resp.StatusCode), httpErr)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransport, "qaapi", operation, "decode response", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path, operation string, authenticated bool, out any) error {
	return c.getJSONWithQuery(ctx, path, nil, operation, authenticated, out)
}

func (c *Client) getJSONWithQuery(ctx context.Context, path string, query url.Values, operation string, authenticated bool, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, authenticated)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	return c.send(req, operation, out)
}

func (c *Client) postJSON(ctx context.Context, path, operation string, authenticated bool, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", operation, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload), authenticated)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, operation, out)
}
