package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"callqa/internal/services"
)

// ErrTokenMissing reports that no bearer token is available for an
// authenticated endpoint.
var ErrTokenMissing = fmt.Errorf("%w: no bearer token available (run 'callqa login' or set CALLQA_TOKEN)", services.ErrAuthentication)

// TokenProvider supplies the bearer token attached to authenticated requests.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider backed by a fixed value.
type StaticToken string

// Token returns the static value or ErrTokenMissing when blank.
func (t StaticToken) Token(context.Context) (string, error) {
	token := strings.TrimSpace(string(t))
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}

// ChainProvider tries each provider in order and returns the first token
// found. Errors other than ErrTokenMissing stop the chain.
type ChainProvider []TokenProvider

// Token implements TokenProvider.
func (c ChainProvider) Token(ctx context.Context) (string, error) {
	for _, provider := range c {
		if provider == nil {
			continue
		}
		token, err := provider.Token(ctx)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, ErrTokenMissing) {
			return "", err
		}
	}
	return "", ErrTokenMissing
}
