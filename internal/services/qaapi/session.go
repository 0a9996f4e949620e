package qaapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"callqa/internal/services"
)

// User describes the authenticated backend user.
type User struct {
	ID                     FlexibleID `json:"id"`
	Username               string     `json:"username"`
	FullName               string     `json:"full_name"`
	Active                 bool       `json:"active"`
	RequiresPasswordChange bool       `json:"requires_password_change"`
}

// LoginResponse is the token grant returned by POST /auth/token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// Login exchanges credentials for a bearer token using the OAuth2 password
// form.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResponse{}, services.Wrap(services.ErrValidation, "qaapi", "login", "username and password required", nil)
	}
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/token", strings.NewReader(form.Encode()), false)
	if err != nil {
		return LoginResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp LoginResponse
	if err := c.send(req, "login", &resp); err != nil {
		return LoginResponse{}, err
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return LoginResponse{}, services.Wrap(services.ErrAuthentication, "qaapi", "login", "response missing access_token", nil)
	}
	if resp.User.Username == "" {
		resp.User.Username = username
	}
	return resp, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	if err := c.getJSON(ctx, "/auth/me", "current user", true, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Carteira is a portfolio whose criteria drive evaluation.
type Carteira struct {
	ID          FlexibleID `json:"id"`
	Name        string     `json:"nome"`
	Description string     `json:"descricao"`
	Active      *bool      `json:"ativo"`
}

// Enabled reports whether the carteira is active. Missing flags count as
// active.
func (c Carteira) Enabled() bool {
	return c.Active == nil || *c.Active
}

// Carteiras lists the configured carteiras.
func (c *Client) Carteiras(ctx context.Context) ([]Carteira, error) {
	var out []Carteira
	if err := c.getJSON(ctx, "/api/carteiras/", "list carteiras", true, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Carteira{}
	}
	return out, nil
}
