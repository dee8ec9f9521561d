package client

import (
	"context"
	"net/url"
)

type Principal struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

type LoginResult struct {
	Token    string    `json:"token"`
	Lecturer Principal `json:"lecturer"`
}

// API is the typed surface over the gateway for the authentication endpoints.
type API struct {
	gw *Gateway
}

func NewAPI(gw *Gateway) *API {
	return &API{gw: gw}
}

func (a *API) Login(ctx context.Context, email, password, secretKey string) (*LoginResult, error) {
	body := map[string]string{
		"email":      email,
		"password":   password,
		"secret_key": secretKey,
	}
	var out LoginResult
	if err := a.gw.Post(ctx, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me resolves the bearer token to the current lecturer. It goes through the
// de-duplicated read path.
func (a *API) Me(ctx context.Context) (*Principal, error) {
	var out struct {
		Lecturer Principal `json:"lecturer"`
	}
	if err := a.gw.Get(ctx, "/lecturer/me", url.Values{}, &out); err != nil {
		return nil, err
	}
	return &out.Lecturer, nil
}

func (a *API) ForgotPassword(ctx context.Context, email string) error {
	return a.gw.Post(ctx, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

func (a *API) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"newPassword": newPassword}
	return a.gw.Post(ctx, "/auth/reset-password/"+url.PathEscape(token), body, nil)
}
