package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const defaultTimeout = 15 * time.Second

// HTTPConfig configures the REST client for a hosted identity API.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPClient implements [Client] against a GoTrue-style hosted identity
// API. It is safe for concurrent use.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient creates an HTTPClient. BaseURL must include the scheme
// and host of the identity API, without a trailing slash.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider: base URL required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("provider: invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// SignUp registers a new identity. A nil Session in the result means the
// provider requires email verification before issuing tokens.
func (c *HTTPClient) SignUp(ctx context.Context, input SignUpInput) (*SignUpResult, error) {
	body := map[string]any{
		"email":    input.Email,
		"password": input.Password,
	}
	if len(input.Metadata) > 0 {
		body["data"] = input.Metadata
	}

	path := "/signup"
	if input.RedirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(input.RedirectTo)
	}

	var resp struct {
		Session
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := c.do(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		return nil, err
	}

	// With verification enabled the provider returns the bare user
	// object instead of a session envelope.
	if resp.AccessToken == "" {
		return &SignUpResult{
			User: &User{ID: resp.ID, Email: resp.Email},
		}, nil
	}

	sess := resp.Session
	return &SignUpResult{User: sess.User, Session: &sess}, nil
}

// SignInWithPassword exchanges credentials for a token pair.
func (c *HTTPClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var sess Session
	err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", map[string]any{
		"email":    email,
		"password": password,
	}, &sess)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignOut revokes the session behind the access token.
func (c *HTTPClient) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

// RefreshSession exchanges a refresh token for a new token pair.
func (c *HTTPClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var sess Session
	err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", map[string]any{
		"refresh_token": refreshToken,
	}, &sess)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ResetPasswordForEmail asks the provider to dispatch a recovery
// message. The provider deliberately responds identically whether or not
// the address is registered.
func (c *HTTPClient) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, path, "", map[string]any{"email": email}, nil)
}

// UpdateUserPassword commits a new credential for the authenticated
// identity.
func (c *HTTPClient) UpdateUserPassword(ctx context.Context, accessToken, newPassword string) error {
	return c.do(ctx, http.MethodPut, "/user", accessToken, map[string]any{
		"password": newPassword,
	}, nil)
}

// VerifyToken confirms a signup or recovery token. On success the
// provider issues a session for the verified identity.
func (c *HTTPClient) VerifyToken(ctx context.Context, verifyType VerifyType, token string) (*Session, error) {
	var sess Session
	err := c.do(ctx, http.MethodPost, "/verify", "", map[string]any{
		"type":  string(verifyType),
		"token": token,
	}, &sess)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Resend re-dispatches a signup or recovery message.
func (c *HTTPClient) Resend(ctx context.Context, verifyType VerifyType, email, redirectTo string) error {
	body := map[string]any{
		"type":  string(verifyType),
		"email": email,
	}
	path := "/resend"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, path, "", body, nil)
}

// GetUser fetches the identity behind an access token.
func (c *HTTPClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("provider: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("provider: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("provider: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("provider: decode response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(resp *http.Response, data []byte) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var payload struct {
		Code             any    `json:"code"`
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		ErrorField       string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		apiErr.Code = payload.ErrorCode
		if apiErr.Code == "" {
			if s, ok := payload.Code.(string); ok {
				apiErr.Code = s
			}
		}
		switch {
		case payload.Msg != "":
			apiErr.Message = payload.Msg
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.ErrorDescription != "":
			apiErr.Message = payload.ErrorDescription
		case payload.ErrorField != "":
			apiErr.Message = payload.ErrorField
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	if after := resp.Header.Get("Retry-After"); after != "" {
		if secs, err := strconv.Atoi(after); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}

	return apiErr
}
