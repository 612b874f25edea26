package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the HTTP implementation of Provider against a GoTrue-shaped auth
// API. One Client is constructed at process start and shared read-only across
// all request handlers; it holds no per-request state beyond the pooled
// http.Client.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
}

// NewClient builds a provider client. baseURL is the auth API root (e.g.
// "https://project.supabase.co/auth/v1"). The anon key authorizes end-user
// flows; the service-role key authorizes the /admin endpoints.
func NewClient(baseURL, anonKey, serviceKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		anonKey:    anonKey,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// gotrueUser mirrors the provider's user representation on the wire.
type gotrueUser struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt string         `json:"email_confirmed_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

func (u gotrueUser) identity() Identity {
	name, _ := u.UserMetadata["name"].(string)
	return Identity{
		ID:            u.ID,
		Email:         u.Email,
		Name:          name,
		EmailVerified: u.EmailConfirmedAt != "",
	}
}

// gotrueSession mirrors a token grant response: session fields at the top
// level with the user embedded.
type gotrueSession struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         gotrueUser `json:"user"`
}

func (s gotrueSession) session() Session {
	return Session{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
}

func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (Identity, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata,
	}

	// With confirmations enabled the provider returns the bare user record
	// and no session; the account stays unusable until OTP verification.
	var user gotrueUser
	if err := c.do(ctx, http.MethodPost, "/signup", c.anonKey, body, &user); err != nil {
		return Identity{}, err
	}
	return user.identity(), nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (Identity, Session, error) {
	body := map[string]any{"email": email, "password": password}

	var grant gotrueSession
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", c.anonKey, body, &grant); err != nil {
		return Identity{}, Session{}, err
	}
	return grant.User.identity(), grant.session(), nil
}

func (c *Client) VerifyOTP(ctx context.Context, email, code string, purpose OTPPurpose) (Identity, Session, error) {
	body := map[string]any{
		"type":  string(purpose),
		"email": email,
		"token": code,
	}

	var grant gotrueSession
	if err := c.do(ctx, http.MethodPost, "/verify", c.anonKey, body, &grant); err != nil {
		return Identity{}, Session{}, err
	}
	return grant.User.identity(), grant.session(), nil
}

func (c *Client) ResendSignupOTP(ctx context.Context, email string) error {
	body := map[string]any{"type": "signup", "email": email}
	return c.do(ctx, http.MethodPost, "/resend", c.anonKey, body, nil)
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (Identity, Session, error) {
	body := map[string]any{"refresh_token": refreshToken}

	var grant gotrueSession
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", c.anonKey, body, &grant); err != nil {
		return Identity{}, Session{}, err
	}
	return grant.User.identity(), grant.session(), nil
}

func (c *Client) UserFromToken(ctx context.Context, accessToken string) (Identity, error) {
	var user gotrueUser
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &user); err != nil {
		return Identity{}, err
	}
	return user.identity(), nil
}

func (c *Client) RequestPasswordRecovery(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/recover", c.anonKey, map[string]any{"email": email}, nil)
}

func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	body := map[string]any{"password": newPassword}
	return c.do(ctx, http.MethodPut, "/user", accessToken, body, nil)
}

func (c *Client) AdminCreateUser(ctx context.Context, email string, metadata map[string]any, emailConfirmed bool) (Identity, error) {
	body := map[string]any{
		"email":         email,
		"user_metadata": metadata,
		"email_confirm": emailConfirmed,
	}

	var user gotrueUser
	if err := c.do(ctx, http.MethodPost, "/admin/users", c.serviceKey, body, &user); err != nil {
		return Identity{}, err
	}
	return user.identity(), nil
}

func (c *Client) AdminGenerateMagicLink(ctx context.Context, email string) (string, error) {
	body := map[string]any{"type": "magiclink", "email": email}

	var link struct {
		HashedToken string `json:"hashed_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/generate_link", c.serviceKey, body, &link); err != nil {
		return "", err
	}
	return link.HashedToken, nil
}

func (c *Client) AdminDeleteIdentity(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+id, c.serviceKey, nil, nil)
}

// do performs a JSON request with the given bearer credential and decodes a
// 2xx response into out (when non-nil). Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseAPIError tolerates the provider's error body variants: {"msg": ...},
// {"message": ...} and {"error": ..., "error_description": ...}, with an
// optional machine code under "error_code" or "code".
func parseAPIError(status int, raw []byte) *APIError {
	var body struct {
		Code             any    `json:"code"`
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Err              string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(raw, &body)

	apiErr := &APIError{StatusCode: status}

	switch {
	case body.ErrorCode != "":
		apiErr.Code = body.ErrorCode
	default:
		if code, ok := body.Code.(string); ok {
			apiErr.Code = code
		}
	}

	switch {
	case body.Msg != "":
		apiErr.Message = body.Msg
	case body.Message != "":
		apiErr.Message = body.Message
	case body.ErrorDescription != "":
		apiErr.Message = body.ErrorDescription
	case body.Err != "":
		apiErr.Message = body.Err
	default:
		apiErr.Message = http.StatusText(status)
	}

	return apiErr
}
