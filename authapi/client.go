package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/rs/zerolog/log"
)

// maxBodySize bounds how much of a response body is read
const maxBodySize = 1 << 20

// Client calls the backend REST API and unwraps its response envelope
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates an API client. A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the API base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for a token pair and the user's identity
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var resp LoginResponse
	if err := c.Do(ctx, http.MethodPost, PathLogin, req, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response has no access token", errors.ErrUnexpectedBody)
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new pair. When the backend does not rotate the
// refresh token the one sent is kept.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	var resp RefreshResponse
	if err := c.Do(ctx, http.MethodPost, PathRefresh, RefreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return token.Pair{}, err
	}
	if resp.AccessToken == "" {
		return token.Pair{}, fmt.Errorf("%w: refresh response has no access token", errors.ErrUnexpectedBody)
	}
	if resp.RefreshToken == "" {
		resp.RefreshToken = refreshToken
	}
	return token.Pair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

// Logout revokes the refresh token server side
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.Do(ctx, http.MethodPost, PathLogout, LogoutRequest{RefreshToken: refreshToken}, nil)
}

// Register creates an account and returns the created user as sent by the backend
func (c *Client) Register(ctx context.Context, req RegisterRequest) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var created json.RawMessage
	if err := c.Do(ctx, http.MethodPost, PathRegister, req, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// Do sends a JSON request to path and decodes the envelope's data into out.
// A nil in sends no body, a nil out discards the data. Bodies that are not an envelope
// are decoded into out as they are.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", errors.ErrTransientRequest, err)
	}

	log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("API call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(req, resp.StatusCode, data)
	}
	return decodeEnvelope(req, resp.StatusCode, data, out)
}

func decodeEnvelope(req *http.Request, statusCode int, data []byte, out any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var env APIResponse[json.RawMessage]
	if err := json.Unmarshal(data, &env); err != nil || env.Success == nil {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: %w", errors.ErrUnexpectedBody, err)
		}
		return nil
	}

	if !*env.Success {
		return newHTTPError(req, statusCode, data)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrUnexpectedBody, err)
	}
	return nil
}
