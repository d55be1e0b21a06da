package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/mbeoliero/relay/pkg/errcode"
)

// AuthClient talks to the auth provider's token endpoint
type AuthClient struct {
	baseURL    string
	httpClient *client.Client
}

// NewAuthClient creates a new AuthClient
func NewAuthClient(baseURL string, timeout time.Duration) (*AuthClient, error) {
	httpClient, err := client.NewClient(
		client.WithDialTimeout(timeout),
		client.WithClientReadTimeout(timeout),
		client.WithWriteTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	return &AuthClient{
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// authResponse is the provider's response envelope
type authResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// TokenResult holds the issued access token
type TokenResult struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// signInRequest is the password-grant sign-in request
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn exchanges email/password credentials for an access token.
// Credential verification is entirely the provider's job.
func (c *AuthClient) SignIn(ctx context.Context, email, password string) (*TokenResult, error) {
	var result TokenResult
	if err := c.post(ctx, "/auth/token", &signInRequest{Email: email, Password: password}, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, errcode.ErrSignInFailed
	}
	return &result, nil
}

// post makes a POST request and decodes the enveloped response
func (c *AuthClient) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	req := &protocol.Request{}
	resp := &protocol.Response{}

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set("Content-Type", "application/json")

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req.SetBody(jsonBody)

	if err := c.httpClient.Do(ctx, req, resp); err != nil {
		return errcode.ErrSignInFailed.Wrap(err)
	}

	var apiResp authResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.Code != 0 {
		return errcode.New(apiResp.Code, apiResp.Msg)
	}

	if result != nil && apiResp.Data != nil {
		if err := json.Unmarshal(apiResp.Data, result); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}

	return nil
}
