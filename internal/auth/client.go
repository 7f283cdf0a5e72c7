// Package auth implements the web-login flow and session persistence
// for the brokerage API.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the production REST endpoint used for login.
const DefaultBaseURL = "https://api.traderepublic.com"

const sessionCookieName = "tr_session"

// LoginProcess identifies a pending two-factor login on the server side.
type LoginProcess struct {
	ProcessID string `json:"processId"`
	Countdown int    `json:"countdownInSeconds"`
}

// Client drives the web-login flow: initiate with phone number and PIN,
// then complete with the 4-digit code delivered to the app (or, after
// the countdown, resent as SMS).
type Client struct {
	logger  *slog.Logger
	http    *http.Client
	baseURL string
}

// Options configures a Client.
type Options struct {
	BaseURL string       // defaults to DefaultBaseURL
	HTTP    *http.Client // defaults to a client with a 30s timeout
}

// NewClient returns a login client.
func NewClient(logger *slog.Logger, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{logger: logger, http: opts.HTTP, baseURL: opts.BaseURL}
}

// InitiateWebLogin starts a login and triggers the 2FA push to the app.
// The returned countdown is the number of seconds to wait before an SMS
// fallback may be requested.
func (c *Client) InitiateWebLogin(ctx context.Context, creds Credentials) (*LoginProcess, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]string{
		"phoneNumber": creds.PhoneNo,
		"pin":         creds.PIN,
	})
	if err != nil {
		return nil, &Error{Message: "failed to encode login request", Cause: err}
	}

	resp, err := c.post(ctx, "/api/v1/auth/web/login", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var process LoginProcess
	if err := json.NewDecoder(resp.Body).Decode(&process); err != nil {
		return nil, &Error{Message: "failed to decode login response", Cause: err}
	}
	if process.ProcessID == "" {
		return nil, &Error{Message: "login response carried no process id"}
	}
	c.logger.Debug("web login initiated", "countdown", process.Countdown)
	return &process, nil
}

// CompleteWebLogin finishes the login with the 2FA code and returns the
// session token from the response cookie.
func (c *Client) CompleteWebLogin(ctx context.Context, processID, code string) (string, error) {
	resp, err := c.post(ctx, fmt.Sprintf("/api/v1/auth/web/login/%s/%s", processID, code), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName {
			c.logger.Debug("web login completed")
			return cookie.Value, nil
		}
	}
	return "", &Error{Message: "login response carried no session cookie"}
}

// ResendCode requests the pending 2FA code again, delivered as SMS.
func (c *Client) ResendCode(ctx context.Context, processID string) error {
	resp, err := c.post(ctx, fmt.Sprintf("/api/v1/auth/web/login/%s/resend", processID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, &Error{Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Message: "login request failed", Cause: err}
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &Error{Message: fmt.Sprintf("server rejected request with status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))}
}
