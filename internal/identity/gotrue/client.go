// Package gotrue implements identity.Provider against a GoTrue compatible
// authentication server.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/townhall/internal/identity"
	"github.com/wolfeidau/townhall/internal/models"
)

const (
	defaultMaxTries        = 3
	defaultInitialInterval = 200 * time.Millisecond
	defaultTimeout         = 10 * time.Second
	serviceTokenTTL        = time.Minute
	maxErrorBodySize       = 64 * 1024
)

// Config holds the connection settings for the auth server.
type Config struct {
	BaseURL   string // e.g. https://project.example.com/auth/v1
	AnonKey   string // Sent as the apikey header on every request
	JWTSecret string // Signs short lived service_role tokens for admin calls

	HTTPClient      *http.Client
	MaxTries        uint
	InitialInterval time.Duration
}

// Validate checks that the required settings are present.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if c.AnonKey == "" {
		return fmt.Errorf("anon key is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	return nil
}

// Client talks to the auth server over HTTP.
type Client struct {
	baseURL         string
	anonKey         string
	jwtSecret       []byte
	httpClient      *http.Client
	maxTries        uint
	initialInterval time.Duration
	now             func() time.Time
}

// New creates a client from the given configuration.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gotrue config: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	maxTries := cfg.MaxTries
	if maxTries == 0 {
		maxTries = defaultMaxTries
	}

	initialInterval := cfg.InitialInterval
	if initialInterval == 0 {
		initialInterval = defaultInitialInterval
	}

	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		anonKey:         cfg.AnonKey,
		jwtSecret:       []byte(cfg.JWTSecret),
		httpClient:      httpClient,
		maxTries:        maxTries,
		initialInterval: initialInterval,
		now:             time.Now,
	}, nil
}

type signUpBody struct {
	Email    string              `json:"email"`
	Password string              `json:"password"`
	Data     models.UserMetadata `json:"data"`
}

type userResponse struct {
	ID           string              `json:"id"`
	Email        string              `json:"email"`
	UserMetadata models.UserMetadata `json:"user_metadata"`
	CreatedAt    time.Time           `json:"created_at"`
	ConfirmedAt  *time.Time          `json:"confirmed_at"`
}

// signUpResponse covers both shapes returned by /signup: a bare user when
// email confirmation is required, or a session wrapping the user.
type signUpResponse struct {
	userResponse
	User *userResponse `json:"user"`
}

// SignUp registers a new identity. The server sends the confirmation email.
func (c *Client) SignUp(ctx context.Context, req identity.SignUpRequest) (*models.User, error) {
	body, err := json.Marshal(signUpBody{
		Email:    req.Email,
		Password: req.Password,
		Data:     req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signup request: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, "/signup", body, "", retryUnsent)
	if err != nil {
		return nil, err
	}

	var resp signUpResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode signup response: %w", err)
	}

	u := &resp.userResponse
	if resp.User != nil {
		u = resp.User
	}

	if u.ID == "" {
		log.Warn().Msg("Signup accepted without a user in the response")
		return nil, nil
	}

	id, err := uuid.Parse(u.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in signup response: %w", err)
	}

	return &models.User{
		ID:          id,
		Email:       u.Email,
		Metadata:    u.UserMetadata,
		CreatedAt:   u.CreatedAt,
		ConfirmedAt: u.ConfirmedAt,
	}, nil
}

// DeleteUser removes an identity using the admin API.
func (c *Client) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	token, err := c.serviceToken()
	if err != nil {
		return err
	}

	_, err = c.do(ctx, http.MethodDelete, "/admin/users/"+userID.String(), nil, token, retryTransient)
	return err
}

// serviceToken mints a short lived service_role token for admin calls.
func (c *Client) serviceToken() (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"role": "service_role",
		"iss":  "townhall",
		"iat":  now.Unix(),
		"exp":  now.Add(serviceTokenTTL).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}

// retryPolicy decides which failures are worth another attempt.
type retryPolicy int

const (
	// retryTransient retries network errors, 429 and 5xx. Only safe for
	// idempotent requests.
	retryTransient retryPolicy = iota
	// retryUnsent retries only failures where the server cannot have acted
	// on the request: refused or failed connections, and 429.
	retryUnsent
)

func (p retryPolicy) retryNetworkError(err error) bool {
	if p == retryTransient {
		return true
	}
	return requestNotSent(err)
}

func (p retryPolicy) retryStatus(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return p == retryTransient && status >= 500
}

// requestNotSent reports whether err happened before any bytes of the
// request reached the server.
func requestNotSent(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// do sends a request with exponential backoff. policy selects which failures
// are retried, everything else fails immediately.
func (c *Client) do(ctx context.Context, method, path string, body []byte, bearer string, policy retryPolicy) ([]byte, error) {
	endpoint := c.baseURL + path

	operation := func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("apikey", c.anonKey)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil || !policy.retryNetworkError(err) {
				return nil, backoff.Permanent(err)
			}
			log.Debug().Err(err).Str("method", method).Str("path", path).Msg("Auth server request failed, retrying")
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if err != nil {
			err = fmt.Errorf("failed to read response: %w", err)
			if policy != retryTransient {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}

		apiErr := newAPIError(resp.StatusCode, data)
		if policy.retryStatus(resp.StatusCode) {
			log.Debug().
				Int("status", resp.StatusCode).
				Str("method", method).
				Str("path", path).
				Msg("Auth server returned transient error, retrying")
			return nil, apiErr
		}
		return nil, backoff.Permanent(apiErr)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxTries),
	)
}

// APIError is an error response from the auth server. Error returns the
// server's message verbatim.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("auth server returned status %d", e.StatusCode)
}

// Unwrap maps well known responses onto identity sentinel errors.
func (e *APIError) Unwrap() error {
	switch {
	case e.Code == "user_already_exists" || e.Message == identity.ErrUserAlreadyRegistered.Error():
		return identity.ErrUserAlreadyRegistered
	case e.Code == "user_not_found" || e.StatusCode == http.StatusNotFound:
		return identity.ErrUserNotFound
	}
	return nil
}

type errorBody struct {
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
	ErrorCode        string `json:"error_code"`
	Error            string `json:"error"`
}

func newAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return apiErr
	}

	for _, msg := range []string{body.Msg, body.ErrorDescription, body.Message} {
		if msg != "" {
			apiErr.Message = msg
			break
		}
	}
	apiErr.Code = body.ErrorCode
	if apiErr.Code == "" {
		apiErr.Code = body.Error
	}
	return apiErr
}

var (
	_ identity.Provider = (*Client)(nil)
	_ error             = (*APIError)(nil)
)
