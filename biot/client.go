// Package biot is a client SDK for the Bio-T platform: authentication,
// health checks, and data operations on generic entities, devices, usage
// sessions, and files. The EntityStore adapter in this package plugs the
// platform into the snapshot transfer engine.
package biot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/sethgrid/pester"

	"github.com/biotmed/biot-sdk-go/snapshot"
)

// DefaultHTTPTries bounds the retry loop of the underlying HTTP client,
// roughly two minutes of trying with exponential backoff.
const DefaultHTTPTries = 7

var apiJSON = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrMissingCredentials is returned by Login when no username and password were configured.
	ErrMissingCredentials = errors.New("username and password are required for login")

	// ErrNotAuthenticated is returned when an authenticated call is made before a successful Login.
	ErrNotAuthenticated = errors.New("client holds no token, call Login first")

	// ErrUnknownService is returned when an endpoint cannot be mapped to a health check endpoint.
	ErrUnknownService = errors.New("unknown service for endpoint, no health check available")

	// ErrServiceUnhealthy is returned when a service fails its health check before a request.
	ErrServiceUnhealthy = errors.New("service health check failed")

	// ErrDeleteNotAllowed is returned for delete operations on a client built without WithDeleteAllowed.
	ErrDeleteNotAllowed = errors.New("delete operations are not allowed for this client")
)

// HTTPDoer is the transport contract of the API client. *pester.Client and
// *http.Client both satisfy it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// MakePesterClient builds the retrying HTTP client used by default:
// exponential backoff, DefaultHTTPTries attempts, failed attempts mirrored
// to the supplied logger. A nil logger disables the retry logging.
func MakePesterClient(logger snapshot.Logger) *pester.Client {
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = DefaultHTTPTries
	if logger != nil {
		client.LogHook = func(e pester.ErrEntry) {
			logger.Warn("retrying after failed attempt",
				"method", e.Method, "url", e.URL, "attempt", e.Attempt, "error", fmt.Sprintf("%v", e.Err))
		}
	}

	return client
}

// APIClient makes HTTP requests against one Bio-T deployment.
type APIClient struct {
	baseURL string
	doer    HTTPDoer
}

// NewAPIClient creates an APIClient for the given base URL using the
// default retrying transport.
func NewAPIClient(baseURL string, logger snapshot.Logger) *APIClient {
	return NewAPIClientWithDoer(baseURL, MakePesterClient(logger))
}

// NewAPIClientWithDoer creates an APIClient over a custom transport.
func NewAPIClientWithDoer(baseURL string, doer HTTPDoer) *APIClient {
	return &APIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		doer:    doer,
	}
}

// MakeRequest performs one HTTP request against the deployment. A non-nil
// body is serialized as JSON. The response is returned as-is; status
// handling is the caller's concern.
func (c *APIClient) MakeRequest(ctx context.Context, method string, endpoint string, headers http.Header, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := apiJSON.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, err
	}

	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if body != nil && req.Header.Get("content-type") == "" {
		req.Header.Set("content-type", "application/json")
	}

	return c.doer.Do(req)
}

// Client handles authentication and health checks against one deployment.
type Client struct {
	api      *APIClient
	username string
	password string
	token    string
}

// ClientOption defines a functional option for configuring Client.
type ClientOption func(*Client) error

// WithCredentials configures username and password for Login.
func WithCredentials(username string, password string) ClientOption {
	return func(c *Client) error {
		if username == "" || password == "" {
			return ErrMissingCredentials
		}

		c.username = username
		c.password = password

		return nil
	}
}

// WithToken configures a ready token, skipping Login.
func WithToken(token string) ClientOption {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// NewClient creates a Client over an APIClient with optional configuration.
func NewClient(api *APIClient, options ...ClientOption) (*Client, error) {
	if api == nil {
		return nil, errors.New("nil api client supplied")
	}

	client := &Client{api: api}
	for _, option := range options {
		if err := option(client); err != nil {
			return nil, err
		}
	}

	return client, nil
}

type loginResponse struct {
	AccessJwt struct {
		Token string `json:"token"`
	} `json:"accessJwt"`
}

// Login authenticates with the configured credentials and stores the
// returned token for subsequent authenticated requests.
func (c *Client) Login(ctx context.Context) (string, error) {
	if c.username == "" || c.password == "" {
		return "", ErrMissingCredentials
	}

	resp, err := c.api.MakeRequest(ctx, http.MethodPost, LoginURL, nil, map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", upstreamError(resp)
	}

	var parsed loginResponse
	if err := apiJSON.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.AccessJwt.Token == "" {
		return "", errors.New("login response carries no token")
	}

	c.token = parsed.AccessJwt.Token

	return c.token, nil
}

// Token returns the current authentication token.
func (c *Client) Token() string {
	return c.token
}

// IsSystemHealthy reports whether the service behind the given health check
// endpoint responds healthy.
func (c *Client) IsSystemHealthy(ctx context.Context, healthCheckEndpoint string) bool {
	headers := http.Header{}
	headers.Set("accept", "application/json")

	resp, err := c.api.MakeRequest(ctx, http.MethodGet, healthCheckEndpoint, headers, nil)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// AuthHeaders returns the headers for authenticated requests.
func (c *Client) AuthHeaders() (http.Header, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}

	headers := http.Header{}
	headers.Set("accept", "application/json")
	headers.Set("authorization", "Bearer "+c.token)

	return headers, nil
}

// upstreamError drains the response body into a *snapshot.UpstreamError.
func upstreamError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	return &snapshot.UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
}
