// Package server talks to a remote workbook metadata service: REST sign-in
// with a personal access token, then GraphQL queries against the metadata
// endpoint. The fetched inventory is assembled into the same model the
// local extraction pipeline produces, so the two can be compared directly.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"

	"github.com/twbmeta/twbmeta/internal/logging"
	"github.com/twbmeta/twbmeta/internal/retry"
)

const (
	signinPathFormat = "/api/%s/auth/signin"
	metadataAPIPath  = "/api/metadata/graphql"
)

// Options configures a Client. BaseURL, TokenName and TokenSecret are
// required; Site may be empty for the default site.
type Options struct {
	BaseURL     string
	Site        string
	APIVersion  string
	TokenName   string
	TokenSecret string

	HTTPClient *http.Client
	Logger     twbmeta.Logger
}

// Client is an authenticated session against the metadata service.
type Client struct {
	baseURL    string
	site       string
	apiVersion string
	tokenName  string
	tokenSecr  string

	httpClient *http.Client
	log        twbmeta.Logger
	executor   *retry.Executor

	authToken string
	siteLUID  string
}

// statusError is a non-200 response from the service. It unwraps to
// ErrServerUnavailable for exit-code mapping and exposes the status code
// for retry classification.
type statusError struct {
	url    string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.url, e.status, e.body)
}

func (e *statusError) StatusCode() int { return e.status }

func (e *statusError) Unwrap() error { return twbmeta.ErrServerUnavailable }

// NewClient validates the options and returns an unauthenticated client.
// Call Authenticate before issuing queries; FetchWorkbook does so lazily.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: server URL is required", twbmeta.ErrInvalidConfig)
	}
	if opts.TokenName == "" || opts.TokenSecret == "" {
		return nil, fmt.Errorf("%w: personal access token name and secret are required", twbmeta.ErrInvalidConfig)
	}
	if opts.APIVersion == "" {
		opts.APIVersion = "3.21"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNullLogger()
	}

	executor := retry.NewExecutor(
		retry.NewTransportErrorClassifier(),
		retry.NewExponentialBackoff(2,
			retry.WithInitialDelay(100*time.Millisecond),
			retry.WithMaxDelay(2*time.Second)),
	).WithOnRetry(func(attempt int, err error, delay time.Duration) {
		opts.Logger.Verbose("Retrying request after %v (attempt %d): %v", delay, attempt+1, err)
	})

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		site:       opts.Site,
		apiVersion: opts.APIVersion,
		tokenName:  opts.TokenName,
		tokenSecr:  opts.TokenSecret,
		httpClient: opts.HTTPClient,
		log:        opts.Logger,
		executor:   executor,
	}, nil
}

// Authenticate signs in with the personal access token and stores the
// session token used by subsequent GraphQL requests.
func (c *Client) Authenticate(ctx context.Context) error {
	payload := map[string]interface{}{
		"credentials": map[string]interface{}{
			"personalAccessTokenName":   c.tokenName,
			"personalAccessTokenSecret": c.tokenSecr,
			"site":                      map[string]string{"contentUrl": c.site},
		},
	}

	url := c.baseURL + fmt.Sprintf(signinPathFormat, c.apiVersion)
	c.log.Verbose("Signing in to %s", url)

	var resp struct {
		Credentials struct {
			Token string `json:"token"`
			Site  struct {
				ID string `json:"id"`
			} `json:"site"`
		} `json:"credentials"`
	}
	if err := c.postJSON(ctx, url, nil, payload, &resp); err != nil {
		return err
	}
	if resp.Credentials.Token == "" {
		return fmt.Errorf("%w: sign-in response carried no session token", twbmeta.ErrServerUnavailable)
	}

	c.authToken = resp.Credentials.Token
	c.siteLUID = resp.Credentials.Site.ID
	c.log.Verbose("Signed in to site %s", c.siteLUID)
	return nil
}

// graphql executes one query against the metadata endpoint, authenticating
// first if no session token is held yet.
func (c *Client) graphql(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	if c.authToken == "" {
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
	}

	payload := map[string]interface{}{"query": query}
	if len(variables) > 0 {
		payload["variables"] = variables
	}

	var resp struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	headers := map[string]string{"X-Tableau-Auth": c.authToken}
	if err := c.postJSON(ctx, c.baseURL+metadataAPIPath, headers, payload, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return fmt.Errorf("metadata query failed: %s", strings.Join(msgs, "; "))
	}
	if out != nil && len(resp.Data) > 0 {
		return json.Unmarshal(resp.Data, out)
	}
	return nil
}

// postJSON issues one POST, retrying transient transport failures. The
// request is rebuilt per attempt so the body reader is fresh each time.
func (c *Client) postJSON(ctx context.Context, url string, headers map[string]string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return c.executor.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %w", twbmeta.ErrServerUnavailable, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &statusError{url: url, status: resp.StatusCode, body: strings.TrimSpace(string(text))}
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}
