package pocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pocketsnooze/snoozerd/internal/logger"
	"github.com/pocketsnooze/snoozerd/internal/utils"
)

// TokenStore is the slice of the snooze store the gateway needs: the access
// token is read before every call and evicted when Pocket rejects it.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	ClearAccessToken(ctx context.Context) error
}

// ClientOptions configures the Pocket API gateway.
type ClientOptions struct {
	BaseURL     string // versioned API base, ex: https://getpocket.com/v3
	ConsumerKey string
	Tokens      TokenStore
	HTTPClient  *http.Client
	Logger      logger.Logger
}

// Client is the only component that talks to the Pocket API. It attaches the
// consumer key and, when present, the stored access token to every call, and
// classifies failures into the RequestError taxonomy.
type Client struct {
	baseURL     string
	consumerKey string
	tokens      TokenStore
	http        *http.Client
	logger      logger.Logger
}

// NewClient creates a Pocket API gateway.
func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://getpocket.com/v3"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:     baseURL,
		consumerKey: opts.ConsumerKey,
		tokens:      opts.Tokens,
		http:        httpClient,
		logger:      opts.Logger,
	}
}

// RequestToken obtains an authentication code to start the OAuth handshake.
func (c *Client) RequestToken(ctx context.Context, redirectURI string) (string, error) {
	var out requestTokenResponse
	params := map[string]any{"redirect_uri": redirectURI}
	if err := c.request(ctx, PathRequest, params, &out); err != nil {
		return "", err
	}
	return out.Code, nil
}

// Authorize exchanges an approved authentication code for a permanent access
// token and the account username.
func (c *Client) Authorize(ctx context.Context, code string) (token, username string, err error) {
	var out authorizeResponse
	params := map[string]any{"code": code}
	if err := c.request(ctx, PathAuthorize, params, &out); err != nil {
		return "", "", err
	}
	return out.AccessToken, out.Username, nil
}

// Add saves a URL as a new Pocket item with the given tags.
func (c *Client) Add(ctx context.Context, url, tags string) (Item, error) {
	var out addResponse
	params := map[string]any{"url": url, "tags": tags}
	if err := c.request(ctx, PathAdd, params, &out); err != nil {
		return Item{}, err
	}
	return out.Item, nil
}

// Modify sends a batch of modification actions in a single /send call.
func (c *Client) Modify(ctx context.Context, actions []Action) error {
	params := map[string]any{"actions": actions}
	return c.request(ctx, PathModify, params, nil)
}

// Retrieve fetches items matching opts, keyed by item ID.
func (c *Client) Retrieve(ctx context.Context, opts RetrieveOptions) (map[string]Item, error) {
	params := map[string]any{}
	if opts.State != "" {
		params["state"] = opts.State
	}
	if opts.Tag != "" {
		params["tag"] = opts.Tag
	}
	if opts.DetailsType != "" {
		params["detailsType"] = opts.DetailsType
	}
	if opts.Since > 0 {
		params["since"] = opts.Since
	}
	var out retrieveResponse
	if err := c.request(ctx, PathRetrieve, params, &out); err != nil {
		return nil, err
	}
	return out.List, nil
}

// request sends one authenticated call to the Pocket API and decodes the JSON
// response into out (when non-nil). Reading the token from the store is a
// suspension point on every call; an unauthorized response deletes it.
func (c *Client) request(ctx context.Context, path string, params map[string]any, out any) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to read access token: %w", err)
	}

	body := map[string]any{"consumer_key": c.consumerKey}
	if token != "" {
		body["access_token"] = token
	}
	for k, v := range params {
		body[k] = v
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("X-Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		reqErr := transportError(err)
		c.logger.Warn("pocket request failed before a response",
			logger.String("path", path),
			logger.Error(err))
		return reqErr
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.classifyFailure(ctx, path, token, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{
			Kind:    KindRemote,
			Message: fmt.Sprintf("pocket api returned malformed response for %s: %v", path, err),
			Status:  resp.StatusCode,
			XError:  XErrorUnknown,
		}
	}
	return nil
}

// classifyFailure maps a non-success response into the error taxonomy and
// evicts the stored token on an authorization failure.
func (c *Client) classifyFailure(ctx context.Context, path, token string, resp *http.Response) error {
	xError := resp.Header.Get("X-Error")
	if xError == "" {
		xError = XErrorUnknown
	}

	if token != "" && resp.StatusCode == http.StatusUnauthorized {
		if err := c.tokens.ClearAccessToken(ctx); err != nil {
			c.logger.Error("failed to evict rejected access token",
				logger.Error(err))
		} else {
			c.logger.Warn("access token rejected by pocket, evicted from store",
				logger.String("path", path))
		}
		return &RequestError{
			Kind:    KindAuth,
			Message: fmt.Sprintf("user is not authorized with pocket: %s", resp.Status),
			Status:  resp.StatusCode,
			XError:  xError,
		}
	}

	c.logger.Warn("pocket api error",
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.String("x_error", xError))
	return &RequestError{
		Kind:    KindRemote,
		Message: fmt.Sprintf("pocket api error: %s", resp.Status),
		Status:  resp.StatusCode,
		XError:  xError,
	}
}
