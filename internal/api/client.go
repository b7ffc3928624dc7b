// Package api is the client for the NAS server's HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/notanas/notanas-cli/internal/config"
	"github.com/notanas/notanas-cli/internal/constants"
	"github.com/notanas/notanas-cli/internal/http"
	"github.com/notanas/notanas-cli/internal/logging"
	"github.com/notanas/notanas-cli/internal/models"
	"github.com/notanas/notanas-cli/internal/ratelimit"
	"github.com/notanas/notanas-cli/internal/session"
	"github.com/notanas/notanas-cli/internal/version"
)

// Client talks to one NAS server on behalf of a session.
type Client struct {
	httpClient  *nethttp.Client // retrying
	plainClient *nethttp.Client // single attempt, for calls that must not repeat
	guard       *session.Guard
	limiter     *ratelimit.Limiter
	logger      *logging.Logger
	listings    singleflight.Group
	listingGen  atomic.Uint64 // bumped by mutations so later listings never join an older request
}

// Options configures NewClientWithHTTP.
type Options struct {
	Limiter *ratelimit.Limiter
	Logger  *logging.Logger
	Retry   http.RetryOptions
}

// NewClient builds a client from the user configuration.
func NewClient(cfg *config.Config, guard *session.Guard, logger *logging.Logger) (*Client, error) {
	if guard == nil {
		return nil, errors.New("session guard is nil")
	}
	base, err := http.NewHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	return NewClientWithHTTP(base, guard, Options{
		Limiter: ratelimit.NewLimiter(cfg.RequestsPerSecond, constants.DefaultRequestBurst),
		Logger:  logger,
		Retry:   http.DefaultRetryOptions(),
	}), nil
}

// NewClientWithHTTP builds a client around an existing *http.Client.
func NewClientWithHTTP(base *nethttp.Client, guard *session.Guard, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	retry := opts.Retry
	if retry.WaitMin == 0 && retry.WaitMax == 0 && retry.MaxRetries == 0 {
		retry = http.DefaultRetryOptions()
	}
	rc := http.NewRetryClient(base, logger.Zerolog(), retry)

	return &Client{
		httpClient:  rc.StandardClient(),
		plainClient: base,
		guard:       guard,
		limiter:     opts.Limiter,
		logger:      logger,
	}
}

// Guard returns the session the client authenticates with.
func (c *Client) Guard() *session.Guard {
	return c.guard
}

// do sends one request. token may be empty for anonymous calls.
func (c *Client) do(ctx context.Context, hc *nethttp.Client, method, baseURL, path string, query url.Values, body interface{}, token string) (*nethttp.Response, error) {
	op := method + " " + path

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	u := strings.TrimRight(baseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := nethttp.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		c.logger.Error().Err(err).Str("op", op).Str("request_id", requestID).Msg("request failed")
		return nil, &NetworkError{Op: op, Err: err}
	}

	c.logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Str("request_id", requestID).
		Msg("request done")
	return resp, nil
}

// authed sends a request with the session token and applies the session
// policy. On success the caller owns resp.Body.
func (c *Client) authed(ctx context.Context, method, path string, query url.Values, body interface{}) (*nethttp.Response, error) {
	creds, err := c.guard.Credentials()
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, c.httpClient, method, creds.ServerURL, path, query, body, creds.Token)
	if err != nil {
		return nil, err
	}

	if err := c.guard.Check(resp.StatusCode); err != nil {
		drain(resp)
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, serverError(method+" "+path, resp)
	}
	return resp, nil
}

func serverError(op string, resp *nethttp.Response) error {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, constants.MaxErrorBodyBytes))
	return &ServerError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

func drain(resp *nethttp.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, constants.MaxErrorBodyBytes))
	resp.Body.Close()
}

// List returns the children of folderID, or the root listing when folderID
// is models.RootID. Concurrent calls for the same folder share one request;
// each caller gets its own copy of the entries. A call made after a
// successful Delete never joins a request sent before it.
func (c *Client) List(ctx context.Context, folderID string) ([]models.FileEntry, error) {
	key := "list:" + strconv.FormatUint(c.listingGen.Load(), 10) + ":" + folderID
	// The shared request outlives any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	ch := c.listings.DoChan(key, func() (interface{}, error) {
		return c.fetchListing(shared, folderID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		c.logger.Debug().Str("folder_id", folderID).Msg("listing request shared")
	}
	entries := res.Val.([]models.FileEntry)
	out := make([]models.FileEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (c *Client) fetchListing(ctx context.Context, folderID string) ([]models.FileEntry, error) {
	path := constants.RootListingPath
	var query url.Values
	if folderID != models.RootID {
		path = constants.ChildrenPath
		query = url.Values{"id": {folderID}}
	}

	resp, err := c.authed(ctx, nethttp.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return c.decodeListing(resp, "list folder")
}

// Search runs a server-side name search.
func (c *Client) Search(ctx context.Context, query string) ([]models.FileEntry, error) {
	resp, err := c.authed(ctx, nethttp.MethodGet, constants.SearchPath+url.PathEscape(query), nil, nil)
	if err != nil {
		return nil, err
	}
	return c.decodeListing(resp, "search")
}

func (c *Client) decodeListing(resp *nethttp.Response, op string) ([]models.FileEntry, error) {
	defer resp.Body.Close()

	var listing models.ListingResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", op, err)
	}

	entries := make([]models.FileEntry, 0, len(listing.Files))
	for _, f := range listing.Files {
		// The empty id is reserved for the root sentinel.
		if f.ID == models.RootID {
			c.logger.Warn().Str("name", f.Name).Msg("dropping entry without id")
			continue
		}
		entries = append(entries, f)
	}
	return entries, nil
}

// CreateOTL asks the server for a one-time link token for a file.
func (c *Client) CreateOTL(ctx context.Context, grant models.OTLGrant) (string, error) {
	query := url.Values{
		"id":           {grant.FileID},
		"expires":      {strconv.FormatInt(int64(grant.Expiry/time.Second), 10)},
		"maxdownloads": {strconv.Itoa(grant.MaxDownloads)},
	}
	resp, err := c.authed(ctx, nethttp.MethodGet, constants.OTLCreatePath, query, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var otl models.OTLResponse
	if err := json.NewDecoder(resp.Body).Decode(&otl); err != nil {
		return "", fmt.Errorf("failed to decode one-time link response: %w", err)
	}
	if otl.Token == "" {
		return "", ErrEmptyToken
	}
	return otl.Token, nil
}

// Delete removes a file or folder.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	resp, err := c.authed(ctx, nethttp.MethodDelete, constants.DeletePath, url.Values{"id": {fileID}}, nil)
	if err != nil {
		return err
	}
	drain(resp)
	c.listingGen.Add(1)
	return nil
}

// Payload is a streamed file body. The caller must Close it.
type Payload struct {
	Body               io.ReadCloser
	ContentDisposition string
	ContentType        string
	Size               int64 // -1 when unknown
}

// Close releases the underlying response body.
func (p *Payload) Close() error {
	return p.Body.Close()
}

func payloadFrom(resp *nethttp.Response) *Payload {
	return &Payload{
		Body:               resp.Body,
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		ContentType:        resp.Header.Get("Content-Type"),
		Size:               resp.ContentLength,
	}
}

// Download opens the content of a file.
func (c *Client) Download(ctx context.Context, fileID string) (*Payload, error) {
	resp, err := c.authed(ctx, nethttp.MethodGet, constants.DownloadPath, url.Values{"id": {fileID}}, nil)
	if err != nil {
		return nil, err
	}
	return payloadFrom(resp), nil
}

// RedeemOTL downloads the file behind a one-time link. No session is used and
// the request is sent exactly once: every attempt consumes a download.
func (c *Client) RedeemOTL(ctx context.Context, serverURL, token string) (*Payload, error) {
	if serverURL == "" {
		return nil, config.ErrMissingServerURL
	}
	resp, err := c.do(ctx, c.plainClient, nethttp.MethodGet, serverURL, constants.OTLRedeemPath, url.Values{"id": {token}}, nil, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := serverError("redeem one-time link", resp)
		return nil, fmt.Errorf("%w: %v", ErrOTLExhausted, se)
	}
	return payloadFrom(resp), nil
}

// Login exchanges a username and password for a bearer token.
func (c *Client) Login(ctx context.Context, serverURL, username, password string) (string, error) {
	if serverURL == "" {
		return "", config.ErrMissingServerURL
	}
	resp, err := c.do(ctx, c.plainClient, nethttp.MethodPost, serverURL, constants.AuthPath, nil,
		models.AuthRequest{Username: username, Password: password}, "")
	if err != nil {
		return "", err
	}
	if resp.StatusCode == nethttp.StatusUnauthorized {
		drain(resp)
		return "", ErrInvalidCredentials
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", serverError("login", resp)
	}
	defer resp.Body.Close()

	var auth models.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if auth.Token == "" {
		return "", ErrEmptyToken
	}
	return auth.Token, nil
}
