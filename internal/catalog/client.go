// Package catalog talks to the external movie/series metadata API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"watchlist-service/internal/domain"
)

// Config is everything the client needs; nothing is read from globals.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds every single lookup.
	Timeout time.Duration
}

// Client issues lookups against the catalog's single endpoint.
type Client struct {
	baseURL *url.URL
	apiKey  string
	timeout time.Duration
	shared  *Session
	logger  *slog.Logger
}

// NewClient validates cfg and builds a client with its own shared session.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("catalog API key cannot be empty")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: u,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		shared:  newSession(),
		logger:  logger,
	}, nil
}

// Session is a pooled connection set. One ingestion opens a session, runs
// all of its season and episode lookups through it, and closes it.
type Session struct {
	transport *http.Transport
	http      *http.Client
}

func newSession() *Session {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	return &Session{transport: tr, http: &http.Client{Transport: tr}}
}

// NewSession opens a session owned by the caller.
func (c *Client) NewSession() *Session {
	return newSession()
}

// Close releases the session's idle connections. Safe on nil.
func (s *Session) Close() {
	if s == nil || s.transport == nil {
		return
	}
	s.transport.CloseIdleConnections()
}

// Close releases the shared session.
func (c *Client) Close() {
	c.shared.Close()
}

// Search proxies a free-text search. The upstream payload, pagination
// metadata and in-band errors included, is returned untouched.
func (c *Client) Search(ctx context.Context, sess *Session, query string, page int, year string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("s", query)
	if year != "" {
		params.Set("y", year)
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	status, body, err := c.do(ctx, sess, params)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: search response is not JSON (status %d)", domain.ErrUpstreamMalformed, status)
	}
	if status != http.StatusOK {
		c.logger.WarnContext(ctx, "Catalog search answered with an error status, relaying body",
			slog.Int("status", status), slog.String("query", redact(params)))
	}
	return json.RawMessage(body), nil
}

// ResolveByExternalID looks up a movie or series.
func (c *Client) ResolveByExternalID(ctx context.Context, sess *Session, externalID string) (*TitleRecord, error) {
	params := url.Values{}
	params.Set("i", externalID)
	var rec TitleRecord
	if err := c.lookup(ctx, sess, params, &rec, &rec.envelope); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", externalID, err)
	}
	return &rec, nil
}

// ResolveSeason looks up one season of a series.
func (c *Client) ResolveSeason(ctx context.Context, sess *Session, seriesExternalID string, seasonNumber int) (*SeasonRecord, error) {
	params := url.Values{}
	params.Set("i", seriesExternalID)
	params.Set("Season", strconv.Itoa(seasonNumber))
	var rec SeasonRecord
	if err := c.lookup(ctx, sess, params, &rec, &rec.envelope); err != nil {
		return nil, fmt.Errorf("resolve %s season %d: %w", seriesExternalID, seasonNumber, err)
	}
	return &rec, nil
}

// ResolveEpisode looks up one episode by its own external id.
func (c *Client) ResolveEpisode(ctx context.Context, sess *Session, episodeExternalID string) (*EpisodeRecord, error) {
	params := url.Values{}
	params.Set("i", episodeExternalID)
	var rec EpisodeRecord
	if err := c.lookup(ctx, sess, params, &rec, &rec.envelope); err != nil {
		return nil, fmt.Errorf("resolve episode %s: %w", episodeExternalID, err)
	}
	return &rec, nil
}

// lookup decodes the response into out and turns the in-band failure flag
// into domain.ErrNotFound.
func (c *Client) lookup(ctx context.Context, sess *Session, params url.Values, out any, env *envelope) error {
	body, err := c.get(ctx, sess, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamMalformed, err)
	}
	if !env.ok() {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, env.Error)
	}
	return nil
}

// get is do for lookups: any status other than 200 means the record is
// not available.
func (c *Client) get(ctx context.Context, sess *Session, params url.Values) ([]byte, error) {
	status, body, err := c.do(ctx, sess, params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: catalog returned status %d", domain.ErrNotFound, status)
	}
	return body, nil
}

// do performs one catalog call and returns the status and body as received.
func (c *Client) do(ctx context.Context, sess *Session, params url.Values) (int, []byte, error) {
	if sess == nil {
		sess = c.shared
	}
	params.Set("apikey", c.apiKey)
	u := *c.baseURL
	u.RawQuery = params.Encode()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "Calling catalog", slog.String("query", redact(params)))
	resp, err := sess.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.WarnContext(ctx, "Catalog call timed out", slog.String("query", redact(params)))
			return 0, nil, fmt.Errorf("%w: catalog call timed out", domain.ErrNotFound)
		}
		return 0, nil, fmt.Errorf("%w: catalog request failed: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return 0, nil, fmt.Errorf("%w: catalog call timed out", domain.ErrNotFound)
		}
		return 0, nil, fmt.Errorf("%w: failed to read catalog response: %v", domain.ErrUpstreamUnavailable, err)
	}
	return resp.StatusCode, body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// redact drops the API key from logged queries.
func redact(params url.Values) string {
	cp := url.Values{}
	for k, v := range params {
		if k == "apikey" {
			continue
		}
		cp[k] = v
	}
	return cp.Encode()
}
