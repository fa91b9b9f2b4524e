// Package remote is the client for the hosted row store that backs the board.
//
// The store speaks the PostgREST dialect served by Supabase: one REST resource
// per collection under /rest/v1, filters in the query string, and
// "Prefer: return=representation" to get canonical rows back from writes.
//
// # Naming
//
// Records cross this package boundary as camelCase JSON (the internal
// convention used by schema). Rows on the wire are snake_case. The only place
// the two meet is the mapping table in fieldmap.go.
//
// # Resilience
//
// Every request runs through a circuit breaker. After five consecutive
// transport or server failures the breaker opens and calls fail fast until
// the cool-down elapses. Client errors (4xx) do not count toward tripping.
//
// # Change notification
//
// RealtimeFeed subscribes to the realtime websocket endpoint. PollFeed is a
// fallback that lists a collection on an interval and compares fingerprints.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/logging"
)

// Placeholder values shipped in starter configs. A client configured with
// either is treated as unconfigured.
const (
	PlaceholderURL = "https://your-project.supabase.co"
	PlaceholderKey = "your-anon-key"
)

// Config holds client configuration.
type Config struct {
	URL string
	Key string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// BreakerCoolDown is how long the breaker stays open before probing.
	BreakerCoolDown time.Duration

	// BreakerFailures is the consecutive failure count that opens the breaker.
	BreakerFailures uint32

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// DefaultConfig returns default client settings without credentials.
func DefaultConfig() Config {
	return Config{
		Timeout:         15 * time.Second,
		BreakerCoolDown: 30 * time.Second,
		BreakerFailures: 5,
	}
}

// Client talks to the remote row store.
type Client struct {
	base    string
	key     string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  logrus.FieldLogger
}

// New creates a client with default settings.
func New(baseURL, key string) *Client {
	cfg := DefaultConfig()
	cfg.URL = baseURL
	cfg.Key = key
	return NewWithConfig(cfg)
}

// NewWithConfig creates a client with custom settings.
func NewWithConfig(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerCoolDown <= 0 {
		cfg.BreakerCoolDown = def.BreakerCoolDown
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := logging.Component(cfg.Logger, "remote")
	failures := cfg.BreakerFailures

	return &Client{
		base:   strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		key:    strings.TrimSpace(cfg.Key),
		http:   cfg.HTTPClient,
		logger: logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "remote-store",
			MaxRequests: 1,
			Timeout:     cfg.BreakerCoolDown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: breakerSuccess,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.WithField("breaker", name).Infof("circuit breaker changed from %s to %s", from, to)
			},
		}),
	}
}

// Configured reports whether a real URL and key are set.
func (c *Client) Configured() bool {
	if c == nil || c.base == "" || c.key == "" {
		return false
	}
	return c.base != PlaceholderURL && c.key != PlaceholderKey
}

// URL returns the base URL.
func (c *Client) URL() string { return c.base }

// Key returns the API key.
func (c *Client) Key() string { return c.key }

// List fetches every record in the collection, newest first.
func (c *Client) List(ctx context.Context, col schema.Collection) ([]json.RawMessage, error) {
	order, ok := sortColumn[col]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", col)
	}
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", order+".desc")

	rows, err := c.do(ctx, "list", col, http.MethodGet, q, nil)
	if err != nil {
		return nil, err
	}
	return toInternalAll(col, rows)
}

// Insert creates a record and returns the canonical stored version.
func (c *Client) Insert(ctx context.Context, col schema.Collection, rec json.RawMessage) (json.RawMessage, error) {
	row, err := ToExternal(col, rec, false)
	if err != nil {
		return nil, err
	}

	rows, err := c.do(ctx, "insert", col, http.MethodPost, nil, row)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert %s: remote returned no row", col)
	}
	return ToInternal(col, rows[0])
}

// Update replaces the record's fields and returns the canonical stored version.
// ErrNotFound is returned when no row has the id.
func (c *Client) Update(ctx context.Context, col schema.Collection, id string, rec json.RawMessage) (json.RawMessage, error) {
	row, err := ToExternal(col, rec, true)
	if err != nil {
		return nil, err
	}
	delete(row, "id")

	rows, err := c.do(ctx, "update", col, http.MethodPatch, idFilter(id), row)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("update %s %s: %w", col.Singular(), id, ErrNotFound)
	}
	return ToInternal(col, rows[0])
}

// Delete removes a record. Deleting a missing id is not an error.
func (c *Client) Delete(ctx context.Context, col schema.Collection, id string) error {
	_, err := c.do(ctx, "delete", col, http.MethodDelete, idFilter(id), nil)
	return err
}

func idFilter(id string) url.Values {
	q := url.Values{}
	q.Set("id", "eq."+id)
	return q
}

func (c *Client) do(ctx context.Context, op string, col schema.Collection, method string, q url.Values, body any) ([]map[string]any, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, op, col, method, q, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s %s: %w", op, col, err)
		}
		return nil, err
	}
	rows, _ := res.([]map[string]any)
	return rows, nil
}

func (c *Client) roundTrip(ctx context.Context, op string, col schema.Collection, method string, q url.Values, body any) ([]map[string]any, error) {
	endpoint := c.base + "/rest/v1/" + string(col)
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	c.logger.WithFields(logrus.Fields{"op": op, "collection": col}).Debug("remote request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, col, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response: %w", op, col, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{
			Op:         op,
			Collection: col,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%s %s: failed to decode response: %w", op, col, err)
	}
	return rows, nil
}

func toInternalAll(col schema.Collection, rows []map[string]any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		rec, err := ToInternal(col, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// breakerSuccess keeps client errors from tripping the breaker; only
// transport failures and 5xx-class responses count.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var re *RequestError
	if errors.As(err, &re) {
		return !re.Temporary()
	}
	return errors.Is(err, context.Canceled)
}
