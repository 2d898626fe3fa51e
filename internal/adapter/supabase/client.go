package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mahnoorwas/rain-route-smart/internal/observability"
)

// Client is the low-level record store client. It speaks the PostgREST
// dialect: one table per request, equality filters, ordering, limits, and
// single-object coercion. Every call is a single round-trip with no retry
// and no caching.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a record store client for the given project URL.
func NewClient(baseURL, anonKey string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// StoreError is a non-2xx response from the record store.
type StoreError struct {
	Status  int
	Message string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record store: status %d: %s", e.Status, e.Message)
}

// From starts a query against one table.
func (c *Client) From(table string) *Query {
	return &Query{
		client: c,
		table:  table,
		params: url.Values{},
	}
}

// Query accumulates filters for a single table request.
type Query struct {
	client      *Client
	table       string
	params      url.Values
	accessToken string
}

// Select names the columns to return.
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq adds an equality filter on one column.
func (q *Query) Eq(column, value string) *Query {
	q.params.Set(column, "eq."+value)
	return q
}

// Order sorts by one column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params.Set("order", column+"."+dir)
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// Auth attaches the caller's access token so the store's row-level policies
// apply. Without it requests run with anonymous rights only.
func (q *Query) Auth(token string) *Query {
	q.accessToken = token
	return q
}

// Get executes a select and decodes the row array into dest.
func (q *Query) Get(ctx context.Context, dest any) error {
	return q.do(ctx, http.MethodGet, "select", nil, dest)
}

// MaybeSingle executes a select limited to one row and decodes it into dest.
// It reports whether a row was found; absence is not an error.
func (q *Query) MaybeSingle(ctx context.Context, dest any) (bool, error) {
	q.Limit(1)

	var rows []json.RawMessage
	if err := q.do(ctx, http.MethodGet, "select", nil, &rows); err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(rows[0], dest); err != nil {
		return false, fmt.Errorf("decode %s row: %w", q.table, err)
	}
	return true, nil
}

// Insert posts one record and decodes the stored representation (including
// store-generated id and created_at) into dest when dest is non-nil.
func (q *Query) Insert(ctx context.Context, record, dest any) error {
	return q.do(ctx, http.MethodPost, "insert", record, dest)
}

// Update patches the rows matched by the accumulated filters.
func (q *Query) Update(ctx context.Context, patch any) error {
	return q.do(ctx, http.MethodPatch, "update", patch, nil)
}

// Delete removes the rows matched by the accumulated filters.
func (q *Query) Delete(ctx context.Context) error {
	return q.do(ctx, http.MethodDelete, "delete", nil, nil)
}

func (q *Query) do(ctx context.Context, method, op string, body, dest any) error {
	c := q.client
	start := time.Now()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", op, q.table, err)
		}
		reader = bytes.NewReader(data)
	}

	u := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, url.PathEscape(q.table), q.params.Encode())
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	token := q.accessToken
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost && dest != nil {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(q.table, op, "error", start)
		return fmt.Errorf("%s %s: %w", op, q.table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(q.table, op, "error", start)
		return &StoreError{Status: resp.StatusCode, Message: readStoreMessage(resp.Body)}
	}

	if dest != nil {
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			c.observe(q.table, op, "error", start)
			return fmt.Errorf("read %s response: %w", q.table, err)
		}
		// Inserts with return=representation answer with a one-element array.
		if method == http.MethodPost {
			payload = unwrapSingleton(payload)
		}
		if err := json.Unmarshal(payload, dest); err != nil {
			c.observe(q.table, op, "error", start)
			return fmt.Errorf("decode %s response: %w", q.table, err)
		}
	}

	c.observe(q.table, op, "success", start)
	return nil
}

func (c *Client) observe(table, op, outcome string, start time.Time) {
	c.metrics.StoreRequests.WithLabelValues(table, op, outcome).Inc()
	c.metrics.StoreRequestDuration.WithLabelValues(table, op).Observe(time.Since(start).Seconds())
}

// unwrapSingleton strips the enclosing array from a one-element response.
func unwrapSingleton(payload []byte) []byte {
	var rows []json.RawMessage
	if err := json.Unmarshal(payload, &rows); err == nil && len(rows) == 1 {
		return rows[0]
	}
	return payload
}

// readStoreMessage extracts the error message from a PostgREST error body.
func readStoreMessage(r io.Reader) string {
	body, _ := io.ReadAll(r)
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return string(body)
}
