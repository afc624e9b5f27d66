package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gracechapel/outreach-backend/internal/pkg/ctxutil"
	"github.com/gracechapel/outreach-backend/internal/pkg/envutil"
	"github.com/gracechapel/outreach-backend/internal/pkg/httpx"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
)

// batchLimit is the remote base's hard ceiling on records per batch call.
const batchLimit = 10

// Fields is one record's field set as the remote API sees it.
type Fields map[string]any

type Record struct {
	ID          string    `json:"id"`
	Fields      Fields    `json:"fields"`
	CreatedTime time.Time `json:"createdTime,omitempty"`
}

type RecordPatch struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

type ListOptions struct {
	// FilterFormula is the remote base's filter expression. See formula.go
	// for builders.
	FilterFormula string
	MaxRecords    int
	FieldNames    []string
}

// Client is the only path to the remote record base. Every call waits on a
// shared token bucket so the process as a whole stays under the base's
// request cap, and retries 429/5xx with exponential backoff.
type Client interface {
	List(ctx context.Context, table string, opts ListOptions) ([]Record, error)
	Create(ctx context.Context, table string, fields Fields) (*Record, error)
	Update(ctx context.Context, table string, id string, fields Fields) (*Record, error)
	BatchCreate(ctx context.Context, table string, fields []Fields) ([]Record, error)
	BatchUpdate(ctx context.Context, table string, patches []RecordPatch) ([]Record, error)
	Ping(ctx context.Context) error
}

type Config struct {
	BaseURL    string
	BaseID     string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	// RatePerSec caps outbound requests across all concurrent
	// reconciliations.
	RatePerSec float64
	Burst      int
	// PingTable is the table probed by Ping (readiness checks).
	PingTable string
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    strings.TrimSpace(os.Getenv("RECORDSTORE_BASE_URL")),
		BaseID:     strings.TrimSpace(os.Getenv("RECORDSTORE_BASE_ID")),
		APIKey:     strings.TrimSpace(os.Getenv("RECORDSTORE_API_KEY")),
		Timeout:    envutil.Duration("RECORDSTORE_TIMEOUT", 30*time.Second),
		MaxRetries: envutil.Int("RECORDSTORE_MAX_RETRIES", 4),
		RatePerSec: envutil.Float("RECORDSTORE_RATE_PER_SEC", 5),
		Burst:      envutil.Int("RECORDSTORE_RATE_BURST", 5),
		PingTable:  envutil.Str("RECORDSTORE_PING_TABLE", ""),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.BaseID == "" {
		return nil, fmt.Errorf("missing RECORDSTORE_BASE_ID")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing RECORDSTORE_API_KEY")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.airtable.com/v0"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &client{
		log:        log.With("client", "RecordStoreClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

type recordsEnvelope struct {
	Records  []recordBody `json:"records"`
	Typecast bool         `json:"typecast,omitempty"`
}

type recordBody struct {
	ID     string `json:"id,omitempty"`
	Fields Fields `json:"fields"`
}

func (c *client) tableURL(table string) string {
	return fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, url.PathEscape(c.cfg.BaseID), url.PathEscape(table))
}

func (c *client) List(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	var out []Record
	offset := ""
	for {
		q := url.Values{}
		if opts.FilterFormula != "" {
			q.Set("filterByFormula", opts.FilterFormula)
		}
		if opts.MaxRecords > 0 {
			q.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
		}
		for _, f := range opts.FieldNames {
			q.Add("fields[]", f)
		}
		if offset != "" {
			q.Set("offset", offset)
		}
		urlStr := c.tableURL(table)
		if enc := q.Encode(); enc != "" {
			urlStr += "?" + enc
		}

		page, err := doJSON[listResponse](c, ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Records...)
		if page.Offset == "" {
			return out, nil
		}
		if opts.MaxRecords > 0 && len(out) >= opts.MaxRecords {
			return out[:opts.MaxRecords], nil
		}
		offset = page.Offset
	}
}

func (c *client) Create(ctx context.Context, table string, fields Fields) (*Record, error) {
	recs, err := c.BatchCreate(ctx, table, []Fields{fields})
	if err != nil {
		return nil, err
	}
	if len(recs) != 1 {
		return nil, fmt.Errorf("recordstore: create %s returned %d records", table, len(recs))
	}
	return &recs[0], nil
}

func (c *client) Update(ctx context.Context, table string, id string, fields Fields) (*Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("recordstore: update %s: id required", table)
	}
	recs, err := c.BatchUpdate(ctx, table, []RecordPatch{{ID: id, Fields: fields}})
	if err != nil {
		return nil, err
	}
	if len(recs) != 1 {
		return nil, fmt.Errorf("recordstore: update %s returned %d records", table, len(recs))
	}
	return &recs[0], nil
}

func (c *client) BatchCreate(ctx context.Context, table string, fields []Fields) ([]Record, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	var out []Record
	for start := 0; start < len(fields); start += batchLimit {
		end := start + batchLimit
		if end > len(fields) {
			end = len(fields)
		}
		body := recordsEnvelope{Typecast: true}
		for _, f := range fields[start:end] {
			body.Records = append(body.Records, recordBody{Fields: f})
		}
		resp, err := doJSON[listResponse](c, ctx, http.MethodPost, c.tableURL(table), body)
		if err != nil {
			return out, err
		}
		out = append(out, resp.Records...)
	}
	return out, nil
}

func (c *client) BatchUpdate(ctx context.Context, table string, patches []RecordPatch) ([]Record, error) {
	if len(patches) == 0 {
		return nil, nil
	}
	var out []Record
	for start := 0; start < len(patches); start += batchLimit {
		end := start + batchLimit
		if end > len(patches) {
			end = len(patches)
		}
		body := recordsEnvelope{Typecast: true}
		for _, p := range patches[start:end] {
			body.Records = append(body.Records, recordBody{ID: p.ID, Fields: p.Fields})
		}
		resp, err := doJSON[listResponse](c, ctx, http.MethodPatch, c.tableURL(table), body)
		if err != nil {
			return out, err
		}
		out = append(out, resp.Records...)
	}
	return out, nil
}

func (c *client) Ping(ctx context.Context) error {
	if c.cfg.PingTable == "" {
		return nil
	}
	_, err := c.List(ctx, c.cfg.PingTable, ListOptions{MaxRecords: 1})
	return err
}

// ---------- HTTP / retry helpers ----------

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type HTTPError struct {
	StatusCode int
	Body       string
	APIError   *apiError
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "recordstore: <nil error>"
	}
	if e.APIError != nil && strings.TrimSpace(e.APIError.Message) != "" {
		return fmt.Sprintf("recordstore http %d: %s (%s)", e.StatusCode, e.APIError.Message, e.APIError.Type)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("recordstore http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func doJSON[T any](c *client, ctx context.Context, method, urlStr string, body any) (*T, error) {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		out, resp, err := doJSONOnce[T](c, ctx, method, urlStr, body)
		if err == nil {
			return out, nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 30*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("record store request retrying",
			"url", urlStr,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("unreachable retry loop")
}

func doJSONOnce[T any](c *client, ctx context.Context, method, urlStr string, body any) (*T, *http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, urlStr, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, resp, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		var envelope struct {
			Error apiError `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
			httpErr.APIError = &envelope.Error
		}
		return nil, resp, httpErr
	}

	var out T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, resp, fmt.Errorf("recordstore: decode %s response: %w", method, err)
		}
	}
	return &out, resp, nil
}
