package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gracechapel/outreach-backend/internal/pkg/ctxutil"
	"github.com/gracechapel/outreach-backend/internal/pkg/envutil"
	"github.com/gracechapel/outreach-backend/internal/pkg/httpx"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
)

type Client interface {
	Send(ctx context.Context, req SendEmailRequest) error
}

type Config struct {
	APIKey           string
	BaseURL          string
	DefaultFromEmail string
	DefaultFromName  string
	Timeout          time.Duration
	MaxRetries       int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:           strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")),
		BaseURL:          strings.TrimSpace(os.Getenv("SENDGRID_BASE_URL")),
		DefaultFromEmail: strings.TrimSpace(os.Getenv("SENDGRID_FROM_EMAIL")),
		DefaultFromName:  strings.TrimSpace(os.Getenv("SENDGRID_FROM_NAME")),
		Timeout:          envutil.Duration("SENDGRID_TIMEOUT", 30*time.Second),
		MaxRetries:       envutil.Int("SENDGRID_MAX_RETRIES", 4),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if cfg.DefaultFromEmail == "" {
		return nil, fmt.Errorf("missing SENDGRID_FROM_EMAIL")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.sendgrid.com/v3"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}

	return &client{
		log:        log.With("client", "SendgridClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type SendEmailRequest struct {
	ToEmail  string
	Subject  string
	TextBody string
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailBody struct {
	Personalizations []struct {
		To []emailAddress `json:"to"`
	} `json:"personalizations"`
	From    emailAddress `json:"from"`
	Subject string       `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "sendgrid: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) Send(ctx context.Context, req SendEmailRequest) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("sendgrid client unavailable")
	}
	req.ToEmail = strings.TrimSpace(req.ToEmail)
	if req.ToEmail == "" {
		return fmt.Errorf("sendgrid: To required")
	}
	if strings.TrimSpace(req.TextBody) == "" {
		return fmt.Errorf("sendgrid: body required")
	}

	body := mailBody{
		From:    emailAddress{Email: c.cfg.DefaultFromEmail, Name: c.cfg.DefaultFromName},
		Subject: req.Subject,
	}
	body.Personalizations = append(body.Personalizations, struct {
		To []emailAddress `json:"to"`
	}{To: []emailAddress{{Email: req.ToEmail}}})
	body.Content = append(body.Content, struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{Type: "text/plain", Value: req.TextBody})

	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	endpoint := c.cfg.BaseURL + "/mail/send"
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		resp, err := c.sendOnce(ctx, endpoint, raw)
		if err == nil {
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("sendgrid request retrying",
			"attempt", attempt+1,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func (c *client) sendOnce(ctx context.Context, endpoint string, raw []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp, nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(b)}
}
