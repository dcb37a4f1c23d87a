package outline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hazyhaar/domstage/internal/safeurl"
)

// FetchConfig configures the outline fetcher.
type FetchConfig struct {
	Timeout   time.Duration // HTTP timeout. Default: 30s.
	MaxBytes  int64         // Max response body size. Default: safeurl.MaxBody.
	UserAgent string
	// Validate guards target URLs before fetch and on every redirect.
	// Default: safeurl.ValidatePublic.
	Validate func(string) error
}

func (c *FetchConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = safeurl.MaxBody
	}
	if c.UserAgent == "" {
		c.UserAgent = "domstage/1.0"
	}
	if c.Validate == nil {
		c.Validate = safeurl.ValidatePublic
	}
}

// Fetcher retrieves page HTML for static outlining.
type Fetcher struct {
	client *http.Client
	cfg    FetchConfig
}

// NewFetcher creates a Fetcher with URL validation on redirects.
func NewFetcher(cfg FetchConfig) *Fetcher {
	cfg.defaults()
	validate := cfg.Validate
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		cfg: cfg,
	}
}

// Fetch retrieves rawURL, capped at MaxBytes.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.cfg.Validate(rawURL); err != nil {
		return nil, fmt.Errorf("outline: URL blocked: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("outline: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("outline: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("outline: http %d", resp.StatusCode)
	}

	body, err := safeurl.LimitedReadAll(resp.Body, f.cfg.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("outline: read body: %w", err)
	}
	return body, nil
}

// Outline fetches rawURL and runs the full treatment on it.
func (f *Fetcher) Outline(ctx context.Context, rawURL string) (*Outline, error) {
	body, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return FromHTML(body, rawURL)
}
