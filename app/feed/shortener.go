package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// DefaultShortenerURL is the tinyurl creation endpoint.
const DefaultShortenerURL = "https://tinyurl.com/api-create.php"

// Shortener creates short links through a tinyurl compatible endpoint:
// the link is posted as the form value "url" and the response body is the
// short link.
type Shortener struct {
	httpClient *http.Client
	endpoint   string
	limiter    *rate.Limiter
}

// NewShortener returns a shortener limited to rps requests per second.
// A non-positive rps disables the limit.
func NewShortener(httpClient *http.Client, endpoint string, rps float64) *Shortener {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = DefaultShortenerURL
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &Shortener{
		httpClient: httpClient,
		endpoint:   endpoint,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

func (s *Shortener) Shorten(ctx context.Context, link string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("shortener rate limit: %w", err)
	}

	form := url.Values{"url": {link}}
	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to shorten link: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	short := strings.TrimSpace(string(body))
	if short == "" {
		return "", fmt.Errorf("empty short link for %s", link)
	}

	return short, nil
}
