// Package httpfetch is the lightweight transport: a plain HTTP GET per page.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/internal/proxy"
)

const maxBodyBytes = 8 << 20

// Fetcher implements repository.PageFetcher.
type Fetcher struct {
	client  *http.Client
	proxies *proxy.Manager
	logger  *zap.Logger
}

// New creates a fetcher whose requests time out after timeout.
func New(timeout time.Duration, proxies *proxy.Manager, logger *zap.Logger) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxies.ProxyFunc()
	return &Fetcher{
		client:  &http.Client{Timeout: timeout, Transport: transport},
		proxies: proxies,
		logger:  logger,
	}
}

// FetchPage GETs url and returns the body decoded to UTF-8.
func (f *Fetcher) FetchPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &entity.TransportError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.proxies.GetUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "id-ID,id;q=0.9,en;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", &entity.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	f.logger.Debug("fetched page",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &entity.TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &entity.TransportError{URL: url, Err: fmt.Errorf("decode charset: %w", err)}
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", &entity.TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(body), nil
}
