package chromedp_crawler

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/internal/proxy"
	"github.com/user/harvest-service/internal/repository"
)

// clickSettle gives the page time to start its XHR before we wait on the
// result selector.
const clickSettle = 500 * time.Millisecond

var chromeCandidates = []string{
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
}

// Browser implements repository.Browser on top of a local Chrome/Chromium.
type Browser struct {
	execPath string
	timeout  time.Duration
	proxies  *proxy.Manager
	logger   *zap.Logger
}

// NewBrowser creates a browser launcher. An empty execPath means the first
// Chrome found on PATH.
func NewBrowser(execPath string, pageLoadTimeout time.Duration, proxies *proxy.Manager, logger *zap.Logger) *Browser {
	return &Browser{
		execPath: execPath,
		timeout:  pageLoadTimeout,
		proxies:  proxies,
		logger:   logger,
	}
}

// Available reports whether a browser executable can be found.
func (b *Browser) Available() error {
	if b.execPath != "" {
		if _, err := exec.LookPath(b.execPath); err != nil {
			return fmt.Errorf("chrome at %q: %w", b.execPath, err)
		}
		return nil
	}
	for _, name := range chromeCandidates {
		if _, err := exec.LookPath(name); err == nil {
			return nil
		}
	}
	return errors.New("no chrome or chromium executable on PATH")
}

// Open launches a browser process with a single tab.
func (b *Browser) Open(ctx context.Context) (repository.BrowserSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.proxies.GetUserAgent()),
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}
	if p := b.proxies.GetProxy(); p != "" {
		opts = append(opts, chromedp.ProxyServer(p))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(b.logger.Sugar().Debugf))

	s := &session{
		ctx:     taskCtx,
		timeout: b.timeout,
		logger:  b.logger,
		cancel: func() {
			taskCancel()
			allocCancel()
		},
	}

	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			s.lastStatus.Store(e.Response.Status)
		}
	})

	// The first Run starts the browser process.
	if err := chromedp.Run(taskCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "id-ID,id;q=0.9,en;q=0.8"}),
	); err != nil {
		s.cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

type session struct {
	ctx        context.Context
	cancel     func()
	timeout    time.Duration
	logger     *zap.Logger
	lastStatus atomic.Int64
}

func (s *session) Navigate(ctx context.Context, url, waitSelector string) error {
	if err := ctx.Err(); err != nil {
		return &entity.TransportError{URL: url, Err: err}
	}
	if waitSelector == "" {
		waitSelector = "body"
	}
	s.lastStatus.Store(0)

	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(waitSelector, chromedp.ByQuery),
	)
	status := int(s.lastStatus.Load())

	s.logger.Debug("navigated",
		zap.String("url", url),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)))

	if status >= 400 {
		return &entity.TransportError{URL: url, StatusCode: status}
	}
	if err != nil {
		return &entity.TransportError{URL: url, Err: err}
	}
	return nil
}

func (s *session) Click(ctx context.Context, selector, waitSelector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if waitSelector == "" {
		waitSelector = "body"
	}
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(runCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return false, &entity.TransportError{URL: selector, Err: err}
	}
	if len(nodes) == 0 {
		return false, nil
	}

	err := chromedp.Run(runCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
		chromedp.Sleep(clickSettle),
		chromedp.WaitReady(waitSelector, chromedp.ByQuery),
	)
	if err != nil {
		return false, &entity.TransportError{URL: selector, Err: fmt.Errorf("click: %w", err)}
	}
	return true, nil
}

func (s *session) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read dom: %w", err)
	}
	return html, nil
}

func (s *session) Close() {
	s.cancel()
}
