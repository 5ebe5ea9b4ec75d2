package acquisition

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/internal/repository"
)

var testSource = entity.Source{
	ID:       "portal",
	Hosts:    []string{"portal.example"},
	PagePath: "/%d",
	Selectors: entity.Selectors{
		Item:  "article",
		Title: "h2",
		Link:  "a",
		Date:  "time",
		Body:  "p",
	},
}

func listing(prefix string, n int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<article><h2>%s title %d</h2><a href="/read/%s-%d">more</a><time>2 September 2025</time><p>body %d</p></article>`, prefix, i, prefix, i, i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) FetchPage(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	if html, ok := f.pages[url]; ok {
		return html, nil
	}
	return "<html><body></body></html>", nil
}

type fakeBrowser struct {
	unavailable error
	openErr     error
	session     *fakeSession
}

func (b *fakeBrowser) Available() error { return b.unavailable }

func (b *fakeBrowser) Open(context.Context) (repository.BrowserSession, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.session, nil
}

// fakeSession grows its DOM by one batch per click, like a load-more listing.
type fakeSession struct {
	batches  []string
	shown    int
	navErr   error
	navs     []string
	clicks   int
	closed   bool
	navPages map[string]string
	current  string
}

func (s *fakeSession) Navigate(_ context.Context, url, _ string) error {
	s.navs = append(s.navs, url)
	if s.navErr != nil {
		return s.navErr
	}
	s.shown = 1
	s.current = url
	return nil
}

func (s *fakeSession) Click(context.Context, string, string) (bool, error) {
	s.clicks++
	if s.shown >= len(s.batches) {
		return false, nil
	}
	s.shown++
	return true, nil
}

func (s *fakeSession) HTML(context.Context) (string, error) {
	if html, ok := s.navPages[s.current]; ok {
		return html, nil
	}
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, batch := range s.batches[:s.shown] {
		b.WriteString(batch)
	}
	b.WriteString("</body></html>")
	return b.String(), nil
}

func (s *fakeSession) Close() { s.closed = true }
