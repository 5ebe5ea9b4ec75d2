package repository

import "context"

// PageFetcher retrieves the markup of a single page over HTTP.
// Failures are returned as *entity.TransportError.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// Browser starts headless browser sessions.
type Browser interface {
	// Available reports why sessions cannot be started, or nil.
	Available() error
	Open(ctx context.Context) (BrowserSession, error)
}

// BrowserSession is one browser tab held for the duration of a run.
type BrowserSession interface {
	// Navigate loads url and waits for waitSelector (body when empty).
	// Navigation failures, including HTTP error statuses, are returned as
	// *entity.TransportError.
	Navigate(ctx context.Context, url, waitSelector string) error
	// Click clicks selector and waits for waitSelector. It returns false
	// when the selector is not present, meaning there is nothing more to load.
	Click(ctx context.Context, selector, waitSelector string) (bool, error)
	// HTML returns the current DOM serialized.
	HTML(ctx context.Context) (string, error)
	Close()
}
