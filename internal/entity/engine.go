package entity

import (
	"fmt"
	"strings"
)

// EngineKind names an acquisition strategy at the API and storage boundary.
type EngineKind string

const (
	EngineLightweight EngineKind = "lightweight"
	EngineHeadless    EngineKind = "headless"
)

// ParseEngineKind converts user input into an EngineKind. An empty string
// yields an empty kind, meaning "use the source default".
func ParseEngineKind(s string) (EngineKind, error) {
	switch EngineKind(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case EngineLightweight:
		return EngineLightweight, nil
	case EngineHeadless:
		return EngineHeadless, nil
	}
	return "", &ConfigurationError{Field: "engine", Reason: fmt.Sprintf("unknown engine %q", s)}
}

// EngineSpec is the closed set of acquisition strategies. Each variant carries
// only the configuration that strategy needs.
type EngineSpec interface {
	Kind() EngineKind
	isEngineSpec()
}

// LightweightEngine fetches pages over plain HTTP and parses the markup.
type LightweightEngine struct{}

func (LightweightEngine) Kind() EngineKind { return EngineLightweight }
func (LightweightEngine) isEngineSpec()    {}

// HeadlessEngine drives a browser session for the whole run.
type HeadlessEngine struct {
	// LoadMoreSelector, when set, is clicked to reveal the next page instead
	// of navigating to a page URL.
	LoadMoreSelector string
	// WaitSelector is awaited after every navigation or click.
	WaitSelector string
}

func (HeadlessEngine) Kind() EngineKind { return EngineHeadless }
func (HeadlessEngine) isEngineSpec()    {}
