package entity

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Selectors are the goquery access paths used to pull items out of a listing.
type Selectors struct {
	Item   string `mapstructure:"item" json:"item"`
	Title  string `mapstructure:"title" json:"title"`
	Link   string `mapstructure:"link" json:"link"`
	Date   string `mapstructure:"date" json:"date"`
	Body   string `mapstructure:"body" json:"body"`
	IDAttr string `mapstructure:"id_attr" json:"id_attr,omitempty"`
	// DateAttr reads the date from an attribute (e.g. datetime) instead of text.
	DateAttr string `mapstructure:"date_attr" json:"date_attr,omitempty"`
}

// Source is an allow-listed news portal together with its extraction rules.
type Source struct {
	ID               string     `mapstructure:"id" json:"id"`
	Name             string     `mapstructure:"name" json:"name"`
	Hosts            []string   `mapstructure:"hosts" json:"hosts"`
	DefaultEngine    EngineKind `mapstructure:"engine" json:"engine"`
	PageParam        string     `mapstructure:"page_param" json:"page_param,omitempty"`
	PagePath         string     `mapstructure:"page_path" json:"page_path,omitempty"`
	LoadMoreSelector string     `mapstructure:"load_more_selector" json:"load_more_selector,omitempty"`
	WaitSelector     string     `mapstructure:"wait_selector" json:"wait_selector,omitempty"`
	Selectors        Selectors  `mapstructure:"selectors" json:"selectors"`
}

// PageURL builds the URL of the given 1-based page of a listing. Page 1 is
// always the listing URL itself. PagePath is a fmt-style suffix such as
// "/page/%d"; otherwise PageParam is set as a query parameter (default "page").
func (s *Source) PageURL(listing string, page int) (string, error) {
	if page <= 1 {
		return listing, nil
	}
	u, err := url.Parse(listing)
	if err != nil {
		return "", fmt.Errorf("parse listing url: %w", err)
	}
	if s.PagePath != "" {
		u.Path = strings.TrimSuffix(u.Path, "/") + fmt.Sprintf(s.PagePath, page)
		return u.String(), nil
	}
	param := s.PageParam
	if param == "" {
		param = "page"
	}
	q := u.Query()
	q.Set(param, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// EngineSpec resolves an EngineKind into the variant configured for this source.
func (s *Source) EngineSpec(kind EngineKind) EngineSpec {
	if kind == "" {
		kind = s.DefaultEngine
	}
	if kind == EngineHeadless {
		return HeadlessEngine{LoadMoreSelector: s.LoadMoreSelector, WaitSelector: s.WaitSelector}
	}
	return LightweightEngine{}
}

// SourceConfig is everything one run needs to acquire content.
type SourceConfig struct {
	Source     Source
	ListingURL string
	MaxPages   int
	Delay      time.Duration
	Engine     EngineSpec
}
