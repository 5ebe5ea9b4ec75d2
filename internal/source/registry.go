// Package source holds the allow-list of news portals and their extraction
// rules. Sources are configuration data, loaded from YAML at startup.
package source

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/pkg/utils"
)

// Registry resolves listing URLs to allow-listed sources. It is read-only
// after construction and safe for concurrent use.
type Registry struct {
	byID   map[string]*entity.Source
	byHost map[string]*entity.Source
}

// LoadFile reads a YAML file with a top-level `sources` list.
func LoadFile(path string) (*Registry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read sources file %s: %w", path, err)
	}
	var sources []entity.Source
	if err := v.UnmarshalKey("sources", &sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	return NewRegistry(sources)
}

// NewRegistry validates sources and indexes them by id and host.
func NewRegistry(sources []entity.Source) (*Registry, error) {
	r := &Registry{
		byID:   make(map[string]*entity.Source, len(sources)),
		byHost: make(map[string]*entity.Source),
	}
	for i := range sources {
		s := sources[i]
		if err := validate(&s); err != nil {
			return nil, err
		}
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("source %q defined twice", s.ID)
		}
		r.byID[s.ID] = &s
		for _, h := range s.Hosts {
			host := strings.TrimPrefix(strings.ToLower(h), "www.")
			if other, dup := r.byHost[host]; dup {
				return nil, fmt.Errorf("host %q claimed by %q and %q", host, other.ID, s.ID)
			}
			r.byHost[host] = &s
		}
	}
	return r, nil
}

func validate(s *entity.Source) error {
	switch {
	case s.ID == "":
		return fmt.Errorf("source without id")
	case len(s.Hosts) == 0:
		return fmt.Errorf("source %q: no hosts", s.ID)
	case s.Selectors.Item == "" || s.Selectors.Link == "":
		return fmt.Errorf("source %q: item and link selectors are required", s.ID)
	}
	if s.DefaultEngine == "" {
		s.DefaultEngine = entity.EngineLightweight
	}
	if _, err := entity.ParseEngineKind(string(s.DefaultEngine)); err != nil {
		return fmt.Errorf("source %q: %w", s.ID, err)
	}
	if s.PagePath != "" && !strings.Contains(s.PagePath, "%d") {
		return fmt.Errorf("source %q: page_path must contain %%d", s.ID)
	}
	return nil
}

// Lookup returns the source that owns listingURL, or a ConfigurationError
// when the URL is malformed or its host is not allow-listed.
func (r *Registry) Lookup(listingURL string) (*entity.Source, error) {
	u, err := url.Parse(strings.TrimSpace(listingURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &entity.ConfigurationError{Field: "source_url", Reason: fmt.Sprintf("%q is not an absolute http(s) URL", listingURL)}
	}
	host, _ := utils.HostOf(listingURL)
	if s, ok := r.byHost[host]; ok {
		return s, nil
	}
	return nil, &entity.ConfigurationError{Field: "source_url", Reason: fmt.Sprintf("host %q is not an allow-listed source", host)}
}

// Get returns a source by id.
func (r *Registry) Get(id string) (*entity.Source, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// All returns every source sorted by id.
func (r *Registry) All() []entity.Source {
	out := make([]entity.Source, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
