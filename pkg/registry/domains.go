package registry

import (
	"log/slog"
	"slices"
	"strings"
)

// Domain tags a group of tools that can be enabled together.
type Domain string

// Known domains.
const (
	DomainCore         Domain = "core"
	DomainRepositories Domain = "repositories"
	DomainWorkItems    Domain = "work-items"
	DomainSearch       Domain = "search"
)

// allDomains is the alias that expands to every known domain.
const allDomains = "all"

// KnownDomains lists every domain in display order.
func KnownDomains() []Domain {
	return []Domain{DomainCore, DomainRepositories, DomainWorkItems, DomainSearch}
}

// DomainSet is the set of enabled domains. It is resolved once at startup
// and never empty.
type DomainSet struct {
	enabled map[Domain]struct{}
}

// AllDomains returns a set with every known domain enabled.
func AllDomains() DomainSet {
	s := DomainSet{enabled: make(map[Domain]struct{}, len(KnownDomains()))}
	for _, d := range KnownDomains() {
		s.enabled[d] = struct{}{}
	}
	return s
}

// ParseDomains resolves the configured domain list. Entries may themselves
// be comma separated and are matched case-insensitively. "all", or a list
// with no recognized domain, enables everything; unknown entries are logged
// and skipped.
func ParseDomains(values []string) DomainSet {
	s := DomainSet{enabled: make(map[Domain]struct{})}
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			name := strings.ToLower(strings.TrimSpace(part))
			if name == "" {
				continue
			}
			if name == allDomains {
				return AllDomains()
			}
			d := Domain(name)
			if !slices.Contains(KnownDomains(), d) {
				slog.Warn("ignoring unknown domain", "domain", part, "known", KnownDomains())
				continue
			}
			s.enabled[d] = struct{}{}
		}
	}
	if len(s.enabled) == 0 {
		return AllDomains()
	}
	return s
}

// Contains reports whether d is enabled.
func (s DomainSet) Contains(d Domain) bool {
	_, ok := s.enabled[d]
	return ok
}

// List returns the enabled domains in display order.
func (s DomainSet) List() []Domain {
	out := make([]Domain, 0, len(s.enabled))
	for _, d := range KnownDomains() {
		if s.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of enabled domains.
func (s DomainSet) Len() int {
	return len(s.enabled)
}

func (s DomainSet) String() string {
	names := make([]string, 0, s.Len())
	for _, d := range s.List() {
		names = append(names, string(d))
	}
	return strings.Join(names, ",")
}
