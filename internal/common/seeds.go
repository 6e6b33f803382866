package common

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedConfig is the caller-supplied discovery input
type SeedConfig struct {
	File          string   `toml:"file" yaml:"-"`                        // Optional YAML seed file merged at startup
	SearchTerms   []string `toml:"search_terms" yaml:"search_terms"`     // Expanded through discovery.search_template
	Sections      []string `toml:"sections" yaml:"sections"`             // Content sections swept page by page
	ListingURLs   []string `toml:"listing_urls" yaml:"listing_urls"`     // Paginated listings; {page} placeholder allowed
	KnownLocators []string `toml:"known_locators" yaml:"known_locators"` // Allow-list always included in discovery
}

// IsEmpty reports whether no discovery input is configured
func (s SeedConfig) IsEmpty() bool {
	return len(s.SearchTerms) == 0 && len(s.Sections) == 0 && len(s.ListingURLs) == 0 && len(s.KnownLocators) == 0
}

// LoadSeedFile reads a YAML seed file
func LoadSeedFile(path string) (*SeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var seeds SeedConfig
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return &seeds, nil
}

// Merge appends other's seeds, skipping duplicates
func (s *SeedConfig) Merge(other *SeedConfig) {
	if other == nil {
		return
	}
	s.SearchTerms = appendUnique(s.SearchTerms, other.SearchTerms...)
	s.Sections = appendUnique(s.Sections, other.Sections...)
	s.ListingURLs = appendUnique(s.ListingURLs, other.ListingURLs...)
	s.KnownLocators = appendUnique(s.KnownLocators, other.KnownLocators...)
}

// LoadSeeds merges the configured seed file, if any, into the config
func (c *Config) LoadSeeds() error {
	if c.Seeds.File == "" {
		return nil
	}
	seeds, err := LoadSeedFile(c.Seeds.File)
	if err != nil {
		return err
	}
	c.Seeds.Merge(seeds)
	return nil
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		dst = append(dst, v)
	}
	return dst
}
