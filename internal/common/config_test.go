package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.toml", `
[fetcher]
max_attempts = 4
backoff_unit = "3s"

[discovery]
search_template = "https://registry.example/companysearchresults/{TERM}"
max_locators = 50

[seeds]
search_terms = ["fintech"]
`)
	override := writeFile(t, dir, "override.toml", `
[discovery]
max_locators = 25
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 4, config.Fetcher.MaxAttempts)
	assert.Equal(t, 3*time.Second, config.Fetcher.BackoffUnit)
	assert.Equal(t, 25, config.Discovery.MaxLocators)
	assert.Equal(t, []string{"fintech"}, config.Seeds.SearchTerms)
	// untouched defaults survive
	assert.Equal(t, 10, config.Pipeline.CheckpointEvery)
	assert.NoError(t, config.Validate())
}

func TestLoadFromFiles_ParseError(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.toml", "[fetcher\nmax_attempts = ")

	_, err := LoadFromFiles(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file 1 of 1")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CORPSCAN_LOG_LEVEL", "debug")
	t.Setenv("CORPSCAN_MAX_ATTEMPTS", "7")
	t.Setenv("CORPSCAN_SEARCH_TERMS", "saas, edtech ,")
	t.Setenv("CORPSCAN_RENDER", "true")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 7, config.Fetcher.MaxAttempts)
	assert.Equal(t, []string{"saas", "edtech"}, config.Seeds.SearchTerms)
	assert.True(t, config.Browser.Enabled)
	assert.Equal(t, "sk-test", config.Claude.APIKey)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, FlagOverrides{OutputDir: "/tmp/out", MaxRecords: 12, Resume: "run_1", Insights: true})

	assert.Equal(t, "/tmp/out", config.Sink.OutputDir)
	assert.Equal(t, 12, config.Pipeline.MaxRecords)
	assert.Equal(t, "run_1", config.Pipeline.ResumeRunID)
	assert.True(t, config.Pipeline.Insights)
	assert.False(t, config.Browser.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
		wantAny bool
	}{
		{
			name:    "no seeds is fatal",
			mutate:  func(c *Config) {},
			wantErr: ErrNoSeeds,
		},
		{
			name:   "known locators alone are enough",
			mutate: func(c *Config) { c.Seeds.KnownLocators = []string{"https://inc42.example/company/ola/"} },
		},
		{
			name: "terms need a search template",
			mutate: func(c *Config) {
				c.Seeds.SearchTerms = []string{"fintech"}
			},
			wantAny: true,
		},
		{
			name: "bad schedule",
			mutate: func(c *Config) {
				c.Seeds.KnownLocators = []string{"https://x.example/company/a"}
				c.Schedule = "every day"
			},
			wantAny: true,
		},
		{
			name: "valid schedule",
			mutate: func(c *Config) {
				c.Seeds.KnownLocators = []string{"https://x.example/company/a"}
				c.Schedule = "0 */6 * * *"
			},
		},
		{
			name: "struct constraint",
			mutate: func(c *Config) {
				c.Seeds.KnownLocators = []string{"https://x.example/company/a"}
				c.Fetcher.MaxAttempts = 0
			},
			wantAny: true,
		},
		{
			name: "unknown sink format",
			mutate: func(c *Config) {
				c.Seeds.KnownLocators = []string{"https://x.example/company/a"}
				c.Sink.Formats = []string{"xlsx"}
			},
			wantAny: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			switch {
			case tt.wantErr != nil:
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			case tt.wantAny:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadSeeds(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "seeds.yaml", `
search_terms: [fintech, saas]
sections: ["/buzz/", "/funding/"]
known_locators:
  - https://inc42.example/company/ola/
  - https://inc42.example/company/zomato/
`)

	config := NewDefaultConfig()
	config.Seeds.SearchTerms = []string{"saas"}
	config.Seeds.File = path
	require.NoError(t, config.LoadSeeds())

	assert.Equal(t, []string{"saas", "fintech"}, config.Seeds.SearchTerms)
	assert.Equal(t, []string{"/buzz/", "/funding/"}, config.Seeds.Sections)
	assert.Len(t, config.Seeds.KnownLocators, 2)
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.NotEqual(t, a, b)
	assert.True(t, len(a) > len("run_"))
}
