package discovery

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/ternarybob/corpscan/internal/models"
	"github.com/ternarybob/corpscan/internal/services/extractor"
)

// fakeFetcher serves canned pages and records every request
type fakeFetcher struct {
	pages    map[string]string
	requests []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, locator string) models.FetchResult {
	f.requests = append(f.requests, locator)
	body, ok := f.pages[locator]
	if !ok {
		return models.FetchResult{URL: locator, Status: models.FetchHTTPError, StatusCode: 404, Attempts: 1, Err: fmt.Errorf("HTTP 404")}
	}
	return models.FetchResult{URL: locator, Status: models.FetchOK, StatusCode: 200, Body: body, Attempts: 1}
}

func listingPage(footer string, ids ...string) string {
	var rows strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&rows, `<tr><td><a href="/company/%[1]s/">%[1]s</a></td><td>Company %[1]s</td><td>1 Main Road Mumbai MH 400001</td></tr>`, id)
	}
	return fmt.Sprintf(`<html><body><table id="results"><tbody>%s</tbody></table>%s</body></html>`, rows.String(), footer)
}

func newTestEngine(fetcher *fakeFetcher, config common.DiscoveryConfig) *Engine {
	logger := arbor.NewLogger()
	ext := extractor.NewExtractor(extractor.Options{}, logger)
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 100
	}
	if config.MaxLocators == 0 {
		config.MaxLocators = 200
	}
	if config.DetailMarker == "" {
		config.DetailMarker = "/company/"
	}
	return NewEngine(fetcher, ext, config, extractor.ShapeAuto, logger)
}

func TestDiscover_PaginatedListing(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://registry.example/list?page=1": listingPage(`<div class="text-right">Page 1 of 3</div>`, "U1", "U2"),
		"https://registry.example/list?page=2": listingPage("", "U3"),
		"https://registry.example/list?page=3": `<html><body><p>nothing here</p></body></html>`,
		"https://registry.example/list?page=4": listingPage("", "U9"),
	}}
	engine := newTestEngine(fetcher, common.DiscoveryConfig{MaxPages: 10})

	result, err := engine.Discover(context.Background(), common.SeedConfig{
		ListingURLs: []string{"https://registry.example/list?page={page}"},
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://registry.example/company/U1/",
		"https://registry.example/company/U2/",
		"https://registry.example/company/U3/",
	}, result.Locators)
	assert.Len(t, result.Listings, 3)
	assert.Equal(t, 3, result.FromListings)
	assert.Equal(t, 3, result.Attempts)
	assert.NotContains(t, fetcher.requests, "https://registry.example/list?page=4")
}

func TestDiscover_PageCapAndLocatorCap(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://registry.example/list/1": listingPage(`<div class="text-right">Page 1 of 1,204</div>`, "A1", "A2", "A3"),
		"https://registry.example/list/2": listingPage("", "B1", "B2", "B3"),
	}}
	engine := newTestEngine(fetcher, common.DiscoveryConfig{MaxPages: 2, MaxLocators: 4})

	result, err := engine.Discover(context.Background(), common.SeedConfig{
		ListingURLs: []string{"https://registry.example/list/{page}"},
	}, 0)
	require.NoError(t, err)

	assert.Len(t, result.Locators, 4)
	assert.Equal(t, 2, result.Attempts)
}

func TestDiscover_MaxResultsBelowConfigCap(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://registry.example/list": listingPage("", "A1", "A2", "A3"),
	}}
	engine := newTestEngine(fetcher, common.DiscoveryConfig{})

	result, err := engine.Discover(context.Background(), common.SeedConfig{
		ListingURLs: []string{"https://registry.example/list"},
	}, 2)
	require.NoError(t, err)
	assert.Len(t, result.Locators, 2)
}

func TestDiscover_SearchTermsAndKnownLocators(t *testing.T) {
	search := `<html><body>
<table id="results"><tbody>
<tr><td><a href="/company/FIN-ONE/U65999KA2019PTC000001">U65999KA2019PTC000001</a></td><td>Fin One Private Limited</td><td>Bengaluru KA 560001</td></tr>
</tbody></table>
<a href="/company/FIN-TWO/U65999KA2020PTC000002">Fin Two</a>
<a href="/about/">About</a>
<a href="mailto:hello@registry.example">Mail</a>
</body></html>`

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://registry.example/companysearchresults/FINTECH": search,
	}}
	engine := newTestEngine(fetcher, common.DiscoveryConfig{
		BaseURL:        "https://registry.example",
		SearchTemplate: "https://registry.example/companysearchresults/{TERM}",
	})

	result, err := engine.Discover(context.Background(), common.SeedConfig{
		SearchTerms:   []string{"fintech", "  "},
		KnownLocators: []string{"/company/ola/", "https://registry.example/company/ola/"},
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://registry.example/company/ola/",
		"https://registry.example/company/FIN-ONE/U65999KA2019PTC000001",
		"https://registry.example/company/FIN-TWO/U65999KA2020PTC000002",
	}, result.Locators)
	assert.Equal(t, 1, result.FromKnown)
	assert.Equal(t, 2, result.FromSearch)
	assert.Equal(t, 1, result.Attempts)
}

func TestDiscover_RecordsProvenance(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://registry.example/search/fintech": `<a href="/company/pay-one/">Pay One</a>`,
		"https://registry.example/list":           listingPage("", "U7"),
	}}
	engine := newTestEngine(fetcher, common.DiscoveryConfig{
		BaseURL:        "https://registry.example",
		SearchTemplate: "https://registry.example/search/{term}",
	})
	discoveredAt := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	engine.now = func() time.Time { return discoveredAt }

	result, err := engine.Discover(context.Background(), common.SeedConfig{
		SearchTerms: []string{"fintech"},
		ListingURLs: []string{"/list"},
	}, 0)
	require.NoError(t, err)

	search := result.Sources["https://registry.example/company/pay-one/"]
	assert.Equal(t, "fintech", search.SearchTerm)
	assert.Equal(t, "search", search.Strategy)
	assert.Equal(t, "https://registry.example/search/fintech", search.Locator)
	assert.Equal(t, discoveredAt, search.DiscoveredAt)

	listed := result.Sources["https://registry.example/company/U7/"]
	assert.Equal(t, "listing", listed.Strategy)
	assert.Equal(t, discoveredAt, listed.DiscoveredAt)

	require.Len(t, result.Listings, 1)
	record := result.Listings[0]
	assert.Equal(t, discoveredAt, record.Source.DiscoveredAt)
	assert.Equal(t, "https://registry.example/list", record.Source.Locator)
	assert.NotEmpty(t, record.Source.Strategy)
}

func TestDiscover_KnownLocatorsSurviveCap(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{}}
	engine := newTestEngine(fetcher, common.DiscoveryConfig{MaxLocators: 1})

	result, err := engine.Discover(context.Background(), common.SeedConfig{
		KnownLocators: []string{"https://d.example/company/a/", "https://d.example/company/b/"},
		Sections:      []string{"https://d.example/buzz/"},
	}, 0)
	require.NoError(t, err)
	assert.Len(t, result.Locators, 2)
	assert.Empty(t, fetcher.requests, "caps reached before any fetch")
}

func TestDiscover_SectionsStopOnFailure(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://news.example/buzz/":        `<a href="/company/zomato/">Zomato</a><a href="/company/swiggy/">Swiggy</a>`,
		"https://news.example/buzz/page/2/": `<a href="/company/zomato/">Zomato</a><a href="/company/oyo/#team">OYO</a>`,
	}}
	engine := newTestEngine(fetcher, common.DiscoveryConfig{BaseURL: "https://news.example", SectionPages: 5})

	result, err := engine.Discover(context.Background(), common.SeedConfig{Sections: []string{"/buzz/"}}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://news.example/company/zomato/",
		"https://news.example/company/swiggy/",
		"https://news.example/company/oyo/",
	}, result.Locators)
	assert.Equal(t, 3, result.FromSections)
	assert.Equal(t, 3, result.Attempts, "page 3 fails and ends the section")
	assert.Equal(t, 1, result.Failures)
}

func TestDiscover_AttemptCap(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{}}
	engine := newTestEngine(fetcher, common.DiscoveryConfig{
		SearchTemplate: "https://r.example/search/{term}",
		MaxAttempts:    2,
	})

	result, err := engine.Discover(context.Background(), common.SeedConfig{
		SearchTerms: []string{"a", "b", "c", "d"},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	assert.Len(t, fetcher.requests, 2)
}

func TestDiscover_NoSeeds(t *testing.T) {
	engine := newTestEngine(&fakeFetcher{}, common.DiscoveryConfig{})
	_, err := engine.Discover(context.Background(), common.SeedConfig{}, 0)
	assert.ErrorIs(t, err, common.ErrNoSeeds)
}

func TestDiscover_Cancelled(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{}}
	engine := newTestEngine(fetcher, common.DiscoveryConfig{SearchTemplate: "https://r.example/search/{term}"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Discover(ctx, common.SeedConfig{SearchTerms: []string{"a"}}, 0)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   int
	}{
		{name: "page x of y", markup: `<div class="text-right">Page 1 of 25</div>`, want: 25},
		{name: "thousands separator", markup: `<div class="text-right">Showing Page 3 of 1,204</div>`, want: 1204},
		{name: "pagination links", markup: `<ul class="pagination"><li><a>1</a></li><li><a>2</a></li><li><a>7</a></li><li><a>Next</a></li></ul>`, want: 7},
		{name: "nothing", markup: `<p>hello</p>`, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TotalPages(tt.markup))
		})
	}
}

func TestTemplates(t *testing.T) {
	assert.Equal(t, "https://r.example/list/4", PageURL("https://r.example/list/{page}", 4))
	assert.Equal(t, "https://r.example/s/series%20a", SearchURL("https://r.example/s/{term}", "series a"))
	assert.Equal(t, "https://r.example/s/SAAS", SearchURL("https://r.example/s/{TERM}", "saas"))
	assert.Equal(t, "https://n.example/buzz/", SectionURL("https://n.example/buzz/", 1))
	assert.Equal(t, "https://n.example/buzz/page/3/", SectionURL("https://n.example/buzz", 3))
}
