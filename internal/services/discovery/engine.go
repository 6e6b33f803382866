// -----------------------------------------------------------------------
// Discovery Engine - expands seeds into a bounded set of detail locators
// -----------------------------------------------------------------------

package discovery

import (
	"context"
	"errors"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/ternarybob/corpscan/internal/interfaces"
	"github.com/ternarybob/corpscan/internal/models"
	"github.com/ternarybob/corpscan/internal/services/extractor"
)

// errBudgetExhausted stops a sweep once the attempt or locator cap is reached
var errBudgetExhausted = errors.New("discovery budget exhausted")

// Result is the outcome of one discovery pass
type Result struct {
	Locators     []string                         `json:"locators"`
	Listings     []models.CompanyRecord           `json:"-"` // records taken straight from listing pages
	Sources      map[string]models.SourceMetadata `json:"-"` // how each locator was found
	FromKnown    int                              `json:"from_known"`
	FromSearch   int                              `json:"from_search"`
	FromSections int                              `json:"from_sections"`
	FromListings int                              `json:"from_listings"`
	Attempts     int                              `json:"attempts"`
	Failures     int                              `json:"failures"`
}

// Engine walks search terms, sections and paginated listings
type Engine struct {
	fetcher   interfaces.PageFetcher
	extractor *extractor.Extractor
	config    common.DiscoveryConfig
	hint      extractor.ShapeHint
	logger    arbor.ILogger
	now       func() time.Time
}

// NewEngine creates a discovery engine
func NewEngine(fetcher interfaces.PageFetcher, ext *extractor.Extractor, config common.DiscoveryConfig, hint extractor.ShapeHint, logger arbor.ILogger) *Engine {
	if hint == "" {
		hint = extractor.ShapeAuto
	}
	return &Engine{
		fetcher:   fetcher,
		extractor: ext,
		config:    config,
		hint:      hint,
		logger:    logger,
		now:       time.Now,
	}
}

// run holds the state of a single Discover call
type run struct {
	engine   *Engine
	result   *Result
	seen     map[string]bool
	limit    int
	listings map[string]bool
}

// Discover expands seeds into deduplicated detail locators, never exceeding
// maxResults (when positive) or the configured caps. Known locators are
// always included.
func (e *Engine) Discover(ctx context.Context, seeds common.SeedConfig, maxResults int) (*Result, error) {
	if seeds.IsEmpty() && e.config.ListingTemplate == "" {
		return nil, common.ErrNoSeeds
	}

	limit := e.config.MaxLocators
	if maxResults > 0 && (limit <= 0 || maxResults < limit) {
		limit = maxResults
	}

	r := &run{
		engine:   e,
		result: &Result{
			Locators: []string{},
			Listings: []models.CompanyRecord{},
			Sources:  make(map[string]models.SourceMetadata),
		},
		seen:     make(map[string]bool),
		limit:    limit,
		listings: make(map[string]bool),
	}

	for _, locator := range seeds.KnownLocators {
		if r.add(e.resolve(locator), r.source("known", "", "")) {
			r.result.FromKnown++
		}
	}

	sweeps := []func(context.Context, common.SeedConfig) error{
		r.sweepListings,
		r.sweepSearchTerms,
		r.sweepSections,
	}
	for _, sweep := range sweeps {
		err := sweep(ctx, seeds)
		if errors.Is(err, errBudgetExhausted) {
			break
		}
		if err != nil {
			return r.result, err
		}
	}

	e.logger.Info().
		Int("locators", len(r.result.Locators)).
		Int("listing_records", len(r.result.Listings)).
		Int("known", r.result.FromKnown).
		Int("search", r.result.FromSearch).
		Int("sections", r.result.FromSections).
		Int("listings", r.result.FromListings).
		Int("attempts", r.result.Attempts).
		Int("failures", r.result.Failures).
		Msg("Discovery complete")

	return r.result, nil
}

// resolve makes a relative seed absolute against the configured base URL
func (e *Engine) resolve(locator string) string {
	locator = strings.TrimSpace(locator)
	if locator == "" || e.config.BaseURL == "" {
		return locator
	}
	base, err := url.Parse(e.config.BaseURL)
	if err != nil {
		return locator
	}
	resolved, err := base.Parse(locator)
	if err != nil {
		return locator
	}
	return resolved.String()
}

// full reports whether no more locators may be added. Known locators are
// added before the cap applies.
func (r *run) full() bool {
	return r.limit > 0 && len(r.result.Locators) >= r.limit
}

func (r *run) add(locator string, source models.SourceMetadata) bool {
	if locator == "" || r.seen[locator] {
		return false
	}
	r.seen[locator] = true
	r.result.Locators = append(r.result.Locators, locator)
	r.result.Sources[locator] = source
	return true
}

// source stamps provenance for a locator or record found now on pageURL
func (r *run) source(strategy, term, pageURL string) models.SourceMetadata {
	return models.SourceMetadata{
		SearchTerm:   term,
		Strategy:     strategy,
		Locator:      pageURL,
		DiscoveredAt: r.engine.now(),
	}
}

// addDiscovered adds locators up to the cap and returns how many were new
func (r *run) addDiscovered(locators []string, source models.SourceMetadata) int {
	added := 0
	for _, locator := range locators {
		if r.full() {
			break
		}
		if r.add(locator, source) {
			added++
		}
	}
	return added
}

// fetch spends one unit of the attempt budget, pausing between requests
func (r *run) fetch(ctx context.Context, locator string) (models.FetchResult, error) {
	config := r.engine.config
	if r.full() || (config.MaxAttempts > 0 && r.result.Attempts >= config.MaxAttempts) {
		return models.FetchResult{}, errBudgetExhausted
	}

	if r.result.Attempts > 0 {
		if err := pause(ctx, config.Delay, config.Jitter); err != nil {
			return models.FetchResult{}, err
		}
	}
	r.result.Attempts++

	result := r.engine.fetcher.Fetch(ctx, locator)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if !result.IsOK() {
		r.result.Failures++
		r.engine.logger.Warn().
			Str("url", locator).
			Str("status", string(result.Status)).
			Err(result.Err).
			Msg("Discovery fetch failed")
	}
	return result, nil
}

// sweepListings walks every paginated listing up to the page cap
func (r *run) sweepListings(ctx context.Context, seeds common.SeedConfig) error {
	templates := append([]string{}, seeds.ListingURLs...)
	if r.engine.config.ListingTemplate != "" {
		templates = append(templates, r.engine.config.ListingTemplate)
	}

	for _, template := range templates {
		if err := r.walkListing(ctx, r.engine.resolve(template)); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) walkListing(ctx context.Context, template string) error {
	if r.listings[template] {
		return nil
	}
	r.listings[template] = true

	logger := r.engine.logger
	lastPage := 1
	for page := 1; page <= lastPage; page++ {
		pageURL := PageURL(template, page)
		result, err := r.fetch(ctx, pageURL)
		if err != nil {
			return err
		}
		if !result.IsOK() {
			continue
		}

		if page == 1 && strings.Contains(template, PagePlaceholder) {
			lastPage = TotalPages(result.Body)
			if maxPages := r.engine.config.MaxPages; maxPages > 0 && lastPage > maxPages {
				lastPage = maxPages
			}
			logger.Debug().Str("listing", template).Int("pages", lastPage).Msg("Listing pagination resolved")
		}

		records, err := r.engine.extractor.ExtractListingAt(result.Body, pageURL, r.engine.hint)
		if err != nil {
			r.result.Failures++
			logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to parse listing page")
			continue
		}
		if len(records) == 0 {
			logger.Warn().Str("url", pageURL).Int("page", page).Msg("Listing page yielded no records")
			continue
		}

		source := r.source("listing", "", pageURL)
		locators := make([]string, 0, len(records))
		for i := range records {
			records[i].Source = mergeSource(records[i].Source, source)
			locators = append(locators, records[i].DetailLocator)
		}
		r.result.Listings = append(r.result.Listings, records...)
		r.result.FromListings += r.addDiscovered(locators, source)
	}
	return nil
}

// sweepSearchTerms expands each term through the search template
func (r *run) sweepSearchTerms(ctx context.Context, seeds common.SeedConfig) error {
	template := r.engine.config.SearchTemplate
	if template == "" {
		return nil
	}

	for _, term := range seeds.SearchTerms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		searchURL := r.engine.resolve(SearchURL(template, term))
		result, err := r.fetch(ctx, searchURL)
		if err != nil {
			return err
		}
		if !result.IsOK() {
			continue
		}

		locators := r.pageLocators(result.Body, searchURL, true)
		added := r.addDiscovered(locators, r.source("search", term, searchURL))
		r.result.FromSearch += added
		r.engine.logger.Debug().Str("term", term).Int("found", len(locators)).Int("added", added).Msg("Search term swept")
	}
	return nil
}

// sweepSections walks the first SectionPages pages of each content section
func (r *run) sweepSections(ctx context.Context, seeds common.SeedConfig) error {
	pages := r.engine.config.SectionPages
	if pages < 1 {
		pages = 1
	}

	for _, section := range seeds.Sections {
		sectionURL := r.engine.resolve(section)
		for page := 1; page <= pages; page++ {
			pageURL := SectionURL(sectionURL, page)
			result, err := r.fetch(ctx, pageURL)
			if err != nil {
				return err
			}
			if !result.IsOK() {
				// later pages of a section rarely exist when an earlier one fails
				break
			}
			r.result.FromSections += r.addDiscovered(r.pageLocators(result.Body, pageURL, false), r.source("section", "", pageURL))
		}
	}
	return nil
}

// pageLocators collects detail locators from listing rows (optionally) and anchors
func (r *run) pageLocators(markup, pageURL string, withListing bool) []string {
	var locators []string
	if withListing {
		records, err := r.engine.extractor.ExtractListingAt(markup, pageURL, r.engine.hint)
		if err == nil {
			for _, record := range records {
				if record.DetailLocator != "" {
					locators = append(locators, record.DetailLocator)
				}
			}
		}
	}

	marker := r.engine.config.DetailMarker
	if marker == "" {
		return locators
	}
	links, err := HarvestLinks(markup, pageURL, marker)
	if err != nil {
		r.engine.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to harvest links")
		return locators
	}
	return append(locators, links...)
}

// mergeSource fills the discovery fields a record does not carry yet. The
// strategy an extractor assigned (the listing shape) is kept.
func mergeSource(dst, src models.SourceMetadata) models.SourceMetadata {
	if dst.SearchTerm == "" {
		dst.SearchTerm = src.SearchTerm
	}
	if dst.Strategy == "" {
		dst.Strategy = src.Strategy
	}
	if dst.Locator == "" {
		dst.Locator = src.Locator
	}
	if dst.DiscoveredAt.IsZero() {
		dst.DiscoveredAt = src.DiscoveredAt
	}
	return dst
}

// pause waits delay plus a random share of jitter, returning early on cancellation
func pause(ctx context.Context, delay, jitter time.Duration) error {
	wait := delay
	if jitter > 0 {
		wait += time.Duration(rand.Int63n(int64(jitter)))
	}
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
