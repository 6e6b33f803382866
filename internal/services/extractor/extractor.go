// -----------------------------------------------------------------------
// Record Extractor - converts listing and detail markup into CompanyRecords
// -----------------------------------------------------------------------

package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/models"
)

// ErrNoName is returned by ExtractDetail when no strategy found a company name
var ErrNoName = models.ErrMissingName

// ShapeHint tells ExtractListing which column layout to expect
type ShapeHint string

const (
	ShapeAuto           ShapeHint = "auto"
	ShapeRegistrySearch ShapeHint = "registry-search" // CIN, name, address
	ShapeRegistryList   ShapeHint = "registry-list"   // CIN, name, status, paid-up capital, address
	ShapeDirectoryTable ShapeHint = "directory-table" // header-driven startup directory
	ShapeCardGrid       ShapeHint = "card-grid"
)

// maxDescriptionLength caps free-text descriptions in runes
const maxDescriptionLength = 500

// ListingFilter narrows listing rows
type ListingFilter struct {
	// AddressContains keeps only cards whose address contains one of the keywords (case-insensitive)
	AddressContains []string
}

// Options configures an Extractor
type Options struct {
	MinFields int // minimum non-empty expected columns for a listing row
	Filter    ListingFilter
}

// Extractor parses pages into canonical company records
type Extractor struct {
	logger    arbor.ILogger
	minFields int
	filter    ListingFilter
	now       func() time.Time
}

// NewExtractor creates a new record extractor
func NewExtractor(opts Options, logger arbor.ILogger) *Extractor {
	minFields := opts.MinFields
	if minFields <= 0 {
		minFields = 2
	}
	return &Extractor{
		logger:    logger,
		minFields: minFields,
		filter:    opts.Filter,
		now:       time.Now,
	}
}

// createDocument creates a goquery.Document from an HTML string
func createDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// cleanText collapses runs of whitespace and trims
func cleanText(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func selectionText(s *goquery.Selection) string {
	return cleanText(s.Text())
}

// orUnknown substitutes the Unknown sentinel for empty values
func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.Unknown
	}
	return s
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

// resolve makes href absolute against base when base is set
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func parseBase(pageURL string) *url.URL {
	if pageURL == "" {
		return nil
	}
	u, err := url.Parse(pageURL)
	if err != nil || !u.IsAbs() {
		return nil
	}
	return u
}

// toMarkdownText converts a rich HTML block into plain markdown text
func toMarkdownText(s *goquery.Selection, baseURL string) string {
	html, err := s.Html()
	if err != nil || strings.TrimSpace(html) == "" {
		return selectionText(s)
	}
	converter := md.NewConverter(baseURL, true, nil)
	text, err := converter.ConvertString(html)
	if err != nil {
		return selectionText(s)
	}
	return cleanText(text)
}

// newListingRecord builds a record from the identity columns every listing shape shares
func newListingRecord(cin, name, address, locator string) models.CompanyRecord {
	record := models.NewCompanyRecord()
	if cin = strings.TrimSpace(cin); cin != "" {
		id := strings.ToUpper(cin)
		record.RegistrationID = &id
	}
	record.Name = strings.TrimSpace(name)
	record.DetailLocator = locator
	record.Address = orUnknown(address)
	record.EntityType = ClassifyEntityType(cin)
	applyAddress(&record)
	return record
}

// applyAddress fills the derived address fields of a record
func applyAddress(record *models.CompanyRecord) {
	if !models.IsKnown(record.Address) {
		return
	}
	parts := ParseAddress(record.Address)
	record.PinCode = orUnknown(parts.PinCode)
	record.StateCode = orUnknown(parts.StateCode)
	record.State = orUnknown(parts.State)
	record.City = orUnknown(parts.City)
}
