// -----------------------------------------------------------------------
// Link harvest - detail-page locators from arbitrary content pages
// -----------------------------------------------------------------------

package discovery

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "sms:", "ftp:", "data:"}

// HarvestLinks returns the deduplicated anchors whose resolved URL contains marker,
// in document order
func HarvestLinks(markup, pageURL, marker string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for link extraction: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if shouldSkipLink(href) {
			return
		}
		resolved := resolveURL(href, base)
		if resolved == "" || !strings.Contains(resolved, marker) {
			return
		}
		if !seen[resolved] {
			seen[resolved] = true
			links = append(links, resolved)
		}
	})
	return links, nil
}

func shouldSkipLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(href, scheme) {
			return true
		}
	}
	return false
}

// resolveURL resolves href against base, dropping any fragment
func resolveURL(href string, base *url.URL) string {
	var resolved *url.URL
	var err error
	if base == nil {
		resolved, err = url.Parse(strings.TrimSpace(href))
		if err != nil || !resolved.IsAbs() {
			return ""
		}
	} else {
		resolved, err = base.Parse(strings.TrimSpace(href))
		if err != nil {
			return ""
		}
	}
	resolved.Fragment = ""
	return resolved.String()
}
