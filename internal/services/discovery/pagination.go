package discovery

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PagePlaceholder is replaced with the 1-based page number in listing templates
const PagePlaceholder = "{page}"

var pageCountPattern = regexp.MustCompile(`(?i)page\s+[\d,]+\s+of\s+([\d,]+)`)

// PageURL expands a listing template for page n. A template without the
// placeholder only has a first page.
func PageURL(template string, n int) string {
	return strings.ReplaceAll(template, PagePlaceholder, strconv.Itoa(n))
}

// SearchURL expands a search template. {term} is URL-escaped as given and
// {TERM} upper-cased first.
func SearchURL(template, term string) string {
	term = strings.TrimSpace(term)
	expanded := strings.ReplaceAll(template, "{term}", url.PathEscape(term))
	return strings.ReplaceAll(expanded, "{TERM}", url.PathEscape(strings.ToUpper(term)))
}

// SectionURL returns page n of a content section. Page 1 is the section itself.
func SectionURL(section string, n int) string {
	if n <= 1 {
		return section
	}
	if !strings.HasSuffix(section, "/") {
		section += "/"
	}
	return section + "page/" + strconv.Itoa(n) + "/"
}

// TotalPages reads the page count from a listing page. "Page X of Y" text wins;
// otherwise the largest numeric pagination link is used. Defaults to 1.
func TotalPages(markup string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return 1
	}

	total := 0
	doc.Find("div.text-right").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if n := parsePageCount(s.Text()); n > 0 {
			total = n
			return false
		}
		return true
	})
	if total > 0 {
		return total
	}

	doc.Find(".pagination a").Each(func(i int, s *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimSpace(s.Text()))
		if err == nil && n > total {
			total = n
		}
	})
	if total > 0 {
		return total
	}
	return 1
}

func parsePageCount(text string) int {
	match := pageCountPattern.FindStringSubmatch(text)
	if match == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(match[1], ",", ""))
	if err != nil {
		return 0
	}
	return n
}
