package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/corpscan/internal/models"
)

// Free-text patterns. Matches are best-effort and always unconfirmed.
var (
	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)based in ([^,\n.]+)`),
		regexp.MustCompile(`(?i)headquartered in ([^,\n.]+)`),
		regexp.MustCompile(`(?i)located in ([^,\n.]+)`),
	}
	foundedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)founded in (\d{4})`),
		regexp.MustCompile(`\b((?:19|20)\d{2})\b`),
	}
	sectorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(fintech|edtech|healthtech|agritech|legaltech|proptech|insurtech)\b`),
		regexp.MustCompile(`(?i)\b(ecommerce|e-commerce|marketplace)\b`),
		regexp.MustCompile(`(?i)\b(saas|b2b|b2c|d2c)\b`),
		regexp.MustCompile(`(?i)\b(logistics|transport|mobility)\b`),
		regexp.MustCompile(`(?i)\b(food|foodtech|delivery)\b`),
	}
	fundingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)raised ([$₹\d.,\s]+(?:million|mn|crore|cr|billion|bn))`),
		regexp.MustCompile(`(?i)funding of ([$₹\d.,\s]+(?:million|mn|crore|cr|billion|bn))`),
		regexp.MustCompile(`(?i)series [a-z] (?:funding )?of ([$₹\d.,\s]+(?:million|mn|crore|cr|billion|bn))`),
	}
	companyTypePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(private limited|public limited|unicorn|startup)\b`),
		regexp.MustCompile(`(?i)\b(bootstrapped|funded|public)\b`),
	}
)

// firstMatch returns the first capture group of the first matching pattern
func firstMatch(text string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func extractHeuristics(doc *goquery.Document) models.HeuristicFields {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := cleanText(body.Text())

	h := models.HeuristicFields{
		Location:    firstMatch(text, locationPatterns),
		FoundedYear: firstMatch(text, foundedPatterns),
		Funding:     firstMatch(text, fundingPatterns),
		CompanyType: strings.ToLower(firstMatch(text, companyTypePatterns)),
	}
	if sector := firstMatch(text, sectorPatterns); sector != "" {
		h.Sector = titleCase(strings.ToLower(sector))
	}
	return h
}

// titleCase upper-cases the first letter of each word
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
