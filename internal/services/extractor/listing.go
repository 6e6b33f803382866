package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/corpscan/internal/models"
)

// Container is the listing structure a matcher located
type Container struct {
	Strategy string
	Table    *goquery.Selection // set for table containers
	Cards    *goquery.Selection // set for card containers
}

// ContainerMatcher locates the listing structure in a document
type ContainerMatcher struct {
	Name  string
	Match func(doc *goquery.Document) (Container, bool)
}

// listingMatchers are tried in order; the first match wins
var listingMatchers = []ContainerMatcher{
	{Name: "explicit-table", Match: matchTable("table#results, table.results, table.company-list, table[data-companies]")},
	{Name: "first-table", Match: matchTable("table")},
	{Name: "card-grid", Match: matchCards(`div[class*="col-lg-4"], .company-card, [data-company]`)},
}

func matchTable(selector string) func(doc *goquery.Document) (Container, bool) {
	return func(doc *goquery.Document) (Container, bool) {
		table := doc.Find(selector).First()
		if table.Length() == 0 {
			return Container{}, false
		}
		return Container{Table: table}, true
	}
}

func matchCards(selector string) func(doc *goquery.Document) (Container, bool) {
	return func(doc *goquery.Document) (Container, bool) {
		cards := doc.Find(selector)
		if cards.Length() == 0 {
			return Container{}, false
		}
		return Container{Cards: cards}, true
	}
}

// headerVocabulary holds column names used to detect header rows
var headerVocabulary = map[string]bool{
	"cin": true, "llpin": true, "name": true, "company": true, "company name": true,
	"address": true, "status": true, "paid up capital": true, "paid-up capital": true,
	"sector": true, "industry": true, "founded": true, "founded date": true,
	"amount raised": true, "funding": true, "headquarters": true, "location": true,
	"founders": true, "state": true, "registered address": true, "#": true, "s.no": true,
}

// ExtractListing parses a listing page into records. A page with no recognizable
// listing structure yields an empty slice and no error.
func (e *Extractor) ExtractListing(markup string, hint ShapeHint) ([]models.CompanyRecord, error) {
	return e.ExtractListingAt(markup, "", hint)
}

// ExtractListingAt is ExtractListing with detail links resolved against pageURL
func (e *Extractor) ExtractListingAt(markup, pageURL string, hint ShapeHint) ([]models.CompanyRecord, error) {
	doc, err := createDocument(markup)
	if err != nil {
		return nil, models.NewFailure(models.FailureParse, pageURL, err)
	}

	container, ok := e.locateContainer(doc, hint)
	if !ok {
		e.logger.Debug().Str("url", pageURL).Msg("No listing structure found")
		return []models.CompanyRecord{}, nil
	}

	base := parseBase(pageURL)
	var records []models.CompanyRecord
	if container.Cards != nil {
		records = e.parseCards(container.Cards, base)
	} else {
		records = e.parseTable(container.Table, base, hint)
	}

	e.logger.Debug().
		Str("url", pageURL).
		Str("strategy", container.Strategy).
		Int("records", len(records)).
		Msg("Listing extracted")

	if records == nil {
		records = []models.CompanyRecord{}
	}
	return records, nil
}

func (e *Extractor) locateContainer(doc *goquery.Document, hint ShapeHint) (Container, bool) {
	for _, m := range listingMatchers {
		if hint == ShapeCardGrid && m.Name != "card-grid" {
			continue
		}
		if c, ok := m.Match(doc); ok {
			c.Strategy = m.Name
			return c, true
		}
	}
	return Container{}, false
}

// tableRows returns body rows, falling back to every row after the first
func tableRows(table *goquery.Selection) *goquery.Selection {
	rows := table.Find("tbody tr")
	if rows.Length() > 0 {
		return rows
	}
	return table.Find("tr").Slice(1, goquery.ToEnd)
}

func rowCells(row *goquery.Selection) []*goquery.Selection {
	var cells []*goquery.Selection
	row.Find("td, th").Each(func(_ int, c *goquery.Selection) {
		cells = append(cells, c)
	})
	return cells
}

// isHeaderRow reports th-only rows and rows whose cells are all column names
func isHeaderRow(row *goquery.Selection, cells []*goquery.Selection) bool {
	if row.Find("td").Length() == 0 && row.Find("th").Length() > 0 {
		return true
	}
	named := 0
	for _, c := range cells {
		text := strings.ToLower(selectionText(c))
		if text == "" {
			continue
		}
		if !headerVocabulary[text] {
			return false
		}
		named++
	}
	return named > 0
}

func isEmptyRow(cells []*goquery.Selection) bool {
	for _, c := range cells {
		if selectionText(c) != "" {
			return false
		}
	}
	return true
}

// hasNameSource reports whether a row can yield a named record: it carries a
// name, or a detail page that may supply one
func hasNameSource(name, locator string) bool {
	return strings.TrimSpace(name) != "" || locator != ""
}

func countNonEmpty(values ...string) int {
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// cellAt returns the cell text or "" when the row is short
func cellAt(cells []*goquery.Selection, i int) string {
	if i >= len(cells) {
		return ""
	}
	return selectionText(cells[i])
}

func cellLink(cells []*goquery.Selection, i int, base *url.URL) string {
	if i >= len(cells) {
		return ""
	}
	href, _ := cells[i].Find("a[href]").First().Attr("href")
	return resolve(base, href)
}

func (e *Extractor) parseTable(table *goquery.Selection, base *url.URL, hint ShapeHint) []models.CompanyRecord {
	if hint == ShapeAuto || hint == "" {
		hint = detectTableShape(table)
	}
	if hint == ShapeDirectoryTable {
		return e.parseDirectoryTable(table)
	}

	var records []models.CompanyRecord
	tableRows(table).Each(func(_ int, row *goquery.Selection) {
		cells := rowCells(row)
		if len(cells) == 0 || isEmptyRow(cells) || isHeaderRow(row, cells) {
			return
		}

		var record models.CompanyRecord
		switch hint {
		case ShapeRegistryList:
			cin, name, status, paid, address := cellAt(cells, 0), cellAt(cells, 1), cellAt(cells, 2), cellAt(cells, 3), cellAt(cells, 4)
			locator := e.rowLocator(cells, base)
			if countNonEmpty(cin, name, status, paid, address) < e.minFields || !hasNameSource(name, locator) {
				return
			}
			record = newListingRecord(cin, name, address, locator)
			record.Status = orUnknown(status)
			if paid != "" {
				record.BasicInfo["Paid up capital"] = paid
				record.PaidUpCapital = parseAmount(paid)
			}
		default:
			cin, name, address := cellAt(cells, 0), cellAt(cells, 1), cellAt(cells, 2)
			locator := e.rowLocator(cells, base)
			if countNonEmpty(cin, name, address) < e.minFields || !hasNameSource(name, locator) {
				return
			}
			record = newListingRecord(cin, name, address, locator)
		}
		record.Source.Strategy = string(hint)
		records = append(records, record)
	})
	return records
}

// rowLocator prefers the CIN link, then the name link
func (e *Extractor) rowLocator(cells []*goquery.Selection, base *url.URL) string {
	if link := cellLink(cells, 0, base); link != "" {
		return link
	}
	return cellLink(cells, 1, base)
}

// detectTableShape chooses a layout from the header row and column count
func detectTableShape(table *goquery.Selection) ShapeHint {
	headers := strings.ToLower(strings.Join(tableHeaders(table), " "))
	if strings.Contains(headers, "sector") || strings.Contains(headers, "amount raised") || strings.Contains(headers, "founder") {
		return ShapeDirectoryTable
	}
	maxCells := 0
	tableRows(table).Each(func(_ int, row *goquery.Selection) {
		if n := row.Find("td").Length(); n > maxCells {
			maxCells = n
		}
	})
	if maxCells >= 5 {
		return ShapeRegistryList
	}
	return ShapeRegistrySearch
}

// tableHeaders reads thead th cells, else the first row
func tableHeaders(table *goquery.Selection) []string {
	var headers []string
	head := table.Find("thead th")
	if head.Length() == 0 {
		head = table.Find("tr").First().Find("th, td")
	}
	head.Each(func(_ int, c *goquery.Selection) {
		headers = append(headers, selectionText(c))
	})
	return headers
}

// directory columns, matched by substring against lower-cased headers in order
var directoryColumns = []struct {
	key      string
	keywords []string
}{
	{"Company", []string{"company", "name", "startup"}},
	{"Sector", []string{"sector", "industry", "vertical"}},
	{"Founded_Date", []string{"founded", "year"}},
	{"Amount_Raised", []string{"amount", "raised", "funding"}},
	{"Headquarters", []string{"headquarter", "location", "city", "hq"}},
	{"Founders", []string{"founder"}},
}

// directoryMinFields is the non-empty column gate for directory rows
const directoryMinFields = 3

func (e *Extractor) parseDirectoryTable(table *goquery.Selection) []models.CompanyRecord {
	headers := tableHeaders(table)
	columns := make(map[string]int)
	for i, h := range headers {
		lower := strings.ToLower(h)
		for _, col := range directoryColumns {
			if _, taken := columns[col.key]; taken {
				continue
			}
			if containsAny(lower, col.keywords) {
				columns[col.key] = i
				break
			}
		}
	}
	if _, ok := columns["Company"]; !ok {
		return nil
	}

	var records []models.CompanyRecord
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := rowCells(row)
		if len(cells) == 0 || isEmptyRow(cells) || isHeaderRow(row, cells) {
			return
		}

		values := make(map[string]string)
		for key, idx := range columns {
			values[key] = cellAt(cells, idx)
		}
		if values["Company"] == "" || countNonEmpty(mapValues(values)...) < directoryMinFields {
			return
		}

		hq := values["Headquarters"]
		record := newListingRecord("", values["Company"], hq, "")
		if hq != "" && record.City == models.Unknown {
			record.City = hq
		}
		for key, value := range values {
			if key != "Company" && value != "" {
				record.BasicInfo[key] = value
			}
		}
		if amount := values["Amount_Raised"]; amount != "" {
			record.FinancialInfo["Amount Raised"] = amount
		}
		record.Source.Strategy = string(ShapeDirectoryTable)
		records = append(records, record)
	})
	return records
}

func (e *Extractor) parseCards(cards *goquery.Selection, base *url.URL) []models.CompanyRecord {
	var records []models.CompanyRecord
	cards.Each(func(_ int, card *goquery.Selection) {
		name := selectionText(card.Find("h5, h4, h3, .card-title, .company-name").First())
		var cin, address string
		card.Find("p").Each(func(_ int, p *goquery.Selection) {
			text := selectionText(p)
			switch {
			case strings.HasPrefix(text, "CIN:"):
				cin = strings.TrimSpace(strings.TrimPrefix(text, "CIN:"))
			case strings.HasPrefix(text, "Address:"):
				address = strings.TrimSpace(strings.TrimPrefix(text, "Address:"))
			}
		})
		if name == "" {
			name = selectionText(card.Find("a").First())
		}
		href, _ := card.Find("a[href]").First().Attr("href")
		locator := resolve(base, href)
		if countNonEmpty(cin, name, address) < e.minFields || !hasNameSource(name, locator) {
			return
		}
		if !e.filter.matchesAddress(address) {
			return
		}

		record := newListingRecord(cin, name, address, locator)
		record.Source.Strategy = string(ShapeCardGrid)
		records = append(records, record)
	})
	return records
}

func (f ListingFilter) matchesAddress(address string) bool {
	if len(f.AddressContains) == 0 {
		return true
	}
	return containsAny(strings.ToLower(address), lowerAll(f.AddressContains))
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func mapValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
