package extractor

import (
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/corpscan/internal/models"
	"github.com/ternarybob/corpscan/internal/services/currency"
)

// Detail page section limits
const (
	maxSimilarEntities = 10
	minDirectorCells   = 4
	minChargeCells     = 7
	minSimilarCells    = 3
	minDescriptionText = 50
)

// nameSelectors is the ordered fallback chain for the company name
var nameSelectors = []string{
	"h1#title",
	"h1",
	".company-name",
	`[data-testid="company-name"]`,
	"title",
}

// descriptionSelectors is the ordered fallback chain for the about block
var descriptionSelectors = []string{
	"p#about",
	".company-description",
	".about-company",
}

// ExtractDetail parses one detail page. Sections are extracted independently;
// a missing section leaves its fields empty. The page is rejected only when no
// strategy produced a name.
func (e *Extractor) ExtractDetail(markup, locator string) (*models.CompanyRecord, error) {
	doc, err := createDocument(markup)
	if err != nil {
		return nil, models.NewFailure(models.FailureParse, locator, err)
	}

	record := models.NewCompanyRecord()
	record.DetailLocator = locator
	record.Source.Locator = locator
	record.Source.DiscoveredAt = e.now()

	record.Name = firstText(doc, nameSelectors)
	record.Description = extractDescription(doc, locator)
	record.LastUpdated = selectionText(doc.Find("span#last_updated").First())

	base := parseBase(locator)
	record.BasicInfo = extractBasicInfo(doc)
	record.Directors = extractDirectors(doc, base)
	record.Charges = extractCharges(doc)
	record.SimilarEntities = extractSimilar(doc, base)
	record.ContactInfo = extractContact(doc)
	record.FinancialInfo = extractFinancialInfo(doc)

	applyBasicInfo(&record)

	if website := record.ContactInfo["Website"]; models.IsKnown(website) {
		record.Website = website
	}
	if address := record.ContactInfo["Address"]; models.IsKnown(address) {
		record.Address = address
	} else if address := lookupFold(record.BasicInfo, "Registered Address", "Address"); models.IsKnown(address) {
		record.Address = address
	}
	applyAddress(&record)

	// structured sources override text extraction; JSON-LD is applied last
	if applyNextData(doc, &record) {
		e.logger.Debug().Str("url", locator).Msg("Applied __NEXT_DATA__ company blob")
	}
	if applyJSONLD(doc, &record) {
		e.logger.Debug().Str("url", locator).Msg("Applied JSON-LD Organization")
	}

	record.Heuristic = extractHeuristics(doc)
	record.Description = truncate(record.Description, maxDescriptionLength)

	if strings.TrimSpace(record.Name) == "" {
		return nil, models.NewFailure(models.FailureValidation, locator, ErrNoName)
	}
	return &record, nil
}

// firstText returns the text of the first selector that yields non-empty text
func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		if text := selectionText(doc.Find(selector).First()); text != "" {
			return text
		}
	}
	return ""
}

func extractDescription(doc *goquery.Document, locator string) string {
	for _, selector := range descriptionSelectors {
		block := doc.Find(selector).First()
		if block.Length() == 0 {
			continue
		}
		if text := toMarkdownText(block, locator); text != "" {
			return text
		}
	}

	if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if text := cleanText(content); text != "" {
			return text
		}
	}

	var text string
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if t := selectionText(p); len(t) > minDescriptionText {
			text = t
			return false
		}
		return true
	})
	return text
}

// isBasicInfoTable matches plain striped tables; hover and condensed tables hold
// financials and directors
func isBasicInfoTable(table *goquery.Selection) bool {
	return table.HasClass("table-striped") && !table.HasClass("table-hover") && !table.HasClass("table-condensed")
}

// extractBasicInfo merges every key-value table; later keys win
func extractBasicInfo(doc *goquery.Document) map[string]string {
	info := make(map[string]string)
	doc.Find("table.table-striped").Each(func(_ int, table *goquery.Selection) {
		if !isBasicInfoTable(table) {
			return
		}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := rowCells(row)
			if len(cells) < 2 {
				return
			}
			key := selectionText(cells[0])
			if key == "" {
				return
			}
			info[key] = selectionText(cells[1])
		})
	})
	return info
}

func extractDirectors(doc *goquery.Document, base *url.URL) []models.Director {
	var directors []models.Director
	doc.Find("table.table-condensed").Each(func(_ int, table *goquery.Selection) {
		caption := strings.ToLower(selectionText(table.Find("caption").First()))
		if !strings.Contains(caption, "current directors") {
			return
		}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < minDirectorCells {
				return
			}
			din := cells.Eq(0)
			href, _ := din.Find("a[href]").First().Attr("href")
			directors = append(directors, models.Director{
				ID:                 selectionText(din),
				Name:               selectionText(cells.Eq(1)),
				Designation:        selectionText(cells.Eq(2)),
				AppointmentDateRaw: selectionText(cells.Eq(3)),
				ProfileURL:         resolve(base, href),
			})
		})
	})
	return directors
}

// chargeStatus resolves the closure cell into a tri-state
func chargeStatus(closure string) models.ChargeStatus {
	closure = strings.TrimSpace(closure)
	switch {
	case closure == "" || closure == "-":
		return models.ChargeOpen
	case models.IsKnown(closure):
		return models.ChargeClosed
	default:
		return models.ChargeUnknown
	}
}

// extractCharges skips rows whose first cell carries the access-lock icon
func extractCharges(doc *goquery.Document) []models.Charge {
	var charges []models.Charge
	doc.Find("div#charges-content table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < minChargeCells {
			return
		}
		if cells.Eq(0).Find("i.lock, i.fa-lock").Length() > 0 {
			return
		}
		closure := selectionText(cells.Eq(3))
		amountRaw := selectionText(cells.Eq(5))
		charges = append(charges, models.Charge{
			ChargeID:            selectionText(cells.Eq(0)),
			CreationDateRaw:     selectionText(cells.Eq(1)),
			ModificationDateRaw: selectionText(cells.Eq(2)),
			ClosureDateRaw:      closure,
			Status:              chargeStatus(closure),
			AssetDescription:    selectionText(cells.Eq(4)),
			AmountRaw:           amountRaw,
			Amount:              parseAmount(amountRaw),
			HolderName:          selectionText(cells.Eq(6)),
		})
	})
	return charges
}

func extractSimilar(doc *goquery.Document, base *url.URL) []models.SimilarEntity {
	var similar []models.SimilarEntity
	doc.Find("div#similar-address-content table tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if len(similar) >= maxSimilarEntities {
			return false
		}
		cells := row.Find("td")
		if cells.Length() < minSimilarCells {
			return true
		}
		href, _ := cells.Eq(0).Find("a[href]").First().Attr("href")
		similar = append(similar, models.SimilarEntity{
			RegistrationID: selectionText(cells.Eq(0)),
			Name:           selectionText(cells.Eq(1)),
			Address:        selectionText(cells.Eq(2)),
			Locator:        resolve(base, href),
		})
		return true
	})
	return similar
}

func extractContact(doc *goquery.Document) map[string]string {
	contact := make(map[string]string)
	section := doc.Find("div#contact-details-content").First()
	if section.Length() == 0 {
		return contact
	}

	if encoded, ok := section.Find("a.__cf_email__").First().Attr("data-cfemail"); ok {
		if email := decodeCFEmail(encoded); email != "" {
			contact["Email"] = email
		}
	}

	section.Find("span").Each(func(_ int, span *goquery.Selection) {
		if strings.HasPrefix(selectionText(span), "Address:") {
			if next := selectionText(span.NextFiltered("span")); next != "" {
				contact["Address"] = next
			}
		}
	})

	section.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := selectionText(p)
		switch {
		case strings.HasPrefix(text, "Website:"):
			if site := strings.TrimSpace(strings.TrimPrefix(text, "Website:")); site != "" {
				contact["Website"] = site
			}
		case strings.HasPrefix(text, "Email ID:"):
			if _, ok := contact["Email"]; !ok {
				if email := strings.TrimSpace(strings.TrimPrefix(text, "Email ID:")); email != "" {
					contact["Email"] = email
				}
			}
		}
	})
	return contact
}

// decodeCFEmail reverses Cloudflare email obfuscation: the first byte is the XOR key
func decodeCFEmail(encoded string) string {
	raw, err := hex.DecodeString(encoded)
	if err != nil || len(raw) < 2 {
		return ""
	}
	key := raw[0]
	out := make([]byte, len(raw)-1)
	for i, b := range raw[1:] {
		out[i] = b ^ key
	}
	return string(out)
}

// extractFinancialInfo reads hover tables, skipping locked or empty values
func extractFinancialInfo(doc *goquery.Document) map[string]string {
	info := make(map[string]string)
	doc.Find("table.table-striped.table-hover").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := rowCells(row)
			if len(cells) < 2 {
				return
			}
			if cells[1].Find("i.lock, i.fa-lock").Length() > 0 {
				return
			}
			key, value := selectionText(cells[0]), selectionText(cells[1])
			if key != "" && value != "" {
				info[key] = value
			}
		})
	})
	return info
}

// applyBasicInfo lifts identity, status and capital fields out of basic_info
func applyBasicInfo(record *models.CompanyRecord) {
	info := record.BasicInfo
	if cin := lookupFold(info, "CIN", "LLPIN", "Corporate Identification Number"); cin != "" {
		id := strings.ToUpper(cin)
		record.RegistrationID = &id
		record.EntityType = ClassifyEntityType(cin)
	}
	if status := lookupFold(info, "Company Status", "Status"); status != "" {
		record.Status = status
	}
	record.AuthorizedCapital = parseAmount(lookupFold(info, "Authorised Capital", "Authorized Capital"))
	record.PaidUpCapital = parseAmount(lookupFold(info, "Paid up capital", "Paid-up Capital"))
}

// lookupFold returns the first key present, compared case-insensitively
func lookupFold(m map[string]string, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok && models.IsKnown(v) {
			return v
		}
		for k, v := range m {
			if strings.EqualFold(k, key) && models.IsKnown(v) {
				return v
			}
		}
	}
	return ""
}

func parseAmount(raw string) *float64 {
	if !models.IsKnown(raw) {
		return nil
	}
	return currency.Parse(raw)
}
