package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/ternarybob/corpscan/internal/models"
)

// decodeLenient unmarshals JSON, repairing it first if the raw text is malformed
func decodeLenient(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty JSON block")
	}
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}
	repaired, err := jsonrepair.RepairJSON(raw)
	if err != nil {
		return fmt.Errorf("failed to repair JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("failed to decode repaired JSON: %w", err)
	}
	return nil
}

// applyJSONLD overrides name, description and website from the first
// Organization object found in ld+json scripts
func applyJSONLD(doc *goquery.Document, record *models.CompanyRecord) bool {
	applied := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var payload any
		if err := decodeLenient(s.Text(), &payload); err != nil {
			return true
		}
		org := findOrganization(payload)
		if org == nil {
			return true
		}
		if name := stringField(org, "name"); name != "" {
			record.Name = name
			record.Structured = true
		}
		if desc := stringField(org, "description"); desc != "" {
			record.Description = desc
		}
		if site := stringField(org, "url"); site != "" {
			record.Website = site
		}
		applied = true
		return false
	})
	return applied
}

// findOrganization walks arrays and @graph containers for an Organization node
func findOrganization(v any) map[string]any {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			if org := findOrganization(item); org != nil {
				return org
			}
		}
	case map[string]any:
		if isOrganization(node["@type"]) {
			return node
		}
		if graph, ok := node["@graph"]; ok {
			return findOrganization(graph)
		}
	}
	return nil
}

func isOrganization(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Organization"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Organization" {
				return true
			}
		}
	}
	return false
}

// nextDataFields maps company blob fields to basic_info keys
var nextDataFields = []struct {
	field string
	key   string
}{
	{"industry", "Industry"},
	{"yearFounded", "Founded_Date"},
	{"headquarters", "Headquarters"},
	{"founders", "Founders"},
	{"totalFunding", "Total_Funding"},
	{"latestFundingType", "Latest_Funding_Type"},
	{"investors", "Investors"},
}

// applyNextData reads the company object from a Next.js __NEXT_DATA__ script
func applyNextData(doc *goquery.Document, record *models.CompanyRecord) bool {
	script := doc.Find("script#__NEXT_DATA__").First()
	if script.Length() == 0 {
		return false
	}

	var payload struct {
		Props struct {
			PageProps map[string]any `json:"pageProps"`
		} `json:"props"`
	}
	if err := decodeLenient(script.Text(), &payload); err != nil {
		return false
	}

	company := payload.Props.PageProps
	if nested, ok := company["company"].(map[string]any); ok {
		company = nested
	}
	if len(company) == 0 {
		return false
	}

	name := stringField(company, "title")
	if name == "" {
		name = stringField(company, "name")
	}
	if name == "" {
		return false
	}
	record.Name = name
	record.Structured = true

	if site := stringField(company, "url"); site != "" {
		record.Website = site
	}
	if desc := stringField(company, "description"); desc != "" {
		record.Description = desc
	}
	for _, f := range nextDataFields {
		if value := stringField(company, f.field); value != "" {
			record.BasicInfo[f.key] = value
		}
	}
	if hq := stringField(company, "headquarters"); hq != "" && !models.IsKnown(record.Address) {
		record.Address = hq
		record.City = hq
	}
	if funding := stringField(company, "totalFunding"); funding != "" {
		record.FinancialInfo["Total Funding"] = funding
	}
	return true
}

// stringField renders scalar and list values as text
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return cleanText(v)
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%.2f", v), ".00")
	case []any:
		var parts []string
		for _, item := range v {
			switch it := item.(type) {
			case string:
				parts = append(parts, cleanText(it))
			case map[string]any:
				if n := stringField(it, "name"); n != "" {
					parts = append(parts, n)
				}
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		return stringField(v, "name")
	}
	return ""
}
