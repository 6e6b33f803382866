// Package enrichment derives financial ratios, governance and risk signals
// from a single company record. Every function here is pure.
package enrichment

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/corpscan/internal/models"
	"github.com/ternarybob/corpscan/internal/services/currency"
)

const (
	minIncorporationYear = 1950
	recentDirectorYears  = 2
)

var yearPattern = regexp.MustCompile(`(\d{4})`)

// Enrich computes every derived field of record as of now. The input is not
// modified and the same input always yields the same output.
func Enrich(record models.CompanyRecord, now time.Time) models.EnrichedRecord {
	enriched := models.EnrichedRecord{
		CompanyRecord:          record,
		FinancialRatios:        FinancialRatios(record),
		IndustryClassification: ClassifyIndustry(record.Name, record.Description),
		RiskIndicators:         ExtractRiskIndicators(record, now),
		GovernanceScore:        GovernanceScore(record),
		EnrichedAt:             now,
	}

	if year, ok := IncorporationYear(record.BasicInfo, now); ok {
		age := now.Year() - year
		enriched.IncorporationYear = &year
		enriched.CompanyAgeYears = &age
	}
	return enriched
}

// EnrichAll enriches a batch in order
func EnrichAll(records []models.CompanyRecord, now time.Time) []models.EnrichedRecord {
	enriched := make([]models.EnrichedRecord, 0, len(records))
	for _, record := range records {
		enriched = append(enriched, Enrich(record, now))
	}
	return enriched
}

// FinancialRatios computes the capital and leverage ratios a record supports
func FinancialRatios(record models.CompanyRecord) map[string]float64 {
	ratios := make(map[string]float64)

	authorized := AuthorizedCapital(record)
	paid := PaidUpCapital(record)

	if authorized != nil && paid != nil && *authorized > 0 {
		ratios[models.RatioCapitalUtilization] = *paid / *authorized
		ratios[models.RatioCapitalBuffer] = (*authorized - *paid) / *authorized
	}

	directors := len(record.Directors)
	ratios[models.RatioDirectorEfficiency] = 0
	if directors > 0 && paid != nil {
		ratios[models.RatioDirectorEfficiency] = *paid / float64(directors)
	}

	total := TotalChargeAmount(record.Charges)
	if paid != nil && *paid != 0 && total > 0 {
		ratios[models.RatioDebtToEquity] = total / *paid
		ratios[models.RatioFinancialLeverage] = (*paid + total) / *paid
	}

	return ratios
}

// TotalChargeAmount sums charge amounts, parsing the raw text when no amount was stored
func TotalChargeAmount(charges []models.Charge) float64 {
	total := 0.0
	for _, charge := range charges {
		amount := charge.Amount
		if amount == nil {
			amount = currency.Parse(charge.AmountRaw)
		}
		if amount != nil {
			total += *amount
		}
	}
	return total
}

// AuthorizedCapital returns the parsed authorized capital, falling back to basic info
func AuthorizedCapital(record models.CompanyRecord) *float64 {
	return capital(record.AuthorizedCapital, record.BasicInfo, "Authorised Capital", "Authorized Capital")
}

// PaidUpCapital returns the parsed paid-up capital, falling back to basic info
func PaidUpCapital(record models.CompanyRecord) *float64 {
	return capital(record.PaidUpCapital, record.BasicInfo, "Paid up capital", "Paid Up Capital")
}

func capital(parsed *float64, basicInfo map[string]string, keys ...string) *float64 {
	if parsed != nil {
		return parsed
	}
	for _, key := range keys {
		if value, ok := basicInfo[key]; ok {
			if amount := currency.Parse(value); amount != nil {
				return amount
			}
		}
	}
	return nil
}

// IncorporationYear reads the year from a basic-info key naming incorporation.
// Generic date keys are consulted only when no incorporation key holds a
// plausible year. Keys are visited in sorted order within each pass.
func IncorporationYear(basicInfo map[string]string, now time.Time) (int, bool) {
	keys := make([]string, 0, len(basicInfo))
	for key := range basicInfo {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, marker := range []string{"incorporation", "date"} {
		for _, key := range keys {
			if !strings.Contains(strings.ToLower(key), marker) {
				continue
			}
			year, ok := firstYear(basicInfo[key])
			if ok && year >= minIncorporationYear && year <= now.Year() {
				return year, true
			}
		}
	}
	return 0, false
}

func firstYear(s string) (int, bool) {
	match := yearPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return year, true
}
