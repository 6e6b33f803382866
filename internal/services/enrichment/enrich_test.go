package enrichment

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/corpscan/internal/models"
)

var testNow = time.Date(2025, time.June, 30, 12, 0, 0, 0, time.UTC)

func ptr(f float64) *float64 { return &f }

func sampleRecord() models.CompanyRecord {
	record := models.NewCompanyRecord()
	record.Name = "Acme Software Private Limited"
	record.Description = "Builds payroll software for small businesses."
	record.AuthorizedCapital = ptr(20_000_000)
	record.PaidUpCapital = ptr(10_000_000)
	record.LastUpdated = "Details as on 30 June 2025"
	record.BasicInfo = map[string]string{
		"Company Status":        "Active",
		"Date of Incorporation": "12 March 2015",
		"Email":                 "",
		"Registered Address":    "123 MG Road Bengaluru KA 560001",
	}
	record.Directors = []models.Director{
		{ID: "01234567", Name: "Asha Rao", AppointmentDateRaw: "12 March 2015"},
		{ID: "01234568", Name: "Vikram Rao", AppointmentDateRaw: "01 April 2024"},
		{ID: "01234569", Name: "Meera Iyer", AppointmentDateRaw: "15 May 2024"},
	}
	record.Charges = []models.Charge{
		{ChargeID: "100", Status: models.ChargeOpen, Amount: ptr(3_000_000)},
		{ChargeID: "101", Status: models.ChargeClosed, ClosureDateRaw: "01 Jan 2020", AmountRaw: "₹20 Lakh"},
	}
	return record
}

func TestEnrich_Sample(t *testing.T) {
	enriched := Enrich(sampleRecord(), testNow)

	assert.Equal(t, "technology", enriched.IndustryClassification)
	require.NotNil(t, enriched.CompanyAgeYears)
	assert.Equal(t, 10, *enriched.CompanyAgeYears)
	assert.Equal(t, 2015, *enriched.IncorporationYear)

	assert.InDelta(t, 0.5, enriched.Ratio(models.RatioCapitalUtilization), 1e-9)
	assert.InDelta(t, 0.5, enriched.Ratio(models.RatioCapitalBuffer), 1e-9)
	assert.InDelta(t, 0.5, enriched.Ratio(models.RatioDebtToEquity), 1e-9)
	assert.InDelta(t, 1.5, enriched.Ratio(models.RatioFinancialLeverage), 1e-9)
	assert.InDelta(t, 10_000_000.0/3, enriched.Ratio(models.RatioDirectorEfficiency), 1e-6)

	risk := enriched.RiskIndicators
	assert.Equal(t, 2, risk.TotalCharges)
	assert.Equal(t, 1, risk.ActiveCharges)
	assert.Equal(t, 1, risk.ClosedCharges)
	require.NotNil(t, risk.DirectorTurnoverRisk)
	assert.InDelta(t, 2.0/3, *risk.DirectorTurnoverRisk, 1e-9)
	require.NotNil(t, risk.RecentDirectorChanges)
	assert.Equal(t, 2, *risk.RecentDirectorChanges)
	assert.Equal(t, models.StalenessRecent, risk.ComplianceStaleness)

	// 20 board + 2/3*25 surnames + 15 updated + 1/2*20 charges + 3/4*20 completeness
	assert.InDelta(t, 20+50.0/3+15+10+15, enriched.GovernanceScore, 1e-9)
	assert.Equal(t, testNow, enriched.EnrichedAt)
}

func TestEnrich_Deterministic(t *testing.T) {
	record := sampleRecord()
	first := Enrich(record, testNow)
	second := Enrich(record, testNow)
	assert.Equal(t, first, second)
}

func TestFinancialRatios(t *testing.T) {
	tests := []struct {
		name       string
		authorized *float64
		paid       *float64
		charges    []models.Charge
		directors  int
		want       map[string]float64
	}{
		{
			name:       "debt to equity of one half",
			authorized: ptr(10_000_000),
			paid:       ptr(10_000_000),
			charges:    []models.Charge{{Amount: ptr(5_000_000)}},
			want: map[string]float64{
				models.RatioCapitalUtilization: 1,
				models.RatioCapitalBuffer:      0,
				models.RatioDebtToEquity:       0.5,
				models.RatioFinancialLeverage:  1.5,
				models.RatioDirectorEfficiency: 0,
			},
		},
		{
			name:      "no capital data",
			charges:   []models.Charge{{Amount: ptr(5_000_000)}},
			directors: 2,
			want:      map[string]float64{models.RatioDirectorEfficiency: 0},
		},
		{
			name:       "zero authorized capital skips utilization",
			authorized: ptr(0),
			paid:       ptr(1_000_000),
			directors:  4,
			want:       map[string]float64{models.RatioDirectorEfficiency: 250_000},
		},
		{
			name:       "zero paid capital skips leverage",
			authorized: ptr(1_000_000),
			paid:       ptr(0),
			charges:    []models.Charge{{AmountRaw: "₹1 Crore"}},
			want: map[string]float64{
				models.RatioCapitalUtilization: 0,
				models.RatioCapitalBuffer:      1,
				models.RatioDirectorEfficiency: 0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := models.NewCompanyRecord()
			record.Name = "Test"
			record.AuthorizedCapital = tt.authorized
			record.PaidUpCapital = tt.paid
			record.Charges = tt.charges
			for i := 0; i < tt.directors; i++ {
				record.Directors = append(record.Directors, models.Director{Name: "Director"})
			}

			got := FinancialRatios(record)
			require.Len(t, got, len(tt.want))
			for name, want := range tt.want {
				assert.InDelta(t, want, got[name], 1e-9, name)
			}
		})
	}
}

func TestFinancialRatios_FallsBackToBasicInfo(t *testing.T) {
	record := models.NewCompanyRecord()
	record.BasicInfo = map[string]string{
		"Authorised Capital": "₹1 Crore",
		"Paid up capital":    "₹50 Lakh",
	}
	ratios := FinancialRatios(record)
	assert.InDelta(t, 0.5, ratios[models.RatioCapitalUtilization], 1e-9)
}

func TestGovernanceScore(t *testing.T) {
	t.Run("empty record stays in range", func(t *testing.T) {
		// The additive rules give an empty record only the flat no-charges
		// bonus, so it scores 20. The 40-60 band applies to a record with
		// complete basic info and a recent update, covered below.
		record := models.NewCompanyRecord()
		record.Name = "Empty"
		score := GovernanceScore(record)
		assert.InDelta(t, 20, score, 1e-9, "only the no-charges bonus applies")
	})

	t.Run("no directors or charges with complete info", func(t *testing.T) {
		record := models.NewCompanyRecord()
		record.Name = "Shell Holdings"
		record.LastUpdated = "as on 2025-06-01"
		record.BasicInfo = map[string]string{"Company Status": "Active", "ROC": "RoC-Delhi"}
		score := GovernanceScore(record)
		assert.GreaterOrEqual(t, score, 40.0)
		assert.LessOrEqual(t, score, 60.0)
	})

	t.Run("perfect record is capped", func(t *testing.T) {
		record := sampleRecord()
		record.Directors = []models.Director{{Name: "A Rao"}, {Name: "B Iyer"}, {Name: "C Shah"}}
		record.Charges = nil
		record.BasicInfo = map[string]string{"Company Status": "Active"}
		assert.InDelta(t, 100, GovernanceScore(record), 1e-9)
	})

	t.Run("large board gets no size bonus", func(t *testing.T) {
		record := models.NewCompanyRecord()
		for i := 0; i < 9; i++ {
			record.Directors = append(record.Directors, models.Director{Name: "Same Name"})
		}
		record.Charges = []models.Charge{{Status: models.ChargeOpen}}
		score := GovernanceScore(record)
		assert.InDelta(t, 25.0/9, score, 1e-9)
	})
}

func TestClassifyIndustry(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{"Zeta Software Pvt Ltd", "", "technology"},
		{"Prudent Bank Ltd", "", "financial"},
		{"Carewell Medical Centre", "", "healthcare"},
		{"Bharat Steel Works", "", "manufacturing"},
		{"Greenfield Solar", "", "energy"},
		{"Skyline Builders", "", "real_estate"},
		{"Ganga Foods", "a bakery", SectorDiversified},
		// "it" is a technology keyword and matches inside other words
		{"Prime Limited", "", "technology"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyIndustry(tt.name, tt.description))
		})
	}
}

func TestIncorporationYear(t *testing.T) {
	tests := []struct {
		name string
		info map[string]string
		want int
		ok   bool
	}{
		{name: "incorporation key", info: map[string]string{"Date of Incorporation": "05 Jan 1998"}, want: 1998, ok: true},
		{name: "too old", info: map[string]string{"Date of Incorporation": "1901"}, ok: false},
		{name: "future", info: map[string]string{"Incorporation": "2031"}, ok: false},
		{name: "no matching key", info: map[string]string{"Founded": "2010"}, ok: false},
		{
			name: "incorporation key beats an earlier date key",
			info: map[string]string{"Date of Balance Sheet": "31 Mar 2024", "Date of Incorporation": "10 June 2015"},
			want: 2015,
			ok:   true,
		},
		{
			name: "date key used when no incorporation key",
			info: map[string]string{"Date of Balance Sheet": "31 Mar 2023", "Founded": "2001"},
			want: 2023,
			ok:   true,
		},
		{
			name: "later key used when earlier has no year",
			info: map[string]string{"Date of Balance Sheet": "-", "Date of Incorporation": "2001"},
			want: 2001,
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, ok := IncorporationYear(tt.info, testNow)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, year)
			}
		})
	}
}

func TestStaleness(t *testing.T) {
	assert.Equal(t, models.StalenessRecent, Staleness("Details as on 01-06-2025"))
	assert.Equal(t, models.StalenessRecent, Staleness("Updated As Of March 2024"))
	assert.Equal(t, models.StalenessOutdated, Staleness("2019"))
	assert.Equal(t, models.StalenessUnknown, Staleness("  "))
}

func TestHasFilingMarker(t *testing.T) {
	assert.True(t, HasFilingMarker("Details as on 01-06-2025"))
	assert.True(t, HasFilingMarker("Updated As Of March 2024"))
	assert.False(t, HasFilingMarker("Last filed 2024"))
}

func TestEnrichAll_NoDirectors(t *testing.T) {
	record := models.NewCompanyRecord()
	record.Name = "Solo"
	enriched := EnrichAll([]models.CompanyRecord{record}, testNow)
	require.Len(t, enriched, 1)
	assert.Nil(t, enriched[0].RiskIndicators.DirectorTurnoverRisk)
	assert.Nil(t, enriched[0].CompanyAgeYears)
	assert.False(t, math.IsNaN(enriched[0].GovernanceScore))
}
