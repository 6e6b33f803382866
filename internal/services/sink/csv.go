package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/interfaces"
	"github.com/ternarybob/corpscan/internal/models"
)

// csvColumns pairs each header with the scalar it reads from a record
var csvColumns = []struct {
	header string
	value  func(r *models.EnrichedRecord) string
}{
	{"registration_id", func(r *models.EnrichedRecord) string { return deref(r.RegistrationID) }},
	{"name", func(r *models.EnrichedRecord) string { return r.Name }},
	{"detail_locator", func(r *models.EnrichedRecord) string { return r.DetailLocator }},
	{"address", func(r *models.EnrichedRecord) string { return r.Address }},
	{"city", func(r *models.EnrichedRecord) string { return r.City }},
	{"state", func(r *models.EnrichedRecord) string { return r.State }},
	{"state_code", func(r *models.EnrichedRecord) string { return r.StateCode }},
	{"pin_code", func(r *models.EnrichedRecord) string { return r.PinCode }},
	{"entity_type", func(r *models.EnrichedRecord) string { return r.EntityType }},
	{"status", func(r *models.EnrichedRecord) string { return r.Status }},
	{"authorized_capital", func(r *models.EnrichedRecord) string { return formatFloatPtr(r.AuthorizedCapital) }},
	{"paid_up_capital", func(r *models.EnrichedRecord) string { return formatFloatPtr(r.PaidUpCapital) }},
	{"website", func(r *models.EnrichedRecord) string { return r.Website }},
	{"last_updated", func(r *models.EnrichedRecord) string { return r.LastUpdated }},
	{"industry", func(r *models.EnrichedRecord) string { return r.IndustryClassification }},
	{"company_age_years", func(r *models.EnrichedRecord) string { return formatIntPtr(r.CompanyAgeYears) }},
	{"incorporation_year", func(r *models.EnrichedRecord) string { return formatIntPtr(r.IncorporationYear) }},
	{"governance_score", func(r *models.EnrichedRecord) string { return formatFloat(r.GovernanceScore) }},
	{"director_count", func(r *models.EnrichedRecord) string { return strconv.Itoa(len(r.Directors)) }},
	{"total_charges", func(r *models.EnrichedRecord) string { return strconv.Itoa(r.RiskIndicators.TotalCharges) }},
	{"active_charges", func(r *models.EnrichedRecord) string { return strconv.Itoa(r.RiskIndicators.ActiveCharges) }},
	{"closed_charges", func(r *models.EnrichedRecord) string { return strconv.Itoa(r.RiskIndicators.ClosedCharges) }},
	{"capital_utilization", func(r *models.EnrichedRecord) string { return ratio(r, models.RatioCapitalUtilization) }},
	{"debt_to_equity", func(r *models.EnrichedRecord) string { return ratio(r, models.RatioDebtToEquity) }},
	{"compliance_staleness", func(r *models.EnrichedRecord) string { return r.RiskIndicators.ComplianceStaleness }},
	{"structured", func(r *models.EnrichedRecord) string { return strconv.FormatBool(r.Structured) }},
	{"search_term", func(r *models.EnrichedRecord) string { return r.Source.SearchTerm }},
	{"discovered_at", func(r *models.EnrichedRecord) string { return formatTime(r.Source.DiscoveredAt) }},
}

// CSVSink flattens records to one row each. Nested collections are reduced to counts.
type CSVSink struct {
	target fileTarget
	logger arbor.ILogger
}

var _ interfaces.Sink = (*CSVSink)(nil)

func NewCSVSink(dir, prefix string, logger arbor.ILogger) *CSVSink {
	return &CSVSink{target: fileTarget{dir: dir, prefix: prefix}, logger: logger}
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(ctx context.Context, batch interfaces.Batch) error {
	if err := ctx.Err(); err != nil && !batch.Partial {
		return err
	}

	data, err := EncodeCSV(batch.Records)
	if err != nil {
		return err
	}

	path := s.target.path(batch, "csv")
	if err := s.target.write(path, data); err != nil {
		return err
	}

	s.logger.Info().Str("path", path).Int("rows", len(batch.Records)).Msg("CSV export written")
	return nil
}

// EncodeCSV renders the header row and one row per record
func EncodeCSV(records []models.EnrichedRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(csvColumns))
	for i, col := range csvColumns {
		header[i] = col.header
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, len(csvColumns))
	for i := range records {
		for j, col := range csvColumns {
			row[j] = col.value(&records[i])
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatFloatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatIntPtr(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func ratio(r *models.EnrichedRecord, name string) string {
	v, ok := r.FinancialRatios[name]
	if !ok {
		return ""
	}
	return formatFloat(v)
}
