package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/corpscan/internal/models"
	"github.com/ternarybob/corpscan/internal/services/enrichment"
)

// unit is one entity to process: a detail locator, optionally with the
// listing row it was discovered from
type unit struct {
	locator string
	listing *models.CompanyRecord
}

// outcome is what processing one unit produced. Units never share state.
type outcome struct {
	ran     bool
	record  *models.EnrichedRecord
	failure *models.Failure
}

// buildUnits merges detail locators and listing rows into one ordered,
// deduplicated work list. Listing rows with a detail locator attach to it.
func buildUnits(locators []string, listings []models.CompanyRecord) []unit {
	byLocator := make(map[string]*models.CompanyRecord, len(listings))
	for i := range listings {
		if l := listings[i].DetailLocator; l != "" {
			byLocator[l] = &listings[i]
		}
	}

	seen := make(map[string]bool)
	units := make([]unit, 0, len(locators)+len(listings))
	for _, locator := range locators {
		if locator == "" || seen[locator] {
			continue
		}
		seen[locator] = true
		units = append(units, unit{locator: locator, listing: byLocator[locator]})
	}
	for i := range listings {
		key := listingKey(listings[i])
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		units = append(units, unit{locator: key, listing: &listings[i]})
	}
	return units
}

// listingKey identifies a listing row that has no detail page
func listingKey(record models.CompanyRecord) string {
	if record.DetailLocator != "" {
		return record.DetailLocator
	}
	if record.RegistrationID != nil && *record.RegistrationID != "" {
		return "listing:" + *record.RegistrationID
	}
	if record.Name != "" {
		return "listing:" + record.Name
	}
	return ""
}

// process runs fetch, extract and enrich for one unit
func (r *Runner) process(ctx context.Context, u unit, source models.SourceMetadata, now time.Time) outcome {
	if u.listing != nil && (!r.options.FetchDetails || u.listing.DetailLocator == "") {
		record := *u.listing
		return r.finishRecord(&record, u.locator, source, now)
	}

	result := r.fetcher.Fetch(ctx, u.locator)
	if !result.IsOK() {
		if ctx.Err() != nil {
			return outcome{}
		}
		return outcome{ran: true, failure: result.Failure()}
	}

	record, err := r.extractor.ExtractDetail(result.Body, u.locator)
	if err != nil {
		return outcome{ran: true, failure: asFailure(err, u.locator)}
	}
	if u.listing != nil {
		fillFromListing(record, u.listing)
	}
	return r.finishRecord(record, u.locator, source, now)
}

// finishRecord validates the mandatory name, stamps provenance and enriches
func (r *Runner) finishRecord(record *models.CompanyRecord, locator string, source models.SourceMetadata, now time.Time) outcome {
	if err := record.Validate(); err != nil {
		failure := asFailure(err, locator)
		if failure.Locator == "" {
			failure.Locator = locator
		}
		return outcome{ran: true, failure: failure}
	}
	record.Source = withDiscovery(record.Source, source)

	enriched := enrichment.Enrich(*record, now)
	return outcome{ran: true, record: &enriched}
}

// withDiscovery applies discovery provenance. The discovery timestamp wins
// over the extraction time; the record's own locator and strategy are kept.
func withDiscovery(dst, src models.SourceMetadata) models.SourceMetadata {
	if dst.SearchTerm == "" {
		dst.SearchTerm = src.SearchTerm
	}
	if dst.Strategy == "" {
		dst.Strategy = src.Strategy
	}
	if dst.Locator == "" {
		dst.Locator = src.Locator
	}
	if !src.DiscoveredAt.IsZero() {
		dst.DiscoveredAt = src.DiscoveredAt
	}
	return dst
}

// fillFromListing copies listing fields the detail page left empty
func fillFromListing(record, listing *models.CompanyRecord) {
	if record.RegistrationID == nil {
		record.RegistrationID = listing.RegistrationID
	}
	if !models.IsKnown(record.Address) && models.IsKnown(listing.Address) {
		record.Address = listing.Address
		record.City = listing.City
		record.State = listing.State
		record.StateCode = listing.StateCode
		record.PinCode = listing.PinCode
	}
	if record.PaidUpCapital == nil {
		record.PaidUpCapital = listing.PaidUpCapital
	}
	if !models.IsKnown(record.Status) {
		record.Status = listing.Status
	}
	if record.Source.SearchTerm == "" {
		record.Source.SearchTerm = listing.Source.SearchTerm
	}
	if record.Source.Strategy == "" {
		record.Source.Strategy = listing.Source.Strategy
	}
	if !listing.Source.DiscoveredAt.IsZero() {
		record.Source.DiscoveredAt = listing.Source.DiscoveredAt
	}
}

func asFailure(err error, locator string) *models.Failure {
	var f *models.Failure
	if errors.As(err, &f) {
		return f
	}
	return models.NewFailure(models.KindOf(err), locator, err)
}
