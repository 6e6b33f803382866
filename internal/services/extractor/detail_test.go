package extractor

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/corpscan/internal/models"
)

func similarRows(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<tr><td><a href="/company/N%d/U%05dKA2010PTC000000">U%05dKA2010PTC000000</a></td><td>Neighbour %d Private Limited</td><td>123 MG Road Bengaluru KA 560001</td></tr>`, i, i, i, i)
	}
	return b.String()
}

var registryDetailPage = `<html><head>
<title>ACME SOFTWARE PRIVATE LIMITED - Company Profile</title>
<meta name="description" content="Acme builds accounting software.">
</head><body>
<h1 id="title">ACME SOFTWARE PRIVATE LIMITED</h1>
<p>Last Updated: <span id="last_updated">as on 12 March 2024</span></p>
<p id="about">ACME SOFTWARE PRIVATE LIMITED is a private company incorporated on 10 June 2015.</p>
<table class="table table-striped">
  <tr><td>CIN</td><td>U72900KA2015PTC082988</td></tr>
  <tr><td>Company Status</td><td>Active</td></tr>
  <tr><td>Date of Incorporation</td><td>10 June 2015</td></tr>
  <tr><td>Authorised Capital</td><td>₹ 2 Crore</td></tr>
</table>
<table class="table table-striped">
  <tr><td>Paid up capital</td><td>₹1 Crore</td></tr>
  <tr><td>Company Status</td><td>Strike Off</td></tr>
</table>
<table class="table table-striped table-hover">
  <tr><td>Last AGM</td><td>30 September 2023</td></tr>
  <tr><td>Balance Sheet</td><td><i class="lock"></i></td></tr>
</table>
<table class="table table-striped table-condensed">
  <caption>Current Directors &amp; Key Managerial Personnel</caption>
  <tr><th>DIN</th><th>Name</th><th>Designation</th><th>Appointment Date</th></tr>
  <tr><td><a href="/director/RAVI/01234567">01234567</a></td><td>Ravi Kumar</td><td>Director</td><td>10 June 2015</td></tr>
  <tr><td>07654321</td><td>Anita Sharma</td><td>Director</td><td>01 April 2022</td></tr>
</table>
<table class="table table-striped table-condensed">
  <caption>Past Directors</caption>
  <tr><td>09999999</td><td>Former Person</td><td>Director</td><td>01 April 2016</td></tr>
</table>
<div id="charges-content"><table><tbody>
  <tr><td>100123</td><td>01/02/2020</td><td>-</td><td>-</td><td>Book debts</td><td>₹50 Lakh</td><td>HDFC Bank</td></tr>
  <tr><td><i class="lock"></i></td><td>x</td><td>x</td><td>x</td><td>x</td><td>₹9 Crore</td><td>Hidden Holder</td></tr>
  <tr><td>short</td><td>row</td></tr>
</tbody></table></div>
<div id="contact-details-content">
  <p>Email ID: <a class="__cf_email__" data-cfemail="422b2c242d0223212f276c273a232f322e27">[email&#160;protected]</a></p>
  <p>Website: https://acme.example</p>
  <span>Address:</span><span>123 MG Road Bengaluru KA 560001</span>
</div>
<div id="similar-address-content"><table><tbody>` + similarRows(12) + `</tbody></table></div>
</body></html>`

func TestExtractDetail_RegistryPage(t *testing.T) {
	e := newTestExtractor(Options{})

	record, err := e.ExtractDetail(registryDetailPage, "https://www.example.com/company/ACME-SOFTWARE/U72900KA2015PTC082988")
	require.NoError(t, err)

	assert.Equal(t, "ACME SOFTWARE PRIVATE LIMITED", record.Name)
	assert.Equal(t, "as on 12 March 2024", record.LastUpdated)
	assert.Contains(t, record.Description, "incorporated on 10 June 2015")
	assert.Equal(t, "U72900KA2015PTC082988", record.RegistrationIDOrEmpty())
	assert.Equal(t, EntityPrivateLimited, record.EntityType)

	// later key wins across tables
	assert.Equal(t, "Strike Off", record.BasicInfo["Company Status"])
	assert.Equal(t, "Strike Off", record.Status)
	assert.NotContains(t, record.BasicInfo, "Last AGM")

	require.NotNil(t, record.AuthorizedCapital)
	require.NotNil(t, record.PaidUpCapital)
	assert.InDelta(t, 20_000_000, *record.AuthorizedCapital, 0.001)
	assert.InDelta(t, 10_000_000, *record.PaidUpCapital, 0.001)

	require.Len(t, record.Directors, 2)
	assert.Equal(t, "01234567", record.Directors[0].ID)
	assert.Equal(t, "https://www.example.com/director/RAVI/01234567", record.Directors[0].ProfileURL)
	assert.Equal(t, "01 April 2022", record.Directors[1].AppointmentDateRaw)

	require.Len(t, record.Charges, 1)
	charge := record.Charges[0]
	assert.Equal(t, models.ChargeOpen, charge.Status)
	assert.Equal(t, "HDFC Bank", charge.HolderName)
	require.NotNil(t, charge.Amount)
	assert.InDelta(t, 5_000_000, *charge.Amount, 0.001)

	assert.Len(t, record.SimilarEntities, maxSimilarEntities)
	assert.Equal(t, "Neighbour 0 Private Limited", record.SimilarEntities[0].Name)
	assert.Equal(t, "https://www.example.com/company/N0/U00000KA2010PTC000000", record.SimilarEntities[0].Locator)

	assert.Equal(t, "info@acme.example", record.ContactInfo["Email"])
	assert.Equal(t, "https://acme.example", record.Website)
	assert.Equal(t, "123 MG Road Bengaluru KA 560001", record.Address)
	assert.Equal(t, "Bengaluru", record.City)

	assert.Equal(t, map[string]string{"Last AGM": "30 September 2023"}, record.FinancialInfo)
	assert.False(t, record.Structured)
	assert.False(t, record.Heuristic.Confirmed)
}

func TestExtractDetail_MissingSections(t *testing.T) {
	e := newTestExtractor(Options{})

	record, err := e.ExtractDetail(`<html><body><h1>Tiny Co</h1></body></html>`, "https://www.example.com/company/tiny")
	require.NoError(t, err)
	assert.Equal(t, "Tiny Co", record.Name)
	assert.Nil(t, record.RegistrationID)
	assert.Nil(t, record.PaidUpCapital)
	assert.Empty(t, record.Directors)
	assert.Empty(t, record.Charges)
	assert.Empty(t, record.BasicInfo)
	assert.Equal(t, models.Unknown, record.City)
}

func TestExtractDetail_NoName(t *testing.T) {
	e := newTestExtractor(Options{})

	_, err := e.ExtractDetail(`<html><body><div>nothing here</div></body></html>`, "https://www.example.com/x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoName))
	assert.Equal(t, models.FailureValidation, models.KindOf(err))
}

func TestExtractDetail_JSONLDOverridesText(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{
			name:   "object",
			script: `{"@context":"https://schema.org","@type":"Organization","name":"Foo Technologies","description":"Payments infrastructure","url":"https://foo.example"}`,
		},
		{
			name:   "graph",
			script: `{"@context":"https://schema.org","@graph":[{"@type":"WebPage","name":"Foo page"},{"@type":"Organization","name":"Foo Technologies","description":"Payments infrastructure","url":"https://foo.example"}]}`,
		},
		{
			name:   "malformed trailing comma",
			script: `{"@type": "Organization", "name": "Foo Technologies", "description": "Payments infrastructure", "url": "https://foo.example",}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markup := `<html><head><script type="application/ld+json">` + tt.script + `</script></head>
<body><h1>foo tech | Startup profile</h1><p class="company-description">Text description</p></body></html>`

			record, err := newTestExtractor(Options{}).ExtractDetail(markup, "https://inc42.example/company/foo/")
			require.NoError(t, err)
			assert.Equal(t, "Foo Technologies", record.Name)
			assert.Equal(t, "Payments infrastructure", record.Description)
			assert.Equal(t, "https://foo.example", record.Website)
			assert.True(t, record.Structured)
		})
	}
}

func TestExtractDetail_NextData(t *testing.T) {
	markup := `<html><body>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"company":{"title":"Zeta","url":"https://zeta.example","industry":"Fintech","yearFounded":2015,"headquarters":"Bengaluru","founders":["Bhavin Turakhia","Ramki Gaddipati"],"totalFunding":"$280M","description":"Banking tech stack"}}}}</script>
</body></html>`

	record, err := newTestExtractor(Options{}).ExtractDetail(markup, "https://inc42.example/company/zeta/")
	require.NoError(t, err)
	assert.Equal(t, "Zeta", record.Name)
	assert.True(t, record.Structured)
	assert.Equal(t, "https://zeta.example", record.Website)
	assert.Equal(t, "Banking tech stack", record.Description)
	assert.Equal(t, "Fintech", record.BasicInfo["Industry"])
	assert.Equal(t, "2015", record.BasicInfo["Founded_Date"])
	assert.Equal(t, "Bhavin Turakhia, Ramki Gaddipati", record.BasicInfo["Founders"])
	assert.Equal(t, "Bengaluru", record.City)
	assert.Equal(t, "$280M", record.FinancialInfo["Total Funding"])
}

func TestExtractDetail_DescriptionFallbacks(t *testing.T) {
	long := strings.Repeat("Acme builds ledgers for small businesses. ", 20)

	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			name:   "meta description",
			markup: `<html><head><meta name="description" content="Meta text here"></head><body><h1>Acme</h1><p>short</p></body></html>`,
			want:   "Meta text here",
		},
		{
			name:   "long paragraph",
			markup: `<html><body><h1>Acme</h1><p>short</p><p>This paragraph is comfortably longer than fifty characters in total.</p></body></html>`,
			want:   "This paragraph is comfortably longer than fifty characters in total.",
		},
		{
			name:   "capped",
			markup: `<html><body><h1>Acme</h1><p>` + long + `</p></body></html>`,
			want:   strings.TrimSpace(long[:maxDescriptionLength]),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := newTestExtractor(Options{}).ExtractDetail(tt.markup, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, record.Description)
		})
	}
}

func TestExtractDetail_Heuristics(t *testing.T) {
	markup := `<html><body><h1>Kite Mobility</h1>
<p>Kite is a mobility startup based in Pune, founded in 2019. The company raised $12 million in its latest round.</p>
</body></html>`

	record, err := newTestExtractor(Options{}).ExtractDetail(markup, "")
	require.NoError(t, err)

	h := record.Heuristic
	assert.Equal(t, "Pune", h.Location)
	assert.Equal(t, "2019", h.FoundedYear)
	assert.Equal(t, "Mobility", h.Sector)
	assert.Equal(t, "$12 million", h.Funding)
	assert.Equal(t, "startup", h.CompanyType)
	assert.False(t, h.Confirmed)
}

func TestChargeStatus(t *testing.T) {
	assert.Equal(t, models.ChargeOpen, chargeStatus("-"))
	assert.Equal(t, models.ChargeOpen, chargeStatus(""))
	assert.Equal(t, models.ChargeClosed, chargeStatus("12/05/2021"))
	assert.Equal(t, models.ChargeUnknown, chargeStatus("N/A"))
}

func TestDecodeCFEmail(t *testing.T) {
	assert.Equal(t, "info@acme.example", decodeCFEmail("422b2c242d0223212f276c273a232f322e27"))
	assert.Equal(t, "", decodeCFEmail("zz"))
	assert.Equal(t, "", decodeCFEmail(""))
}
