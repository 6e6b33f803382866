package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/corpscan/internal/models"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    Address
	}{
		{
			name:    "city before state code",
			address: "123 MG Road Bengaluru KA 560001",
			want:    Address{PinCode: "560001", StateCode: "KA", State: "Karnataka", City: "Bengaluru"},
		},
		{
			name:    "comma separated locality",
			address: "Plot 7, Andheri East, Mumbai MH 400069",
			want:    Address{PinCode: "400069", StateCode: "MH", State: "Maharashtra", City: "Mumbai"},
		},
		{
			name:    "two word city",
			address: "14 Anna Salai, New Delhi DL 110001",
			want:    Address{PinCode: "110001", StateCode: "DL", State: "Delhi", City: "New Delhi"},
		},
		{
			name:    "state code at end of string",
			address: "Survey 12, Hyderabad TG",
			want:    Address{StateCode: "TG", State: "Telangana", City: "Hyderabad"},
		},
		{
			name:    "no state code means no city",
			address: "45 Park Street Kolkata 700016",
			want:    Address{PinCode: "700016"},
		},
		{
			name:    "code embedded in word is ignored",
			address: "KARAMANGALA Layout 560034",
			want:    Address{PinCode: "560034"},
		},
		{
			name:    "street token directly before code",
			address: "5th Cross Road KA 560001",
			want:    Address{PinCode: "560001", StateCode: "KA", State: "Karnataka"},
		},
		{
			name:    "empty",
			address: "",
			want:    Address{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAddress(tt.address))
		})
	}
}

func TestStateName(t *testing.T) {
	assert.Equal(t, "Karnataka", StateName("ka"))
	assert.Equal(t, "Chhattisgarh", StateName("CT"))
	assert.Equal(t, "", StateName("ZZ"))
}

func TestClassifyEntityType(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"U72900KA2015PTC082988", EntityPrivateLimited},
		{"L27100MH1999PLC123456", EntityPublicLimited},
		{"u72900ka2015ptc082988", EntityPrivateLimited},
		{"AAB-1234", EntityLLP},
		{"AAC-9999", EntityLLP},
		{"F01234", EntityForeign},
		{"X12345678", EntityOther},
		{"U72", models.Unknown},
		{"", models.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyEntityType(tt.code))
		})
	}
}
