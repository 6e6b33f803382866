package extractor

import (
	"regexp"
	"strings"
)

// Address is the decomposition of a free-text registered address
type Address struct {
	PinCode   string
	StateCode string
	State     string
	City      string
}

type stateEntry struct {
	Code string
	Name string
}

// stateCodes is checked in order; the first code present as a separate token wins
var stateCodes = []stateEntry{
	{"MH", "Maharashtra"},
	{"DL", "Delhi"},
	{"KA", "Karnataka"},
	{"TN", "Tamil Nadu"},
	{"GJ", "Gujarat"},
	{"WB", "West Bengal"},
	{"UP", "Uttar Pradesh"},
	{"HR", "Haryana"},
	{"PB", "Punjab"},
	{"RJ", "Rajasthan"},
	{"MP", "Madhya Pradesh"},
	{"AP", "Andhra Pradesh"},
	{"TG", "Telangana"},
	{"KL", "Kerala"},
	{"OR", "Odisha"},
	{"BR", "Bihar"},
	{"AS", "Assam"},
	{"HP", "Himachal Pradesh"},
	{"UR", "Uttarakhand"},
	{"CH", "Chandigarh"},
	{"GA", "Goa"},
	{"JH", "Jharkhand"},
	{"CT", "Chhattisgarh"},
}

// StateName returns the state for a two-letter code, or "" when the code is not in the table
func StateName(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, s := range stateCodes {
		if s.Code == code {
			return s.Name
		}
	}
	return ""
}

var (
	pinPattern      = regexp.MustCompile(`\b(\d{6})\b`)
	cityWordPattern = regexp.MustCompile(`^[A-Z][a-z]+$`)
)

// streetTokens end a city run when walking backwards from the state code
var streetTokens = map[string]bool{
	"Road": true, "Street": true, "Marg": true, "Lane": true, "Nagar": true,
	"Floor": true, "Main": true, "Cross": true, "Block": true, "Sector": true,
	"Phase": true, "Layout": true, "Colony": true,
}

// ParseAddress extracts PIN code, state and city from an address.
// City is only derived once a state code has resolved.
func ParseAddress(address string) Address {
	var out Address
	address = cleanText(address)
	if address == "" {
		return out
	}

	if m := pinPattern.FindStringSubmatch(address); m != nil {
		out.PinCode = m[1]
	}

	tokens := strings.Fields(address)
	codeIndex := -1
	for _, s := range stateCodes {
		if idx := stateTokenIndex(tokens, s.Code); idx >= 0 {
			out.StateCode = s.Code
			out.State = s.Name
			codeIndex = idx
			break
		}
	}
	if codeIndex < 0 {
		return out
	}

	out.City = cityBefore(tokens, codeIndex)
	return out
}

// stateTokenIndex finds code as a whitespace-bounded token; a trailing comma counts as a boundary
func stateTokenIndex(tokens []string, code string) int {
	for i, tok := range tokens {
		if strings.TrimRight(tok, ",") == code {
			return i
		}
	}
	return -1
}

// cityBefore collects the run of capitalized words immediately preceding tokens[end]
func cityBefore(tokens []string, end int) string {
	var words []string
	for i := end - 1; i >= 0; i-- {
		word := strings.TrimRight(tokens[i], ",")
		if !cityWordPattern.MatchString(word) || streetTokens[word] {
			break
		}
		words = append([]string{word}, words...)
		// a comma after an earlier word separates it from the city
		if i > 0 && strings.HasSuffix(tokens[i-1], ",") {
			break
		}
	}
	return strings.Join(words, " ")
}
