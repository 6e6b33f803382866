package extractor

import (
	"strings"

	"github.com/ternarybob/corpscan/internal/models"
)

// Entity types derived from the identity code
const (
	EntityPrivateLimited = "Private Limited"
	EntityPublicLimited  = "Public Limited"
	EntityLLP            = "LLP"
	EntityForeign        = "Foreign Company"
	EntityOther          = "Other"
)

type prefixRule struct {
	prefixes   []string
	entityType string
}

// entityRules are evaluated in order against the upper-cased code
var entityRules = []prefixRule{
	{[]string{"U"}, EntityPrivateLimited},
	{[]string{"L"}, EntityPublicLimited},
	{[]string{"AAA", "AAB", "AAC"}, EntityLLP},
	{[]string{"F"}, EntityForeign},
}

// ClassifyEntityType maps an identity code prefix to a legal form.
// Codes shorter than five characters are Unknown.
func ClassifyEntityType(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 5 {
		return models.Unknown
	}
	for _, rule := range entityRules {
		for _, p := range rule.prefixes {
			if strings.HasPrefix(code, p) {
				return rule.entityType
			}
		}
	}
	return EntityOther
}
