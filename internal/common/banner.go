package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner. Non-production environments
// are shown next to the version.
func PrintBanner(version string, config *Config) {
	if config != nil && config.Environment != "" && !config.IsProduction() {
		version += " [" + config.Environment + "]"
	}
	banner.PrintSimple("CorpScan", version)
}
