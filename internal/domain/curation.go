package domain

import "strings"

// Curation is the hand-maintained configuration that corrects station drift
// between dataset vintages. It is read-only once built and safe to share
// between concurrent runs.
type Curation struct {
	// Renames maps an old station name to its current name.
	Renames map[string]string
	// ExcludedPrefixes lists name prefixes of non-public service stations.
	ExcludedPrefixes []string
}

// Excluded reports whether name starts with one of the excluded prefixes.
// The match is case-sensitive and runs on the raw, untrimmed name.
func (c Curation) Excluded(name string) bool {
	for _, p := range c.ExcludedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
