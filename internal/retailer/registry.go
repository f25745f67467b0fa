// Package retailer holds the static retailer registry: alias normalization,
// per-retailer profiles, and the default priority order.
package retailer

import (
	"sort"
	"strings"
	"time"
)

// Profile is the immutable per-retailer configuration.
type Profile struct {
	ID                     string
	DisplayName            string
	PriorityRank           int
	DefaultDelay           time.Duration
	DefaultTimeout         time.Duration
	NeedsBrowserFallback   bool
	SkipBrowser            bool
	PreferExternalRenderer bool
	SkipExternalRenderer   bool
	// URLHasCategoryPath opts the retailer into URL path inference;
	// without it the strategy is disabled to avoid fabricated categories.
	URLHasCategoryPath bool
	// WarmupPaths are visited before the product page on strict hosts.
	WarmupPaths []string
	Homepage    string
	Aliases     []string
}

// aliasTable maps every known spelling to a canonical retailer id.
var aliasTable = map[string]string{
	"tesco":               "tesco",
	"tesco.com":           "tesco",
	"tesco groceries":     "tesco",
	"sainsburys":          "sainsburys",
	"sainsbury's":         "sainsburys",
	"sainsburys.co.uk":    "sainsburys",
	"asda":                "asda",
	"asda groceries":      "asda",
	"morrisons":           "morrisons",
	"wm morrisons":        "morrisons",
	"ocado":               "ocado",
	"ocado.com":           "ocado",
	"waitrose":            "waitrose",
	"waitrose & partners": "waitrose",
	"aldi":                "aldi",
	"lidl":                "lidl",
	"iceland":             "iceland",
	"iceland foods":       "iceland",
	"coop":                "coop",
	"co-op":               "coop",
	"the co-operative":    "coop",
	"marksandspencer":     "marksandspencer",
	"m&s":                 "marksandspencer",
	"marks & spencer":     "marksandspencer",
	"marks and spencer":   "marksandspencer",
	"boots":               "boots",
	"boots.com":           "boots",
	"superdrug":           "superdrug",
	"savers":              "savers",
	"wilko":               "wilko",
	"poundland":           "poundland",
	"amazon":              "amazon",
	"amazon fresh":        "amazon",
}

// priority is the default processing order; unlisted retailers sort last
// in stable order.
var priority = []string{
	"tesco",
	"sainsburys",
	"asda",
	"morrisons",
	"ocado",
	"waitrose",
	"aldi",
	"lidl",
	"iceland",
	"coop",
	"marksandspencer",
	"boots",
	"superdrug",
	"savers",
	"wilko",
	"poundland",
}

// ProblematicRetailers are skipped entirely by the dispatcher.
var ProblematicRetailers = map[string]struct{}{
	"amazon": {},
}

// StrictHost is the heavily-monitored retailer that gets the extra
// sliding-window cooling rule in the rate limiter.
const StrictHost = "ocado"

// Normalize maps a free-form retailer name onto its canonical id.
// Unknown names pass through lower-cased and whitespace-stripped.
func Normalize(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := aliasTable[key]; ok {
		return id
	}
	return strings.ReplaceAll(key, " ", "")
}

// Lookup returns the profile for a canonical retailer id. Unknown ids get
// a generic profile so the pipeline still processes them.
func Lookup(id string) Profile {
	if p, ok := profiles[id]; ok {
		return p
	}
	return Profile{
		ID:             id,
		DisplayName:    id,
		PriorityRank:   len(priority) + 1,
		DefaultDelay:   3 * time.Second,
		DefaultTimeout: 20 * time.Second,
	}
}

// Known reports whether id has a configured profile.
func Known(id string) bool {
	_, ok := profiles[id]
	return ok
}

// Rank returns the priority rank for id; unlisted ids sort last.
func Rank(id string) int {
	for i, p := range priority {
		if p == id {
			return i
		}
	}
	return len(priority)
}

// SortByPriority orders retailer ids by rank, stable for unlisted ids.
func SortByPriority(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool {
		return Rank(out[i]) < Rank(out[j])
	})
	return out
}

// IsRetailerName reports whether text names the retailer itself
// (display name or any alias, case-insensitive).
func IsRetailerName(id, text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return false
	}
	if needle == id {
		return true
	}
	p := Lookup(id)
	if strings.ToLower(p.DisplayName) == needle {
		return true
	}
	for alias, canonical := range aliasTable {
		if canonical == id && alias == needle {
			return true
		}
	}
	return false
}
