package extract

import (
	"strings"

	"github.com/basketdata/aisle-crawler/internal/retailer"
)

// MaxBreadcrumbDepth caps the canonical trail length.
const MaxBreadcrumbDepth = 6

// Normalize cleans a raw breadcrumb trail into its canonical form:
// trimmed, category-like, free of the retailer's own name and of
// navigation chrome, deduplicated, and at most six levels deep. "Home"
// survives only as the first element. Normalizing an already normalized
// trail is the identity.
func Normalize(retailerID string, raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{})

	for i, item := range raw {
		item = cleanText(item)
		if item == "" {
			continue
		}
		lower := strings.ToLower(item)

		if lower == "home" {
			// "Home" is meaningful only as the very first element
			if i == 0 && len(out) == 0 {
				if _, dup := seen[lower]; !dup {
					out = append(out, item)
					seen[lower] = struct{}{}
				}
			}
			continue
		}
		if isNavToken(item) {
			continue
		}
		if !isCategoryLike(item) {
			continue
		}
		if retailer.IsRetailerName(retailerID, item) {
			continue
		}
		if containsRetailerName(retailerID, lower) && len(out) > 0 {
			// a leading "Tesco Groceries"-style crumb is tolerable, a
			// mid-trail one is navigation noise
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		out = append(out, item)
		seen[lower] = struct{}{}
	}

	if len(out) > MaxBreadcrumbDepth {
		out = out[:MaxBreadcrumbDepth]
	}
	return out
}

// containsRetailerName reports whether lower contains the retailer's
// display name as a substring.
func containsRetailerName(retailerID, lower string) bool {
	p := retailer.Lookup(retailerID)
	name := strings.ToLower(p.DisplayName)
	if name != "" && strings.Contains(lower, name) {
		return true
	}
	return strings.Contains(lower, retailerID)
}

// JoinAisle renders a trail for the output sink.
func JoinAisle(crumbs []string) string {
	return strings.Join(crumbs, " > ")
}
