// Package extract turns fetched pages into normalized, scored category
// breadcrumbs. Shared strategies (JSON-LD, microdata, DOM, embedded JS,
// window state, meta, title, URL path) are composed into per-retailer
// cascades with a universal fallback.
package extract

import (
	"regexp"
	"strings"
)

// promoPatterns reject navigation chrome, promotions, and account links
// that breadcrumb selectors routinely sweep up.
var promoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\boffers?\b`),
	regexp.MustCompile(`(?i)\bdeals?\b`),
	regexp.MustCompile(`(?i)\bsave\b`),
	regexp.MustCompile(`(?i)%\s*off`),
	regexp.MustCompile(`(?i)half\s*price`),
	regexp.MustCompile(`(?i)\bdiscount\b`),
	regexp.MustCompile(`(?i)\bdelivery\b`),
	regexp.MustCompile(`(?i)\bpass\b`),
	regexp.MustCompile(`(?i)\baccount\b`),
	regexp.MustCompile(`(?i)\blog\s*in\b`),
	regexp.MustCompile(`(?i)\blogin\b`),
	regexp.MustCompile(`(?i)\bbasket\b`),
	regexp.MustCompile(`(?i)\bcheckout\b`),
	regexp.MustCompile(`(?i)\bsearch\b`),
	regexp.MustCompile(`(?i)\bmenu\b`),
	regexp.MustCompile(`(?i)\bback\b`),
	regexp.MustCompile(`(?i)\bprevious\b`),
	regexp.MustCompile(`(?i)free\s+delivery`),
	regexp.MustCompile(`(?i)click\s+and\s+collect`),
	regexp.MustCompile(`(?i)store\s+finder`),
	regexp.MustCompile(`(?i)\bmy\s+\w+`),
}

// navTokens are generic navigation labels that carry no category signal.
var navTokens = map[string]struct{}{
	"home":        {},
	"homepage":    {},
	"shop":        {},
	"browse":      {},
	"all":         {},
	"categories":  {},
	"departments": {},
	"groceries":   {},
}

var hasLetter = regexp.MustCompile(`[a-zA-Z]`)

// isCategoryLike reports whether text plausibly names a category level.
func isCategoryLike(text string) bool {
	t := strings.TrimSpace(text)
	if len(t) < 2 || len(t) > 100 {
		return false
	}
	if !hasLetter.MatchString(t) {
		return false
	}
	for _, p := range promoPatterns {
		if p.MatchString(t) {
			return false
		}
	}
	return true
}

// isNavToken reports whether text is a bare navigation label.
func isNavToken(text string) bool {
	_, ok := navTokens[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanText trims and collapses inner whitespace to single spaces.
func cleanText(text string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(text), " ")
}

// splitDelimited splits a category string on the common path delimiters.
func splitDelimited(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '>' || r == '/' || r == '|'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := cleanText(p); c != "" {
			out = append(out, c)
		}
	}
	return out
}
