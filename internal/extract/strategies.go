package extract

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/basketdata/aisle-crawler/internal/retailer"
)

// Context carries the inputs every strategy can draw on: the parsed
// document, the raw body for script scans, the URL, and the profile.
type Context struct {
	Doc      *goquery.Document
	Body     []byte
	URL      string
	Retailer retailer.Profile
}

// Strategy is one way of pulling breadcrumbs out of a page.
type Strategy struct {
	Tag string
	Run func(c Context) []string
}

// ---- JSON-LD ----

// ldNode is a loosely-typed JSON-LD object.
type ldNode map[string]any

func jsonLDStrategy() Strategy {
	return Strategy{Tag: "jsonld", Run: runJSONLD}
}

func runJSONLD(c Context) []string {
	var found []string
	c.Doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, node := range parseLDNodes(s.Text()) {
			if crumbs := crumbsFromLDNode(node); len(crumbs) > 0 {
				found = crumbs
				return false
			}
		}
		return true
	})
	return found
}

// parseLDNodes tolerates a single object, an array, and @graph wrappers.
func parseLDNodes(raw string) []ldNode {
	raw = strings.TrimSpace(raw)
	var out []ldNode

	var single ldNode
	if err := json.Unmarshal([]byte(raw), &single); err == nil {
		out = append(out, single)
		if graph, ok := single["@graph"].([]any); ok {
			for _, g := range graph {
				if node, ok := g.(map[string]any); ok {
					out = append(out, ldNode(node))
				}
			}
		}
		return out
	}

	var list []any
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		for _, item := range list {
			if node, ok := item.(map[string]any); ok {
				out = append(out, ldNode(node))
			}
		}
	}
	return out
}

func crumbsFromLDNode(node ldNode) []string {
	switch nodeType(node) {
	case "BreadcrumbList":
		return crumbsFromItemList(node["itemListElement"])
	case "Product":
		if crumb, ok := node["breadcrumb"].(map[string]any); ok {
			if crumbs := crumbsFromItemList(crumb["itemListElement"]); len(crumbs) > 0 {
				return crumbs
			}
		}
		if crumb, ok := node["breadcrumb"].(string); ok {
			return splitDelimited(crumb)
		}
		if category, ok := node["category"].(string); ok {
			return splitDelimited(category)
		}
	}
	return nil
}

func nodeType(node ldNode) string {
	switch t := node["@type"].(type) {
	case string:
		return t
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// crumbsFromItemList walks itemListElement in position order, taking
// name or item.name per element.
func crumbsFromItemList(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	type positioned struct {
		pos  float64
		name string
	}
	var entries []positioned
	for i, it := range items {
		node, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name, _ := node["name"].(string)
		if name == "" {
			if inner, ok := node["item"].(map[string]any); ok {
				name, _ = inner["name"].(string)
			}
		}
		name = cleanText(name)
		if name == "" {
			continue
		}
		pos, ok := node["position"].(float64)
		if !ok {
			pos = float64(i)
		}
		entries = append(entries, positioned{pos: pos, name: name})
	}
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].pos > entries[j].pos; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.name)
	}
	return out
}

// ---- Microdata ----

func microdataStrategy() Strategy {
	return Strategy{Tag: "microdata", Run: func(c Context) []string {
		var out []string
		c.Doc.Find(`[itemtype*="BreadcrumbList"]`).Find(`[itemprop="name"]`).Each(func(_ int, s *goquery.Selection) {
			if t := cleanText(s.Text()); t != "" {
				out = append(out, t)
			}
		})
		return out
	}}
}

// ---- DOM selectors ----

// defaultBreadcrumbSelectors cover the common markup shapes.
var defaultBreadcrumbSelectors = []string{
	`nav[aria-label*="readcrumb"] a`,
	`nav[aria-label*="readcrumb"] li`,
	`.breadcrumb a`,
	`.breadcrumbs a`,
	`ol.breadcrumb li a`,
	`[data-testid*="breadcrumb"] a`,
	`[class*="breadcrumb"] a`,
}

// domStrategy tries each selector in turn and keeps the first that
// yields at least two category-like elements.
func domStrategy(extraSelectors ...string) Strategy {
	selectors := append(append([]string(nil), extraSelectors...), defaultBreadcrumbSelectors...)
	return Strategy{Tag: "dom", Run: func(c Context) []string {
		for _, sel := range selectors {
			var out []string
			c.Doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
				t := cleanText(s.Text())
				if t == "" || !isCategoryLike(t) && !strings.EqualFold(t, "home") {
					return
				}
				out = append(out, t)
			})
			if len(out) >= 2 {
				return out
			}
		}
		return nil
	}}
}

// ---- Embedded JS ----

var (
	jsBreadcrumbArray = regexp.MustCompile(`"breadcrumbs?"\s*:\s*(\[[^\]]*\])`)
	jsCategoryName    = regexp.MustCompile(`"categoryName"\s*:\s*"((?:[^"\\]|\\.)+)"`)
	jsCategoryPath    = regexp.MustCompile(`"categoryPath"\s*:\s*"((?:[^"\\]|\\.)+)"`)
	jsCategory        = regexp.MustCompile(`"category"\s*:\s*"((?:[^"\\]|\\.)+)"`)
)

func embeddedJSStrategy() Strategy {
	return Strategy{Tag: "js", Run: func(c Context) []string {
		body := string(c.Body)
		if m := jsBreadcrumbArray.FindStringSubmatch(body); m != nil {
			if crumbs := parseJSArray(m[1]); len(crumbs) > 0 {
				return crumbs
			}
		}
		for _, re := range []*regexp.Regexp{jsCategoryPath, jsCategoryName, jsCategory} {
			if m := re.FindStringSubmatch(body); m != nil {
				value := unescapeJSON(m[1])
				if crumbs := splitDelimited(value); len(crumbs) > 0 {
					return crumbs
				}
			}
		}
		return nil
	}}
}

// parseJSArray accepts a JSON array of strings or of objects with
// name-like fields.
func parseJSArray(raw string) []string {
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	var out []string
	for _, it := range items {
		switch v := it.(type) {
		case string:
			if t := cleanText(v); t != "" {
				out = append(out, t)
			}
		case map[string]any:
			if name := nameLikeField(v); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func nameLikeField(node map[string]any) string {
	for _, key := range []string{"name", "label", "title", "text", "displayName"} {
		if s, ok := node[key].(string); ok {
			if t := cleanText(s); t != "" {
				return t
			}
		}
	}
	return ""
}

func unescapeJSON(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}

// ---- Window state ----

var windowStateMarkers = []string{
	"window.__INITIAL_STATE__",
	"window.__PRELOADED_STATE__",
	"__NEXT_DATA__",
}

// breadcrumbKeys are the state keys worth descending into.
var breadcrumbKeys = map[string]struct{}{
	"breadcrumbs":  {},
	"breadcrumb":   {},
	"categories":   {},
	"category":     {},
	"hierarchy":    {},
	"categoryPath": {},
}

func windowStateStrategy() Strategy {
	return Strategy{Tag: "window_state", Run: func(c Context) []string {
		body := string(c.Body)
		for _, marker := range windowStateMarkers {
			idx := strings.Index(body, marker)
			if idx < 0 {
				continue
			}
			blob := balancedJSON(body[idx:])
			if blob == "" {
				continue
			}
			var state any
			if err := json.Unmarshal([]byte(blob), &state); err != nil {
				continue
			}
			if crumbs := searchState(state, 0); len(crumbs) > 0 {
				return crumbs
			}
		}
		return nil
	}}
}

// balancedJSON returns the first balanced {...} object after the
// marker, respecting strings and escapes.
func balancedJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// searchState walks the decoded state looking for breadcrumb-shaped
// values under known keys.
func searchState(node any, depth int) []string {
	if depth > 12 {
		return nil
	}
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			if _, ok := breadcrumbKeys[key]; ok {
				if crumbs := namesFromStateValue(child); len(crumbs) > 0 {
					return crumbs
				}
			}
		}
		for _, child := range v {
			if crumbs := searchState(child, depth+1); len(crumbs) > 0 {
				return crumbs
			}
		}
	case []any:
		for _, child := range v {
			if crumbs := searchState(child, depth+1); len(crumbs) > 0 {
				return crumbs
			}
		}
	}
	return nil
}

// namesFromStateValue converts a candidate state value into breadcrumb
// names: a delimited string, a string slice, or objects with name-like
// fields.
func namesFromStateValue(value any) []string {
	switch v := value.(type) {
	case string:
		if crumbs := splitDelimited(v); len(crumbs) > 1 {
			return crumbs
		}
		return nil
	case []any:
		var out []string
		for _, item := range v {
			switch it := item.(type) {
			case string:
				if t := cleanText(it); t != "" {
					out = append(out, t)
				}
			case map[string]any:
				if name := nameLikeField(it); name != "" {
					out = append(out, name)
				}
			}
		}
		if len(out) > 1 {
			return out
		}
		return nil
	}
	return nil
}

// ---- Meta tags ----

func metaStrategy() Strategy {
	return Strategy{Tag: "meta", Run: func(c Context) []string {
		var found []string
		c.Doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			key := firstAttr(s, "name", "property", "itemprop")
			lower := strings.ToLower(key)
			if !strings.Contains(lower, "breadcrumb") && !strings.Contains(lower, "category") {
				return true
			}
			content, _ := s.Attr("content")
			if crumbs := splitDelimited(content); len(crumbs) > 0 {
				found = crumbs
				return false
			}
			return true
		})
		return found
	}}
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := s.Attr(n); ok && v != "" {
			return v
		}
	}
	return ""
}

// ---- Title heuristic ----

// titleStrategy splits "Product | Category | Site" style titles and
// keeps validated intermediate segments.
func titleStrategy() Strategy {
	return Strategy{Tag: "title", Run: func(c Context) []string {
		title := cleanText(c.Doc.Find("title").First().Text())
		if title == "" {
			return nil
		}
		var parts []string
		switch {
		case strings.Contains(title, "|"):
			parts = strings.Split(title, "|")
		case strings.Contains(title, ":"):
			parts = strings.Split(title, ":")
		default:
			return nil
		}
		if len(parts) < 3 {
			return nil
		}
		// first segment is the product, last is the site sentinel
		var out []string
		for _, p := range parts[1 : len(parts)-1] {
			t := cleanText(p)
			if isCategoryLike(t) && !retailer.IsRetailerName(c.Retailer.ID, t) {
				out = append(out, t)
			}
		}
		return out
	}}
}

// ---- URL path inference ----

// fillerSegments never name a category.
var fillerSegments = map[string]struct{}{
	"p": {}, "product": {}, "products": {}, "pd": {}, "prd": {},
	"en": {}, "gb": {}, "uk": {}, "en-gb": {}, "en-us": {},
	"shop": {}, "groceries": {}, "webapp": {}, "wcs": {}, "stores": {},
	"servlet": {}, "browse": {}, "c": {}, "cat": {},
}

var numericSegment = regexp.MustCompile(`^\d+$`)
var trailingID = regexp.MustCompile(`-\d{4,}$`)

// urlPathStrategy infers categories from the URL path. It only runs for
// retailers whose URLs actually carry category structure; for everyone
// else the cascade must not include it.
func urlPathStrategy(rewrites map[string]string) Strategy {
	return Strategy{Tag: "url_path", Run: func(c Context) []string {
		u, err := url.Parse(c.URL)
		if err != nil {
			return nil
		}
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) < 2 {
			return nil
		}
		// last segment is the product slug
		segments = segments[:len(segments)-1]
		var out []string
		for _, seg := range segments {
			seg = strings.ToLower(seg)
			if seg == "" || numericSegment.MatchString(seg) {
				continue
			}
			if _, filler := fillerSegments[seg]; filler {
				continue
			}
			seg = trailingID.ReplaceAllString(seg, "")
			if rewritten, ok := rewrites[seg]; ok {
				out = append(out, rewritten)
				continue
			}
			name := titleCaseSlug(seg)
			if isCategoryLike(name) {
				out = append(out, name)
			}
		}
		return out
	}}
}

func titleCaseSlug(slug string) string {
	words := strings.Split(strings.ReplaceAll(slug, "_", "-"), "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		if w == "and" {
			words[i] = "&"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return cleanText(strings.Join(words, " "))
}
