package extract

import (
	"github.com/basketdata/aisle-crawler/internal/retailer"
)

// healthBeautyRewrites expands compound URL slugs the title-caser would
// mangle. Shared by the health/beauty retailers whose URLs carry the
// full category path.
var healthBeautyRewrites = map[string]string{
	"cough-cold-flu":    "Cough, Cold & Flu",
	"make-up":           "Make Up",
	"skin-care":         "Skin Care",
	"skincare":          "Skin Care",
	"health-beauty":     "Health & Beauty",
	"health-pharmacy":   "Health & Pharmacy",
	"mother-baby":       "Mother & Baby",
	"toiletries":        "Toiletries",
	"electrical-health": "Electrical Health & Diagnostics",
	"fragrance":         "Fragrance",
	"mens":              "Men's",
	"womens":            "Women's",
}

// newRetailerExtractor prepends the retailer's tuned strategies onto
// the universal cascade.
func newRetailerExtractor(id string, primary ...Strategy) *Extractor {
	return &Extractor{
		id:         id,
		strategies: append(primary, universalStrategies(retailer.Lookup(id))...),
	}
}

// buildRegistry assembles the per-retailer extractor table. Each entry
// documents where that retailer actually keeps its breadcrumb.
func buildRegistry() map[string]*Extractor {
	return map[string]*Extractor{
		// Tesco serves a server-rendered BreadcrumbList; the DOM list is
		// a fallback for the cached app shell.
		"tesco": newRetailerExtractor("tesco",
			jsonLDStrategy(),
			domStrategy(`.breadcrumbs__list a`, `nav[data-auto="breadcrumbs"] a`),
		),
		"sainsburys": newRetailerExtractor("sainsburys",
			jsonLDStrategy(),
			domStrategy(`.breadcrumb__list a`, `[data-testid="breadcrumb-list"] a`),
			embeddedJSStrategy(),
		),
		// Asda is a client-rendered React app; the state blob is the
		// only reliable source.
		"asda": newRetailerExtractor("asda",
			windowStateStrategy(),
			embeddedJSStrategy(),
			domStrategy(`.breadcrumb-container a`),
		),
		"morrisons": newRetailerExtractor("morrisons",
			jsonLDStrategy(),
			domStrategy(`[data-test="breadcrumb"] a`, `.bop-breadcrumbs a`),
		),
		// Ocado keeps its trail in __INITIAL_STATE__ under
		// bop.details.data.bopData.breadcrumbs.
		"ocado": newRetailerExtractor("ocado",
			windowStateStrategy(),
			jsonLDStrategy(),
			domStrategy(`.bop-breadcrumbs a`),
		),
		"waitrose": newRetailerExtractor("waitrose",
			jsonLDStrategy(),
			domStrategy(`[data-testid="breadcrumbs"] a`),
			embeddedJSStrategy(),
		),
		"aldi": newRetailerExtractor("aldi",
			jsonLDStrategy(),
			domStrategy(`.category-breadcrumb a`),
			embeddedJSStrategy(),
		),
		"lidl": newRetailerExtractor("lidl",
			jsonLDStrategy(),
			metaStrategy(),
			domStrategy(`.s-breadcrumb a`),
		),
		"iceland": newRetailerExtractor("iceland",
			jsonLDStrategy(),
			microdataStrategy(),
			domStrategy(`.breadcrumb-element`),
		),
		"coop": newRetailerExtractor("coop",
			jsonLDStrategy(),
			domStrategy(`.coop-breadcrumb a`),
		),
		"marksandspencer": newRetailerExtractor("marksandspencer",
			jsonLDStrategy(),
			domStrategy(`.breadcrumb__item a`),
			embeddedJSStrategy(),
		),
		// Boots, Superdrug, and Savers carry the full category path in
		// their product URLs; infer from the URL first.
		"boots": newRetailerExtractor("boots",
			urlPathStrategy(healthBeautyRewrites),
			jsonLDStrategy(),
			domStrategy(`#breadcrumb a`),
		),
		"superdrug": newRetailerExtractor("superdrug",
			urlPathStrategy(healthBeautyRewrites),
			jsonLDStrategy(),
			domStrategy(`.breadcrumb-item a`),
		),
		"savers": newRetailerExtractor("savers",
			urlPathStrategy(healthBeautyRewrites),
			domStrategy(`.breadcrumb-item a`),
		),
		"wilko": newRetailerExtractor("wilko",
			jsonLDStrategy(),
			domStrategy(`.breadcrumbs a`),
		),
		"poundland": newRetailerExtractor("poundland",
			jsonLDStrategy(),
			metaStrategy(),
			domStrategy(`.breadcrumbs li a`),
		),
	}
}
