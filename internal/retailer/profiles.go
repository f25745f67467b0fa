package retailer

import "time"

// profiles is the compile-time retailer table. Delays and timeouts were
// tuned against live behavior; the browser and renderer toggles encode
// which defenses each site runs.
var profiles = map[string]Profile{
	"tesco": {
		ID:             "tesco",
		DisplayName:    "Tesco",
		PriorityRank:   0,
		DefaultDelay:   4 * time.Second,
		DefaultTimeout: 25 * time.Second,
		Homepage:       "https://www.tesco.com",
		WarmupPaths:    []string{"/", "/groceries/en-GB/"},
		Aliases:        []string{"tesco.com", "tesco groceries"},
	},
	"sainsburys": {
		ID:             "sainsburys",
		DisplayName:    "Sainsbury's",
		PriorityRank:   1,
		DefaultDelay:   3 * time.Second,
		DefaultTimeout: 25 * time.Second,
		Homepage:       "https://www.sainsburys.co.uk",
		Aliases:        []string{"sainsbury's"},
	},
	"asda": {
		ID:                   "asda",
		DisplayName:          "Asda",
		PriorityRank:         2,
		DefaultDelay:         4 * time.Second,
		DefaultTimeout:       30 * time.Second,
		NeedsBrowserFallback: true,
		Homepage:             "https://groceries.asda.com",
		WarmupPaths:          []string{"/", "/aisle/"},
		Aliases:              []string{"asda groceries"},
	},
	"morrisons": {
		ID:             "morrisons",
		DisplayName:    "Morrisons",
		PriorityRank:   3,
		DefaultDelay:   3 * time.Second,
		DefaultTimeout: 25 * time.Second,
		Homepage:       "https://groceries.morrisons.com",
		Aliases:        []string{"wm morrisons"},
	},
	"ocado": {
		ID:                     "ocado",
		DisplayName:            "Ocado",
		PriorityRank:           4,
		DefaultDelay:           6 * time.Second,
		DefaultTimeout:         40 * time.Second,
		NeedsBrowserFallback:   true,
		PreferExternalRenderer: true,
		Homepage:               "https://www.ocado.com",
		WarmupPaths:            []string{"/", "/browse/"},
		Aliases:                []string{"ocado.com"},
	},
	"waitrose": {
		ID:                   "waitrose",
		DisplayName:          "Waitrose",
		PriorityRank:         5,
		DefaultDelay:         4 * time.Second,
		DefaultTimeout:       30 * time.Second,
		NeedsBrowserFallback: true,
		Homepage:             "https://www.waitrose.com",
		WarmupPaths:          []string{"/", "/ecom/shop/browse/groceries"},
		Aliases:              []string{"waitrose & partners"},
	},
	"aldi": {
		ID:             "aldi",
		DisplayName:    "Aldi",
		PriorityRank:   6,
		DefaultDelay:   3 * time.Second,
		DefaultTimeout: 20 * time.Second,
		// Repeated chromedriver crashes on their storefront; keep to
		// the HTTP strategies.
		SkipBrowser: true,
		Homepage:    "https://groceries.aldi.co.uk",
	},
	"lidl": {
		ID:             "lidl",
		DisplayName:    "Lidl",
		PriorityRank:   7,
		DefaultDelay:   3 * time.Second,
		DefaultTimeout: 20 * time.Second,
		Homepage:       "https://www.lidl.co.uk",
	},
	"iceland": {
		ID:             "iceland",
		DisplayName:    "Iceland",
		PriorityRank:   8,
		DefaultDelay:   3 * time.Second,
		DefaultTimeout: 25 * time.Second,
		Homepage:       "https://www.iceland.co.uk",
		Aliases:        []string{"iceland foods"},
	},
	"coop": {
		ID:             "coop",
		DisplayName:    "Co-op",
		PriorityRank:   9,
		DefaultDelay:   3 * time.Second,
		DefaultTimeout: 20 * time.Second,
		Homepage:       "https://www.coop.co.uk",
		Aliases:        []string{"co-op", "the co-operative"},
	},
	"marksandspencer": {
		ID:             "marksandspencer",
		DisplayName:    "M&S",
		PriorityRank:   10,
		DefaultDelay:   4 * time.Second,
		DefaultTimeout: 25 * time.Second,
		Homepage:       "https://www.marksandspencer.com",
		Aliases:        []string{"m&s", "marks & spencer", "marks and spencer"},
	},
	"boots": {
		ID:                 "boots",
		DisplayName:        "Boots",
		PriorityRank:       11,
		DefaultDelay:       3 * time.Second,
		DefaultTimeout:     20 * time.Second,
		URLHasCategoryPath: true,
		Homepage:           "https://www.boots.com",
		Aliases:            []string{"boots.com"},
	},
	"superdrug": {
		ID:                 "superdrug",
		DisplayName:        "Superdrug",
		PriorityRank:       12,
		DefaultDelay:       3 * time.Second,
		DefaultTimeout:     20 * time.Second,
		URLHasCategoryPath: true,
		Homepage:           "https://www.superdrug.com",
	},
	"savers": {
		ID:                 "savers",
		DisplayName:        "Savers",
		PriorityRank:       13,
		DefaultDelay:       2 * time.Second,
		DefaultTimeout:     20 * time.Second,
		URLHasCategoryPath: true,
		Homepage:           "https://www.savers.co.uk",
	},
	"wilko": {
		ID:             "wilko",
		DisplayName:    "Wilko",
		PriorityRank:   14,
		DefaultDelay:   2 * time.Second,
		DefaultTimeout: 20 * time.Second,
		Homepage:       "https://www.wilko.com",
	},
	"poundland": {
		ID:                   "poundland",
		DisplayName:          "Poundland",
		PriorityRank:         15,
		DefaultDelay:         2 * time.Second,
		DefaultTimeout:       20 * time.Second,
		SkipExternalRenderer: true,
		Homepage:             "https://www.poundland.co.uk",
	},
	"amazon": {
		ID:             "amazon",
		DisplayName:    "Amazon",
		PriorityRank:   99,
		DefaultDelay:   5 * time.Second,
		DefaultTimeout: 30 * time.Second,
		Homepage:       "https://www.amazon.co.uk",
		Aliases:        []string{"amazon fresh"},
	},
}
