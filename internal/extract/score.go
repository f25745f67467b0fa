package extract

import (
	"strings"

	"github.com/basketdata/aisle-crawler/internal/retailer"
)

// ScoreThreshold is the dispatcher's early-stop cutoff.
const ScoreThreshold = 50

// Token families, most specific first. The strongest single match
// across the trail contributes one tiered bonus.
var specificProductTokens = []string{
	"milk", "cheese", "bread", "eggs", "butter", "yogurt", "yoghurt",
	"chicken", "beef", "pork", "lamb", "fish", "salmon", "pasta", "rice",
	"cereal", "biscuits", "crisps", "chocolate", "coffee", "tea", "juice",
	"apples", "bananas", "potatoes", "tomatoes", "dog food", "cat food",
	"toothpaste", "shampoo",
}

var foodCategoryTokens = []string{
	"dairy", "bakery", "fresh", "frozen", "meat", "poultry", "produce",
	"fruit", "vegetables", "veg", "drinks", "beverages", "snacks",
	"pantry", "cupboard", "deli", "seafood", "food",
}

var otherFamilyTokens = []string{
	"household", "cleaning", "laundry", "health", "beauty", "make up",
	"makeup", "skin care", "skincare", "toiletries", "baby", "pet", "pets",
	"cosmetics", "fragrance", "hair", "personal care", "eye", "bathroom",
	"kitchen", "wine", "spirits", "beer",
}

// promoTokens tank a trail that swallowed a promotion banner.
var promoTokens = []string{
	"fill your freezer", "big savings", "organic september", "price promise",
	"coupons", "top offers", "wine sale", "half price",
}

// hierarchyPairs is the curated general-to-specific progression table.
// Matching is by token containment on adjacent items.
var hierarchyPairs = [][2]string{
	{"home", "fresh"},
	{"home", "food"},
	{"fresh", "dairy"},
	{"food", "dairy"},
	{"dairy", "milk"},
	{"dairy", "cheese"},
	{"bakery", "bread"},
	{"meat", "chicken"},
	{"meat", "beef"},
	{"frozen", "ice cream"},
	{"drinks", "juice"},
	{"household", "cleaning"},
	{"food", "cupboard"},
}

// perfectPatterns are full-trail fragments that mark a textbook
// hierarchy.
var perfectPatterns = []string{
	"home > fresh",
	"food > dairy",
	"fresh food > dairy",
	"dairy > milk",
	"bakery > bread",
	"household > cleaning",
}

// Score rates a normalized trail from 0 to 100. It is a pure function
// of (breadcrumbs, retailerID, url); the dispatcher stops early at
// ScoreThreshold.
func Score(crumbs []string, retailerID, rawURL string) int {
	if len(crumbs) == 0 {
		return 0
	}
	score := 50

	n := len(crumbs)
	switch {
	case n >= 3 && n <= 6:
		score += 25
	case n >= 2 && n <= 7:
		score += 15
	}
	if n > 8 {
		score -= 20
	}

	score += bestFamilyBonus(crumbs)

	for i, item := range crumbs {
		lower := strings.ToLower(item)
		for _, promo := range promoTokens {
			if strings.Contains(lower, promo) {
				score -= 40
			}
		}
		if isNavToken(item) {
			score -= 10
		}
		if i > 0 && retailer.IsRetailerName(retailerID, item) {
			score -= 15
		}
	}

	switch n {
	case 6:
		score += 15
	case 5:
		score += 20
	case 4:
		score += 10
	}

	score += progressionBonus(crumbs)

	joined := strings.ToLower(JoinAisle(crumbs))
	for _, pattern := range perfectPatterns {
		if strings.Contains(joined, pattern) {
			score += 25
			break
		}
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// bestFamilyBonus returns the strongest single token-family match
// across the trail: specific product +20, food category +15, any other
// family +10.
func bestFamilyBonus(crumbs []string) int {
	best := 0
	for _, item := range crumbs {
		lower := strings.ToLower(item)
		switch {
		case containsAny(lower, specificProductTokens):
			return 20
		case containsAny(lower, foodCategoryTokens):
			if best < 15 {
				best = 15
			}
		case containsAny(lower, otherFamilyTokens):
			if best < 10 {
				best = 10
			}
		}
	}
	return best
}

// progressionBonus awards +10 per adjacent general-to-specific pair,
// capped at +30.
func progressionBonus(crumbs []string) int {
	bonus := 0
	for i := 0; i+1 < len(crumbs); i++ {
		cur := strings.ToLower(crumbs[i])
		next := strings.ToLower(crumbs[i+1])
		for _, pair := range hierarchyPairs {
			if strings.Contains(cur, pair[0]) && strings.Contains(next, pair[1]) {
				bonus += 10
				break
			}
		}
		if bonus >= 30 {
			return 30
		}
	}
	return bonus
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
