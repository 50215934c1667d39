package report

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category is a closed set of spending groups derived from descriptions.
type Category string

const (
	Restaurants Category = "restaurants"
	Groceries   Category = "groceries"
	Transport   Category = "transport"
	Coffee      Category = "coffee"
	Other       Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{Restaurants, Groceries, Transport, Coffee, Other}

var categoryInfo = map[Category]struct {
	label, color string
}{
	Restaurants: {"Restaurantes", "#8B5CF6"},
	Groceries:   {"Comida", "#3B82F6"},
	Transport:   {"Transporte", "#F97316"},
	Coffee:      {"Café", "#A855F7"},
	Other:       {"Otros", "#6B7281"},
}

func (c Category) Label() string {
	if info, ok := categoryInfo[c]; ok {
		return info.label
	}
	return categoryInfo[Other].label
}

// Color is the chart color used for the category.
func (c Category) Color() string {
	if info, ok := categoryInfo[c]; ok {
		return info.color
	}
	return categoryInfo[Other].color
}

// keyword rules, first match wins
var rules = []struct {
	category Category
	keywords []string
}{
	{Restaurants, []string{"cena", "restaurante"}},
	{Groceries, []string{"supermercado"}},
	{Transport, []string{"uber", "transporte"}},
	{Coffee, []string{"cafe"}},
}

// Classify assigns a category by keyword match on the description.
// Matching ignores case and accents, so "CAFÉ" and "cafe" are both Coffee.
func Classify(description string) Category {
	desc := fold(description)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(desc, kw) {
				return r.category
			}
		}
	}
	return Other
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
