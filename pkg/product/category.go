package product

import "strings"

// Category is a tag from the fixed product vocabulary.
type Category string

const (
	CategoryCoding     Category = "coding"
	CategoryVoice      Category = "voice"
	CategoryFinance    Category = "finance"
	CategoryImage      Category = "image"
	CategoryVideo      Category = "video"
	CategoryWriting    Category = "writing"
	CategoryHealthcare Category = "healthcare"
	CategoryEducation  Category = "education"
	CategoryHardware   Category = "hardware"
	CategoryOther      Category = "other"
)

// AllCategories returns the vocabulary in display order.
func AllCategories() []Category {
	return []Category{
		CategoryCoding, CategoryVoice, CategoryFinance, CategoryImage, CategoryVideo,
		CategoryWriting, CategoryHealthcare, CategoryEducation, CategoryHardware, CategoryOther,
	}
}

var categoryAliases = map[string]Category{
	"code":      CategoryCoding,
	"developer": CategoryCoding,
	"audio":     CategoryVoice,
	"speech":    CategoryVoice,
	"fintech":   CategoryFinance,
	"design":    CategoryImage,
	"health":    CategoryHealthcare,
	"medical":   CategoryHealthcare,
	"edu":       CategoryEducation,
	"content":   CategoryWriting,
	"robotics":  CategoryHardware,
	"device":    CategoryHardware,
	"wearable":  CategoryHardware,
}

// ParseCategory maps a free-form tag onto the vocabulary.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range AllCategories() {
		if string(c) == s {
			return c, true
		}
	}
	c, ok := categoryAliases[s]
	return c, ok
}

// NormalizeCategories folds unknown tags into "other" and drops duplicates,
// keeping first-seen order.
func NormalizeCategories(in []Category) []Category {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[Category]bool, len(in))
	out := make([]Category, 0, len(in))
	for _, raw := range in {
		c, ok := ParseCategory(string(raw))
		if !ok {
			c = CategoryOther
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// CategoriesOverlap reports whether any of want is in have (OR semantics).
func CategoriesOverlap(have, want []Category) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
