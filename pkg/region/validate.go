package region

import (
	"fmt"

	"github.com/elonfeng/aiscout/pkg/product"
)

// Issue levels.
const (
	LevelWarn = "WARN"
)

// Issue is a validation finding. It is reported, never auto-corrected.
type Issue struct {
	Level     string `json:"level"`
	ProductID string `json:"product_id,omitempty"`
	Name      string `json:"name"`
	Field     string `json:"field"`
	Current   string `json:"current"`
	Suggested string `json:"suggested"`
	Reason    string `json:"reason"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s=%q, inferred %q (%s)", i.Level, i.Name, i.Field, i.Current, i.Suggested, i.Reason)
}

// CheckRegion compares an explicit region with a fresh inference.
func CheckRegion(p *product.Product) (Issue, bool) {
	if p.Region == "" {
		return Issue{}, false
	}
	inferred, reason, ok := InferRegion(p.Website, p.Description, p.WhyMatters)
	if !ok {
		return Issue{}, false
	}
	if current, ok := Bucketize(p.Region); ok && current == inferred {
		return Issue{}, false
	}
	return Issue{
		Level:     LevelWarn,
		ProductID: p.ID,
		Name:      p.Name,
		Field:     "region",
		Current:   p.Region,
		Suggested: string(inferred),
		Reason:    reason,
	}, true
}

// Validate reports region mismatches across records.
func Validate(records []product.Product) []Issue {
	var issues []Issue
	for i := range records {
		if issue, ok := CheckRegion(&records[i]); ok {
			issues = append(issues, issue)
		}
	}
	return issues
}
