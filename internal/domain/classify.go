package domain

import "fmt"

// Category is a duration bucket for an event.
type Category int

const (
	CategoryUnder30 Category = iota
	Category30To60
	Category60To120
	Category120To180
	CategoryOver180
)

var categoryLabels = [...]string{
	CategoryUnder30:  "<30min",
	Category30To60:   "30-60min",
	Category60To120:  "60-120min",
	Category120To180: "120-180min",
	CategoryOver180:  ">180min",
}

// Categories returns every category in ascending duration order.
func Categories() []Category {
	return []Category{CategoryUnder30, Category30To60, Category60To120, Category120To180, CategoryOver180}
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryLabels) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryLabels[c]
}

// ParseCategory maps a label such as "60-120min" back to its Category.
func ParseCategory(label string) (Category, error) {
	for i, l := range categoryLabels {
		if l == label {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", label)
}

func (c Category) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(categoryLabels) {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(categoryLabels[c]), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ClassificationPolicy selects how the 30 minute boundary is treated.
type ClassificationPolicy string

const (
	// PolicyLegacy leaves d == 30 outside every bounded range, so it falls
	// through to >180min. This matches historical reports.
	PolicyLegacy ClassificationPolicy = "legacy"

	// PolicyInclusive assigns d == 30 to 30-60min.
	PolicyInclusive ClassificationPolicy = "inclusive"
)

// ParseClassificationPolicy validates a policy name.
func ParseClassificationPolicy(s string) (ClassificationPolicy, error) {
	switch p := ClassificationPolicy(s); p {
	case PolicyLegacy, PolicyInclusive:
		return p, nil
	default:
		return "", fmt.Errorf("unknown classification policy %q (want %q or %q)", s, PolicyLegacy, PolicyInclusive)
	}
}

// Classify maps an event duration in minutes to its category.
//   - d < 30: <30min
//   - 30 < d <= 60: 30-60min (30 <= d under PolicyInclusive)
//   - 60 < d <= 120: 60-120min
//   - 120 < d <= 180: 120-180min
//   - anything else, including d == 30 under PolicyLegacy: >180min
func Classify(durationMinutes float64, policy ClassificationPolicy) Category {
	d := durationMinutes
	switch {
	case d < 30:
		return CategoryUnder30
	case d > 30 && d <= 60, d == 30 && policy == PolicyInclusive:
		return Category30To60
	case d > 60 && d <= 120:
		return Category60To120
	case d > 120 && d <= 180:
		return Category120To180
	default:
		return CategoryOver180
	}
}
