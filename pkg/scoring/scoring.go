// Package scoring converts schema-validated evidence into per-category
// points, a total, and a classification bucket. All arithmetic is decimal
// so classification boundaries never flap from floating-point rounding.
package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/genomecurate/curia/pkg/schema"
)

// Category declares how one scoring category accumulates points.
// Source is a dot-path into the evidence: a numeric value contributes
// directly, an array contributes per entry. For array sources, PointsKey
// names the per-entry point value; entries without it contribute
// DefaultPoints. Weight multiplies the raw sum and Max caps the weighted
// result (zero means uncapped).
type Category struct {
	Name          string          `json:"name"`
	Source        string          `json:"source"`
	PointsKey     string          `json:"points_key,omitempty"`
	DefaultPoints decimal.Decimal `json:"default_points"`
	Weight        decimal.Decimal `json:"weight"`
	Max           decimal.Decimal `json:"max"`
}

// Threshold maps a minimum total to a classification. Thresholds are
// scanned in declared order; authors list them highest minimum first.
type Threshold struct {
	Min            decimal.Decimal `json:"min"`
	Classification string          `json:"classification"`
}

// Config is a schema's scoring configuration.
type Config struct {
	Categories []Category  `json:"categories"`
	Thresholds []Threshold `json:"thresholds"`
	NoEvidence string      `json:"no_evidence"`
}

// Result holds the computed scores for one evidence document.
type Result struct {
	Categories     map[string]decimal.Decimal `json:"categories"`
	Total          decimal.Decimal            `json:"total"`
	Classification string                     `json:"classification"`
}

// Score computes capped category scores, the total, and the classification
// for an evidence document. It is pure: the same evidence always yields the
// same result, and array entry order does not affect sums.
func Score(evidence map[string]any, cfg Config) Result {
	categories := make(map[string]decimal.Decimal, len(cfg.Categories))
	total := decimal.Zero
	contributed := false

	for _, cat := range cfg.Categories {
		raw, found := categoryPoints(evidence, cat)
		if found {
			contributed = true
		}

		weighted := raw.Mul(weightOf(cat))
		if cat.Max.Sign() > 0 && weighted.GreaterThan(cat.Max) {
			weighted = cat.Max
		}

		categories[cat.Name] = weighted
		total = total.Add(weighted)
	}

	return Result{
		Categories:     categories,
		Total:          total,
		Classification: classify(cfg, total, contributed),
	}
}

func categoryPoints(evidence map[string]any, cat Category) (decimal.Decimal, bool) {
	value, ok := schema.Lookup(evidence, cat.Source)
	if !ok || value == nil {
		return decimal.Zero, false
	}

	switch v := value.(type) {
	case []any:
		if len(v) == 0 {
			return decimal.Zero, false
		}
		sum := decimal.Zero
		for _, entry := range v {
			sum = sum.Add(entryPoints(entry, cat))
		}
		return sum, true
	default:
		if d, ok := toDecimal(v); ok {
			return d, true
		}
		return decimal.Zero, false
	}
}

func entryPoints(entry any, cat Category) decimal.Decimal {
	row, ok := entry.(map[string]any)
	if !ok || cat.PointsKey == "" {
		return cat.DefaultPoints
	}

	value, ok := row[cat.PointsKey]
	if !ok {
		return cat.DefaultPoints
	}

	if d, ok := toDecimal(value); ok {
		return d
	}
	return cat.DefaultPoints
}

func classify(cfg Config, total decimal.Decimal, contributed bool) string {
	if !contributed {
		return cfg.NoEvidence
	}

	for _, t := range cfg.Thresholds {
		if total.GreaterThanOrEqual(t.Min) {
			return t.Classification
		}
	}

	return cfg.NoEvidence
}

func weightOf(cat Category) decimal.Decimal {
	if cat.Weight.Sign() == 0 {
		return decimal.NewFromInt(1)
	}
	return cat.Weight
}

func toDecimal(value any) (decimal.Decimal, bool) {
	switch n := value.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	}
	return decimal.Zero, false
}
