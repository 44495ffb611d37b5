// Package stats derives the dashboard datasets from the report collection.
// Everything here is a pure function of its input: no I/O, no hidden state,
// same collection in, same tables out.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/urbanalert/pkg/models"
)

// UnknownNeighborhood is the bucket for reports without a neighborhood label
const UnknownNeighborhood = "unknown"

// NeighborhoodRisk is one row of the per-neighborhood risk table
type NeighborhoodRisk struct {
	Neighborhood string  `json:"neighborhood"`
	Count        int     `json:"count"`
	MeanSeverity float64 `json:"mean_severity"`
}

// CategoryCount is one bar of the category histogram
type CategoryCount struct {
	Category models.Category `json:"category"`
	Count    int             `json:"count"`
}

// SeverityBucket is one slice of the severity distribution chart
type SeverityBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Severity bucket labels: low is severity <=2, medium ==3, high >=4
const (
	BucketLow    = "baixa"
	BucketMedium = "média"
	BucketHigh   = "alta"
)

// KPIs are the dashboard headline numbers
type KPIs struct {
	Total       int    `json:"total"`
	Critical    int    `json:"critical"`
	AvgSeverity string `json:"avg_severity"`
}

// NeighborhoodRisks groups reports by neighborhood and computes count and
// mean severity per group, rounded to one decimal. Rows are sorted by mean
// severity descending; ties keep first-appearance order.
func NeighborhoodRisks(reports []models.Report) []NeighborhoodRisk {
	type acc struct {
		count int
		sum   int
	}
	totals := make(map[string]*acc)
	var order []string

	for _, r := range reports {
		name := r.Neighborhood
		if name == "" {
			name = UnknownNeighborhood
		}
		a, ok := totals[name]
		if !ok {
			a = &acc{}
			totals[name] = a
			order = append(order, name)
		}
		a.count++
		a.sum += r.Severity
	}

	rows := make([]NeighborhoodRisk, 0, len(order))
	for _, name := range order {
		a := totals[name]
		rows = append(rows, NeighborhoodRisk{
			Neighborhood: name,
			Count:        a.count,
			MeanSeverity: round1(float64(a.sum) / float64(a.count)),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].MeanSeverity > rows[j].MeanSeverity
	})

	return rows
}

// CategoryHistogram counts reports per category, sorted by count descending
// with ties in first-appearance order
func CategoryHistogram(reports []models.Report) []CategoryCount {
	counts := make(map[models.Category]int)
	var order []models.Category

	for _, r := range reports {
		if _, ok := counts[r.Category]; !ok {
			order = append(order, r.Category)
		}
		counts[r.Category]++
	}

	bars := make([]CategoryCount, 0, len(order))
	for _, c := range order {
		bars = append(bars, CategoryCount{Category: c, Count: counts[c]})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Count > bars[j].Count
	})

	return bars
}

// SeverityBuckets partitions reports into low/medium/high severity buckets.
// Empty buckets are omitted so chart output has no zero slices.
func SeverityBuckets(reports []models.Report) []SeverityBucket {
	var low, medium, high int
	for _, r := range reports {
		switch {
		case r.Severity <= 2:
			low++
		case r.Severity == 3:
			medium++
		default:
			high++
		}
	}

	buckets := make([]SeverityBucket, 0, 3)
	if low > 0 {
		buckets = append(buckets, SeverityBucket{Label: BucketLow, Count: low})
	}
	if medium > 0 {
		buckets = append(buckets, SeverityBucket{Label: BucketMedium, Count: medium})
	}
	if high > 0 {
		buckets = append(buckets, SeverityBucket{Label: BucketHigh, Count: high})
	}
	return buckets
}

// Summary computes the headline KPIs: total reports, critical reports
// (severity >=4), and mean severity formatted to one decimal ("0.0" when the
// collection is empty)
func Summary(reports []models.Report) KPIs {
	kpis := KPIs{AvgSeverity: "0.0"}
	if len(reports) == 0 {
		return kpis
	}

	sum := 0
	for _, r := range reports {
		kpis.Total++
		sum += r.Severity
		if r.Severity >= 4 {
			kpis.Critical++
		}
	}
	kpis.AvgSeverity = fmt.Sprintf("%.1f", float64(sum)/float64(len(reports)))
	return kpis
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
