// Package digest turns the flat summary feed into the date-grouped,
// impact-scored view the dashboard renders. Everything here is a pure
// function of (records, filters).
package digest

import (
	"sort"
	"strings"

	"competitoriq-engine/internal/domain"
)

type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// noChangeSentinel is the statement the diff pipeline emits for a snapshot
// with nothing to report. Compared case-insensitively everywhere.
const noChangeSentinel = "no changes detected"

// ClassifyImpact is a size-based proxy for change magnitude. The thresholds
// (strictly more than 4 → high, strictly more than 2 → medium) are part of
// the product contract; recorded fixtures depend on them.
func ClassifyImpact(summary []string) Impact {
	switch {
	case len(summary) == 0:
		return ImpactLow
	case len(summary) > 4:
		return ImpactHigh
	case len(summary) > 2:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// HasChanges reports whether at least one statement is non-empty and not
// the no-change sentinel.
func HasChanges(summary []string) bool {
	for _, s := range summary {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.EqualFold(s, noChangeSentinel) {
			return true
		}
	}
	return false
}

// DateKey reduces a record date to its YYYY-MM-DD bucket key. Empty when
// the record is undated.
func DateKey(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 10 {
		return ""
	}
	return date[:10]
}

type DateGroup struct {
	Date  string           `json:"date"`
	Items []domain.Summary `json:"items"`
}

// GroupByDate buckets records by day, newest bucket first. Undated records
// are dropped. Within a bucket the records keep their original order.
func GroupByDate(records []domain.Summary) []DateGroup {
	byDate := make(map[string][]domain.Summary)
	for _, r := range records {
		key := DateKey(r.Date)
		if key == "" {
			continue
		}
		byDate[key] = append(byDate[key], r)
	}

	keys := make([]string, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	// ISO date strings sort chronologically, so lexicographic descending
	// is newest-first.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	groups := make([]DateGroup, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, DateGroup{Date: k, Items: byDate[k]})
	}
	return groups
}

// Filters are applied conjunctively; each is optional.
type Filters struct {
	// From/To bound the date range inclusively. The range only applies
	// when both ends are set.
	From string `json:"from"`
	To   string `json:"to"`
	// Companies is the selected set; empty means no company filter.
	Companies []string `json:"companies"`
	// HideNoChanges drops records whose summary has nothing to report.
	HideNoChanges bool `json:"hideNoChanges"`
}

// Filter returns the passing subsequence in original order. Group after
// filtering, not before.
func Filter(records []domain.Summary, f Filters) []domain.Summary {
	var selected map[string]struct{}
	if len(f.Companies) > 0 {
		selected = make(map[string]struct{}, len(f.Companies))
		for _, c := range f.Companies {
			selected[c] = struct{}{}
		}
	}
	rangeActive := f.From != "" && f.To != ""

	out := make([]domain.Summary, 0, len(records))
	for _, r := range records {
		if rangeActive {
			key := DateKey(r.Date)
			if key == "" || key < f.From || key > f.To {
				continue
			}
		}
		if selected != nil {
			if _, ok := selected[r.Company]; !ok {
				continue
			}
		}
		if f.HideNoChanges && !HasChanges(r.Summary) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Companies lists the distinct company names across all records, sorted.
// It feeds the filter selector, so it looks at the unfiltered set.
func Companies(records []domain.Summary) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Company]; ok {
			continue
		}
		seen[r.Company] = struct{}{}
		out = append(out, r.Company)
	}
	sort.Strings(out)
	return out
}
