// Package analysis finds recurring low-confidence extraction patterns and ranks fixes for them
package analysis

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/amirphl/quote-core/utils"
)

// Bucket is a confidence band of failed extractions
type Bucket string

const (
	BucketVeryLow Bucket = "very_low"
	BucketLow     Bucket = "low"
	BucketMedium  Bucket = "medium"
)

func (b Bucket) order() int {
	switch b {
	case BucketVeryLow:
		return 0
	case BucketLow:
		return 1
	default:
		return 2
	}
}

// BucketFor returns the failure bucket of a confidence; false means it is not a failure
func BucketFor(confidence float64) (Bucket, bool) {
	switch {
	case math.IsNaN(confidence) || confidence < 0.5:
		return BucketVeryLow, true
	case confidence < 0.7:
		return BucketLow, true
	case confidence < utils.FailureConfidenceCeiling:
		return BucketMedium, true
	default:
		return "", false
	}
}

// Severity ranks how much a pattern hurts extraction quality
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities from LOW (0) to CRITICAL (3)
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// ParseSeverity validates a severity name
func ParseSeverity(s string) (Severity, error) {
	switch v := Severity(strings.ToUpper(s)); v {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return v, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// SeverityFor maps a pattern score, count x (1 - average confidence), to a severity
func SeverityFor(score float64) Severity {
	switch {
	case score >= 20:
		return SeverityCritical
	case score >= 10:
		return SeverityHigh
	case score >= 4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Extraction is one observed field extraction
type Extraction struct {
	TenantID    string    `json:"tenant_id"`
	DocumentID  string    `json:"document_id"`
	FieldName   string    `json:"field_name"`
	RawValue    string    `json:"raw_value"`
	Confidence  float64   `json:"confidence"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Window is a half-open time range [Start, End). A zero bound is open.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies in the window
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

// Group aggregates failures of one field in one bucket
type Group struct {
	FieldName         string        `json:"field_name"`
	Bucket            Bucket        `json:"bucket"`
	Count             int           `json:"count"`
	AverageConfidence float64       `json:"average_confidence"`
	FirstSeen         time.Time     `json:"first_seen"`
	LastSeen          time.Time     `json:"last_seen"`
	Cause             Cause         `json:"cause"`
	CauseVotes        map[Cause]int `json:"cause_votes"`
	Score             float64       `json:"score"`
	Severity          Severity      `json:"severity"`
	FixCategory       FixCategory   `json:"fix_category"`
}

// Recommendation is a ranked remediation suggestion
type Recommendation struct {
	Rank                int         `json:"rank"`
	FieldName           string      `json:"field_name"`
	Bucket              Bucket      `json:"bucket"`
	Severity            Severity    `json:"severity"`
	Score               float64     `json:"score"`
	AffectedExtractions int         `json:"affected_extractions"`
	Cause               Cause       `json:"cause"`
	FixCategory         FixCategory `json:"fix_category"`
	Description         string      `json:"description"`
}

// Report is the result of one analysis pass
type Report struct {
	Window           Window           `json:"window"`
	TotalExtractions int              `json:"total_extractions"`
	FailureCount     int              `json:"failure_count"`
	Groups           []Group          `json:"groups"`
	Recommendations  []Recommendation `json:"recommendations"`
}

type groupKey struct {
	field  string
	bucket Bucket
}

type accumulator struct {
	count     int
	sum       float64
	firstSeen time.Time
	lastSeen  time.Time
	votes     map[Cause]int
}

// Analyze groups failed extractions inside window and ranks recommendations.
// It never modifies results.
func Analyze(results []Extraction, window Window) Report {
	acc := make(map[groupKey]*accumulator)
	report := Report{Window: window, Groups: []Group{}, Recommendations: []Recommendation{}}

	for _, r := range results {
		if !window.Contains(r.ExtractedAt) {
			continue
		}
		report.TotalExtractions++
		bucket, failed := BucketFor(r.Confidence)
		if !failed {
			continue
		}
		report.FailureCount++

		key := groupKey{field: r.FieldName, bucket: bucket}
		a := acc[key]
		if a == nil {
			a = &accumulator{firstSeen: r.ExtractedAt, lastSeen: r.ExtractedAt, votes: make(map[Cause]int)}
			acc[key] = a
		}
		a.count++
		if !math.IsNaN(r.Confidence) {
			a.sum += r.Confidence
		}
		if r.ExtractedAt.Before(a.firstSeen) {
			a.firstSeen = r.ExtractedAt
		}
		if r.ExtractedAt.After(a.lastSeen) {
			a.lastSeen = r.ExtractedAt
		}
		a.votes[InferCause(r.FieldName, r.RawValue)]++
	}

	for key, a := range acc {
		avg := a.sum / float64(a.count)
		score := float64(a.count) * (1 - avg)
		cause := majorityCause(a.votes)
		report.Groups = append(report.Groups, Group{
			FieldName:         key.field,
			Bucket:            key.bucket,
			Count:             a.count,
			AverageConfidence: avg,
			FirstSeen:         a.firstSeen,
			LastSeen:          a.lastSeen,
			Cause:             cause,
			CauseVotes:        a.votes,
			Score:             score,
			Severity:          SeverityFor(score),
			FixCategory:       cause.FixCategory(),
		})
	}
	slices.SortFunc(report.Groups, func(x, y Group) int {
		if c := strings.Compare(x.FieldName, y.FieldName); c != 0 {
			return c
		}
		return cmp.Compare(x.Bucket.order(), y.Bucket.order())
	})

	ranked := slices.Clone(report.Groups)
	slices.SortFunc(ranked, compareForRanking)
	for i, g := range ranked {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Rank:                i + 1,
			FieldName:           g.FieldName,
			Bucket:              g.Bucket,
			Severity:            g.Severity,
			Score:               g.Score,
			AffectedExtractions: g.Count,
			Cause:               g.Cause,
			FixCategory:         g.FixCategory,
			Description:         describe(g),
		})
	}
	return report
}

// compareForRanking orders by severity, score, affected count, then field and bucket
func compareForRanking(x, y Group) int {
	if c := cmp.Compare(y.Severity.Rank(), x.Severity.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(y.Score, x.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(y.Count, x.Count); c != 0 {
		return c
	}
	if c := strings.Compare(x.FieldName, y.FieldName); c != 0 {
		return c
	}
	return cmp.Compare(x.Bucket.order(), y.Bucket.order())
}

// majorityCause picks the most frequent cause, breaking ties by name
func majorityCause(votes map[Cause]int) Cause {
	best := CauseLowOCRQuality
	bestCount := 0
	for c, n := range votes {
		if n > bestCount || (n == bestCount && c < best) {
			best, bestCount = c, n
		}
	}
	return best
}

func describe(g Group) string {
	return fmt.Sprintf("%s: %d extractions in bucket %s (avg confidence %.2f), likely %s; suggested fix %s",
		g.FieldName, g.Count, g.Bucket, g.AverageConfidence, g.Cause, g.FixCategory)
}
