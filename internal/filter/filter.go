// Package filter removes low-signal chunks (tables of contents, reference lists,
// fragments, repeats) from search results before answer synthesis.
package filter

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/lumina/internal/models"
)

// DefaultMarkers identify structural noise such as tables of contents and reference lists.
var DefaultMarkers = []string{"contents", "references", "further reading", "navigation"}

// Defaults applied by New to zero-valued options.
const (
	DefaultMinLength     = 80
	DefaultMinKept       = 2
	DefaultFallbackCount = 5
)

// Options configures a Filter.
type Options struct {
	// Markers are matched case-insensitively as substrings of the chunk text.
	Markers []string
	// MinLength drops chunks whose trimmed text is this many characters (runes) or fewer.
	MinLength int
	// MinKept is the minimum yield; below it the unfiltered head of the input is returned.
	MinKept int
	// FallbackCount is how many input results are returned when the yield is too low.
	FallbackCount int
}

// Filter applies noise, length and duplicate rules to result lists.
type Filter struct {
	markers       []string
	minLength     int
	minKept       int
	fallbackCount int
}

// New creates a filter, filling zero-valued options with defaults.
func New(opts Options) *Filter {
	markers := opts.Markers
	if markers == nil {
		markers = DefaultMarkers
	}
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}
	f := &Filter{
		markers:       lowered,
		minLength:     opts.MinLength,
		minKept:       opts.MinKept,
		fallbackCount: opts.FallbackCount,
	}
	if f.minLength == 0 {
		f.minLength = DefaultMinLength
	}
	if f.minKept == 0 {
		f.minKept = DefaultMinKept
	}
	if f.fallbackCount == 0 {
		f.fallbackCount = DefaultFallbackCount
	}
	return f
}

// Apply returns the kept results in input order. If fewer than MinKept survive,
// the first FallbackCount results of the input are returned unfiltered.
func (f *Filter) Apply(results []models.ScoredChunk) []models.ScoredChunk {
	kept := make([]models.ScoredChunk, 0, len(results))
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		text := strings.TrimSpace(r.Text)
		if f.isNoise(text) || utf8.RuneCountInString(text) <= f.minLength {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		kept = append(kept, r)
	}
	if len(kept) < f.minKept {
		n := min(f.fallbackCount, len(results))
		return append([]models.ScoredChunk(nil), results[:n]...)
	}
	return kept
}

func (f *Filter) isNoise(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range f.markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
