// Package rules implements the business-rule keyword engine: a read-only
// keyword → canned response table resolved by exact, approximate and
// edit-distance matching, plus the sources it is loaded from.
//
// A Matcher is immutable after construction and safe for concurrent use.
// Ties at every stage go to the keyword that was loaded first.
package rules

import (
	"github.com/agnivade/levenshtein"
	"github.com/pmezard/go-difflib/difflib"
)

// Strategy names the stage that produced a match.
type Strategy string

const (
	StrategyExact        Strategy = "exact"
	StrategyApproximate  Strategy = "approximate"
	StrategyEditDistance Strategy = "edit_distance"
)

// Match is a successful lookup.
type Match struct {
	Keyword  string
	Response string
	Strategy Strategy
	// Score is the similarity ratio for approximate matches (1 for exact).
	Score float64
	// Distance is the Levenshtein distance for edit-distance matches.
	Distance int
}

// Rule is one source record: several keywords sharing a response.
type Rule struct {
	Keywords []string `json:"keywords"`
	Response string   `json:"response"`
}

// ----------------------------------------------------------------------------
// Options

type Option func(*options)

type options struct {
	threshold   float64
	maxDistance int
}

func defaultOptions() options {
	return options{threshold: 0.7, maxDistance: 2}
}

// WithThreshold sets the minimum similarity ratio for approximate matches.
// Values outside [0,1] are ignored.
func WithThreshold(t float64) Option {
	return func(o *options) {
		if t >= 0 && t <= 1 {
			o.threshold = t
		}
	}
}

// WithMaxDistance sets the largest accepted Levenshtein distance.
// Negative values are ignored.
func WithMaxDistance(d int) Option {
	return func(o *options) {
		if d >= 0 {
			o.maxDistance = d
		}
	}
}

// ----------------------------------------------------------------------------
// Matcher

// Matcher resolves queries against the loaded keyword table.
type Matcher struct {
	opts      options
	keys      []string // normalized, in load order
	keyRunes  [][]string
	responses map[string]string
}

// NewMatcher builds a Matcher. Keywords are normalized; keywords that
// normalize to "" are skipped. A repeated keyword keeps its first position
// and takes the last response.
func NewMatcher(rs []Rule, opts ...Option) *Matcher {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	m := &Matcher{opts: o, responses: make(map[string]string)}
	for _, r := range rs {
		for _, kw := range r.Keywords {
			k := Normalize(kw)
			if k == "" {
				continue
			}
			if _, seen := m.responses[k]; !seen {
				m.keys = append(m.keys, k)
				m.keyRunes = append(m.keyRunes, runeStrings(k))
			}
			m.responses[k] = r.Response
		}
	}
	return m
}

// Len reports how many distinct keywords are loaded.
func (m *Matcher) Len() int { return len(m.keys) }

// Keywords returns the normalized keywords in load order.
func (m *Matcher) Keywords() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Match resolves query in strict order: exact key, best similarity ratio at
// or above the threshold, then smallest Levenshtein distance within the
// limit. ok is false when nothing qualifies or the query normalizes to "".
func (m *Matcher) Match(query string) (match Match, ok bool) {
	q := Normalize(query)
	if q == "" || len(m.keys) == 0 {
		return Match{}, false
	}

	if resp, hit := m.responses[q]; hit {
		return Match{Keyword: q, Response: resp, Strategy: StrategyExact, Score: 1}, true
	}

	if k, score, hit := m.closest(q); hit {
		return Match{Keyword: k, Response: m.responses[k], Strategy: StrategyApproximate, Score: score}, true
	}

	if k, dist, hit := m.nearest(q); hit {
		return Match{Keyword: k, Response: m.responses[k], Strategy: StrategyEditDistance, Distance: dist}, true
	}
	return Match{}, false
}

// closest returns the key with the highest Ratcliff/Obershelp ratio >= threshold.
func (m *Matcher) closest(q string) (string, float64, bool) {
	sm := difflib.NewMatcher(nil, runeStrings(q))
	best, bestScore := -1, 0.0
	for i, kr := range m.keyRunes {
		sm.SetSeq1(kr)
		// Cheap upper bounds first.
		if sm.RealQuickRatio() < m.opts.threshold || sm.QuickRatio() < m.opts.threshold {
			continue
		}
		score := sm.Ratio()
		if score >= m.opts.threshold && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return "", 0, false
	}
	return m.keys[best], bestScore, true
}

// nearest returns the key with the smallest edit distance <= maxDistance.
func (m *Matcher) nearest(q string) (string, int, bool) {
	best, bestDist := -1, m.opts.maxDistance+1
	for i, k := range m.keys {
		if d := levenshtein.ComputeDistance(q, k); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return "", 0, false
	}
	return m.keys[best], bestDist, true
}

// runeStrings splits s into one-rune strings, the element type difflib compares.
func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
