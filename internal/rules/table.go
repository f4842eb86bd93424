package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/pageguard/internal/model"
)

// MatchMode selects how an entry's pattern is applied.
type MatchMode string

const (
	// MatchRegex applies the pattern as a case-insensitive regex on the value.
	MatchRegex MatchMode = "regex"
	// MatchSuffix matches domain suffixes (exact label boundary, not substring).
	MatchSuffix MatchMode = "suffix"
	// MatchKeyword matches a case-insensitive keyword in contextual text.
	MatchKeyword MatchMode = "keyword"
)

// Entry is one raw rule: pattern → (category, weight). Entries with an empty
// pattern carry only a weight and are used for weight lookup of categories
// produced elsewhere (extractors, context flags, reputation hits).
type Entry struct {
	Pattern  string         `yaml:"pattern,omitempty"`
	Match    MatchMode      `yaml:"match,omitempty"`
	Category model.Category `yaml:"category"`
	Weight   int            `yaml:"weight"`
}

// Hit is one rule match against an input value.
type Hit struct {
	Category model.Category
	Weight   int
	Pattern  string
}

type compiled struct {
	entry Entry
	re    *regexp.Regexp // nil unless MatchRegex
}

// Table is an ordered, compiled rule table for one product surface.
// Tables are immutable after construction; hot-swap by building a new one.
type Table struct {
	Surface string
	rules   []compiled
	weights map[model.Category]int
}

// New compiles raw entries into a Table. Entries with invalid regexes are
// skipped rather than failing the whole table.
func New(surface string, entries []Entry) *Table {
	t := &Table{
		Surface: surface,
		weights: make(map[model.Category]int),
	}
	for _, e := range entries {
		c := compiled{entry: e}
		if e.Pattern != "" && (e.Match == MatchRegex || e.Match == "") {
			re, err := regexp.Compile("(?i)" + e.Pattern)
			if err != nil {
				continue
			}
			c.entry.Match = MatchRegex
			c.re = re
		}
		t.rules = append(t.rules, c)
		// First entry wins for weight lookup, matching evaluation order.
		if _, ok := t.weights[e.Category]; !ok {
			t.weights[e.Category] = e.Weight
		}
	}
	return t
}

// Load reads a rule table from a YAML file. A missing file falls back to the
// built-in defaults for the surface; invalid YAML is an error.
func Load(surface, path string) (*Table, error) {
	if path == "" {
		return Default(surface), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(surface), nil
		}
		return nil, fmt.Errorf("rules: read %s table: %w", surface, err)
	}
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("rules: parse %s table: %w", surface, err)
	}
	return New(surface, entries), nil
}

// WeightFor returns the weight for a category, 0 if the table has no rule
// for it. The table is the single source of weight truth for its surface.
func (t *Table) WeightFor(cat model.Category) int {
	return t.weights[cat]
}

// MatchValue applies regex and suffix rules to a raw value, returning hits in
// table order. Keyword rules are skipped here; they apply to label text only.
func (t *Table) MatchValue(value string) []Hit {
	if value == "" {
		return nil
	}
	lower := strings.ToLower(value)
	var hits []Hit
	for _, c := range t.rules {
		switch c.entry.Match {
		case MatchRegex:
			if c.re != nil && c.re.MatchString(value) {
				hits = append(hits, Hit{c.entry.Category, c.entry.Weight, c.entry.Pattern})
			}
		case MatchSuffix:
			if hasDomainSuffix(lower, strings.ToLower(c.entry.Pattern)) {
				hits = append(hits, Hit{c.entry.Category, c.entry.Weight, c.entry.Pattern})
			}
		}
	}
	return hits
}

// MatchLabel applies keyword rules to contextual text (field labels,
// placeholders, names), returning hits in table order.
func (t *Table) MatchLabel(label string) []Hit {
	if label == "" {
		return nil
	}
	lower := strings.ToLower(label)
	var hits []Hit
	for _, c := range t.rules {
		if c.entry.Match != MatchKeyword {
			continue
		}
		if strings.Contains(lower, strings.ToLower(c.entry.Pattern)) {
			hits = append(hits, Hit{c.entry.Category, c.entry.Weight, c.entry.Pattern})
		}
	}
	return hits
}

// Entries returns the raw entries for serialization.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.rules))
	for _, c := range t.rules {
		out = append(out, c.entry)
	}
	return out
}

// hasDomainSuffix reports whether host equals the suffix or ends with
// "."+suffix, so "ads.example.com" matches "example.com" but
// "notexample.com" does not.
func hasDomainSuffix(host, suffix string) bool {
	if suffix == "" {
		return false
	}
	if host == suffix {
		return true
	}
	return strings.HasSuffix(host, "."+suffix)
}
