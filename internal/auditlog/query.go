package auditlog

import (
	"strings"
	"time"

	"github.com/ppiankov/pageguard/internal/model"
)

// Filter narrows a query. Zero values leave a dimension open.
type Filter struct {
	Level    model.Level // exact level, "" = any
	From     time.Time   // inclusive
	To       time.Time   // exclusive
	Text     string      // case-insensitive substring over subject and signals
	RiskMin  int         // inclusive
	RiskMax  *int        // inclusive, nil = open
	Decision model.Decision
}

// Query returns matching entries, oldest first. A pure filter over the
// stored set: identical inputs yield identical output.
func (l *Log) Query(f Filter) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (f Filter) matches(e Entry) bool {
	if f.Level != "" && e.Level != f.Level {
		return false
	}
	if f.Decision != "" && e.Decision != f.Decision {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.Timestamp.Before(f.To) {
		return false
	}
	if e.Score < f.RiskMin {
		return false
	}
	if f.RiskMax != nil && e.Score > *f.RiskMax {
		return false
	}
	if f.Text != "" && !f.textMatches(e) {
		return false
	}
	return true
}

func (f Filter) textMatches(e Entry) bool {
	needle := strings.ToLower(f.Text)
	if strings.Contains(strings.ToLower(e.Subject), needle) {
		return true
	}
	for _, s := range e.Signals {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}
