package rules

import (
	"fmt"

	"github.com/ppiankov/pageguard/internal/model"
)

// Surface names for the built-in tables.
const (
	SurfacePrivacy   = "privacy"
	SurfaceSensitive = "sensitive"
	SurfaceURLRep    = "urlrep"
	SurfaceContent   = "content"
)

// Weight calibration. A single sensitive-field hit must be able to reach the
// high threshold (70) on its own; low-grade hygiene signals must not, even
// in numbers, because the summed base is capped before context penalties.
var defaultPrivacy = []Entry{
	// Known tracker domains, matched by suffix against third-party hosts.
	{Pattern: "doubleclick.net", Match: MatchSuffix, Category: model.CatTracker, Weight: 10},
	{Pattern: "google-analytics.com", Match: MatchSuffix, Category: model.CatTracker, Weight: 10},
	{Pattern: "googletagmanager.com", Match: MatchSuffix, Category: model.CatTracker, Weight: 10},
	{Pattern: "facebook.net", Match: MatchSuffix, Category: model.CatTracker, Weight: 10},
	{Pattern: "scorecardresearch.com", Match: MatchSuffix, Category: model.CatTracker, Weight: 10},
	{Pattern: "hotjar.com", Match: MatchSuffix, Category: model.CatTracker, Weight: 10},
	{Pattern: "mixpanel.com", Match: MatchSuffix, Category: model.CatTracker, Weight: 10},
	{Pattern: "segment.io", Match: MatchSuffix, Category: model.CatTracker, Weight: 10},
	{Pattern: "quantserve.com", Match: MatchSuffix, Category: model.CatTracker, Weight: 10},
	{Pattern: "adnxs.com", Match: MatchSuffix, Category: model.CatAdNetwork, Weight: 10},
	{Pattern: "criteo.com", Match: MatchSuffix, Category: model.CatAdNetwork, Weight: 10},
	{Pattern: "taboola.com", Match: MatchSuffix, Category: model.CatAdNetwork, Weight: 10},
	{Pattern: "outbrain.com", Match: MatchSuffix, Category: model.CatAdNetwork, Weight: 10},

	// Weight-only entries for signals produced by extractors and context.
	{Category: model.CatInsecureCookie, Weight: 8},
	{Category: model.CatMissingHeader, Weight: 8},
	{Category: model.CatNoHTTPS, Weight: 25},
	{Category: model.CatCrossOrigin, Weight: 20},
	{Category: model.CatFingerprinting, Weight: 35},

	// External reputation hits contribute like any local signal.
	{Category: model.CatRepMalware, Weight: 50},
	{Category: model.CatRepPhishing, Weight: 50},
	{Category: model.CatRepBreach, Weight: 40},
}

var defaultSensitive = []Entry{
	// Value-pattern evidence. Card numbers additionally pass a Luhn gate in
	// the classifier before the category is accepted.
	{Pattern: `\b(?:\d{4}[ -]?){3}\d{1,4}\b`, Match: MatchRegex, Category: model.CatCardNumber, Weight: 80},
	{Pattern: `\b\d{3}-\d{2}-\d{4}\b`, Match: MatchRegex, Category: model.CatNationalID, Weight: 70},
	{Pattern: `\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`, Match: MatchRegex, Category: model.CatIBAN, Weight: 65},
	{Pattern: `\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`, Match: MatchRegex, Category: model.CatEmail, Weight: 25},
	{Pattern: `\+?\d[\d\s().\-]{7,14}\d`, Match: MatchRegex, Category: model.CatPhone, Weight: 20},
	{Pattern: `\b\d{2}[/.\-]\d{2}[/.\-](?:19|20)\d{2}\b`, Match: MatchRegex, Category: model.CatDateOfBirth, Weight: 30},

	// Label-keyword evidence, an independent alternative to value patterns.
	{Pattern: "card number", Match: MatchKeyword, Category: model.CatCardNumber, Weight: 80},
	{Pattern: "credit card", Match: MatchKeyword, Category: model.CatCardNumber, Weight: 80},
	{Pattern: "cardnumber", Match: MatchKeyword, Category: model.CatCardNumber, Weight: 80},
	{Pattern: "password", Match: MatchKeyword, Category: model.CatPassword, Weight: 75},
	{Pattern: "passcode", Match: MatchKeyword, Category: model.CatPassword, Weight: 75},
	{Pattern: "social security", Match: MatchKeyword, Category: model.CatNationalID, Weight: 70},
	{Pattern: "ssn", Match: MatchKeyword, Category: model.CatNationalID, Weight: 70},
	{Pattern: "national id", Match: MatchKeyword, Category: model.CatNationalID, Weight: 70},
	{Pattern: "iban", Match: MatchKeyword, Category: model.CatIBAN, Weight: 65},
	{Pattern: "cvv", Match: MatchKeyword, Category: model.CatCVV, Weight: 60},
	{Pattern: "cvc", Match: MatchKeyword, Category: model.CatCVV, Weight: 60},
	{Pattern: "security code", Match: MatchKeyword, Category: model.CatCVV, Weight: 60},
	{Pattern: "email", Match: MatchKeyword, Category: model.CatEmail, Weight: 25},
	{Pattern: "e-mail", Match: MatchKeyword, Category: model.CatEmail, Weight: 25},
	{Pattern: "phone", Match: MatchKeyword, Category: model.CatPhone, Weight: 20},
	{Pattern: "mobile", Match: MatchKeyword, Category: model.CatPhone, Weight: 20},
	{Pattern: "date of birth", Match: MatchKeyword, Category: model.CatDateOfBirth, Weight: 30},
	{Pattern: "birthday", Match: MatchKeyword, Category: model.CatDateOfBirth, Weight: 30},
	{Pattern: "address", Match: MatchKeyword, Category: model.CatAddress, Weight: 25},
	{Pattern: "postal code", Match: MatchKeyword, Category: model.CatAddress, Weight: 25},
	{Pattern: "zip code", Match: MatchKeyword, Category: model.CatAddress, Weight: 25},
}

var defaultURLRep = []Entry{
	// Structural traits are detected by the URL extractor; the table carries
	// their weights. Lookalike patterns get a regex rule of their own.
	{Pattern: `//[^/@]+@`, Match: MatchRegex, Category: model.CatLookalike, Weight: 25},
	{Category: model.CatPunycode, Weight: 15},
	{Category: model.CatIPHost, Weight: 15},
	{Category: model.CatExcessiveSubs, Weight: 15},
	{Category: model.CatSuspiciousTLD, Weight: 15},
	{Category: model.CatLongURL, Weight: 15},
	{Category: model.CatManyParams, Weight: 15},
	{Category: model.CatEncodedChars, Weight: 15},
	{Category: model.CatLookalike, Weight: 25},
}

var defaultContent = []Entry{
	{Pattern: "porn", Match: MatchKeyword, Category: model.CatContentAdult, Weight: 40},
	{Pattern: "xxx", Match: MatchKeyword, Category: model.CatContentAdult, Weight: 40},
	{Pattern: "casino", Match: MatchKeyword, Category: model.CatContentGambling, Weight: 40},
	{Pattern: "betting", Match: MatchKeyword, Category: model.CatContentGambling, Weight: 40},
	{Pattern: "poker", Match: MatchKeyword, Category: model.CatContentGambling, Weight: 40},
	{Pattern: "gore", Match: MatchKeyword, Category: model.CatContentViolence, Weight: 40},
}

// Default returns the built-in table for a surface. Unknown surfaces get an
// empty table.
func Default(surface string) *Table {
	switch surface {
	case SurfacePrivacy:
		return New(surface, defaultPrivacy)
	case SurfaceSensitive:
		return New(surface, defaultSensitive)
	case SurfaceURLRep:
		return New(surface, defaultURLRep)
	case SurfaceContent:
		return New(surface, defaultContent)
	default:
		return New(surface, nil)
	}
}

// Paths points at optional YAML overrides, one file per surface.
type Paths struct {
	Privacy   string `yaml:"privacy"`
	Sensitive string `yaml:"sensitive"`
	URLRep    string `yaml:"urlrep"`
	Content   string `yaml:"content"`
}

// Set bundles the per-surface tables used by one engine instance.
type Set struct {
	Privacy   *Table
	Sensitive *Table
	URLRep    *Table
	Content   *Table
}

// DefaultSet returns the built-in tables for all surfaces.
func DefaultSet() *Set {
	return &Set{
		Privacy:   Default(SurfacePrivacy),
		Sensitive: Default(SurfaceSensitive),
		URLRep:    Default(SurfaceURLRep),
		Content:   Default(SurfaceContent),
	}
}

// LoadSet loads all surface tables, falling back to defaults per surface.
func LoadSet(p Paths) (*Set, error) {
	privacy, err := Load(SurfacePrivacy, p.Privacy)
	if err != nil {
		return nil, err
	}
	sensitive, err := Load(SurfaceSensitive, p.Sensitive)
	if err != nil {
		return nil, err
	}
	urlrep, err := Load(SurfaceURLRep, p.URLRep)
	if err != nil {
		return nil, err
	}
	content, err := Load(SurfaceContent, p.Content)
	if err != nil {
		return nil, err
	}
	return &Set{Privacy: privacy, Sensitive: sensitive, URLRep: urlrep, Content: content}, nil
}

// WeightFor looks a category up across all surfaces, first hit wins. The set
// satisfies the scoring engine's weight source so every surface shares one
// arithmetic path.
func (s *Set) WeightFor(cat model.Category) int {
	for _, t := range []*Table{s.Privacy, s.Sensitive, s.URLRep, s.Content} {
		if t == nil {
			continue
		}
		if w := t.WeightFor(cat); w != 0 {
			return w
		}
	}
	return 0
}

// TableFor returns the table for a named surface.
func (s *Set) TableFor(surface string) (*Table, error) {
	switch surface {
	case SurfacePrivacy:
		return s.Privacy, nil
	case SurfaceSensitive:
		return s.Sensitive, nil
	case SurfaceURLRep:
		return s.URLRep, nil
	case SurfaceContent:
		return s.Content, nil
	default:
		return nil, fmt.Errorf("rules: unknown surface %q", surface)
	}
}
