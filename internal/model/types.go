package model

import "strings"

// SignalKind identifies the class of observation a signal carries.
type SignalKind string

const (
	TrackerDomain         SignalKind = "tracker_domain"
	InsecureCookie        SignalKind = "insecure_cookie"
	MissingSecurityHeader SignalKind = "missing_security_header"
	NoHTTPS               SignalKind = "no_https"
	SensitiveFieldType    SignalKind = "sensitive_field_type"
	CrossOriginPost       SignalKind = "cross_origin_post"
	FingerprintingAttempt SignalKind = "fingerprinting_attempt"
	SuspiciousURLTrait    SignalKind = "suspicious_url_trait"
	ReputationHit         SignalKind = "reputation_hit"
	ContentCategory       SignalKind = "content_category"
)

// Category is the semantic bucket a classifier or rule table assigns to a
// signal. Categories are the unit of weight lookup and deduplication.
type Category string

const (
	CatTracker        Category = "tracker"
	CatAdNetwork      Category = "ad_network"
	CatInsecureCookie Category = "insecure_cookie"
	CatMissingHeader  Category = "missing_header"
	CatNoHTTPS        Category = "no_https"
	CatCrossOrigin    Category = "cross_origin_post"
	CatFingerprinting Category = "fingerprinting"

	// Sensitive field categories.
	CatCardNumber  Category = "card_number"
	CatPassword    Category = "password"
	CatNationalID  Category = "national_id"
	CatIBAN        Category = "iban"
	CatCVV         Category = "cvv"
	CatEmail       Category = "email"
	CatPhone       Category = "phone"
	CatDateOfBirth Category = "date_of_birth"
	CatAddress     Category = "address"

	// URL reputation traits.
	CatPunycode      Category = "url_punycode"
	CatIPHost        Category = "url_ip_host"
	CatExcessiveSubs Category = "url_excessive_subdomains"
	CatSuspiciousTLD Category = "url_suspicious_tld"
	CatLongURL       Category = "url_overlong"
	CatManyParams    Category = "url_excessive_params"
	CatEncodedChars  Category = "url_encoded_chars"
	CatLookalike     Category = "url_lookalike"

	// External reputation categories.
	CatRepMalware  Category = "rep_malware"
	CatRepPhishing Category = "rep_phishing"
	CatRepBreach   Category = "rep_breach"

	// Content-blocking categories.
	CatContentAdult    Category = "content_adult"
	CatContentGambling Category = "content_gambling"
	CatContentViolence Category = "content_violence"
)

// Signal is one typed observation feeding risk scoring. Signals are created
// fresh per evaluation and never persisted raw: Detail carries only an
// anonymized preview, never secret material.
type Signal struct {
	Kind     SignalKind `json:"kind"`
	Category Category   `json:"category"`
	Subject  string     `json:"subject"`
	Detail   string     `json:"detail,omitempty"`
}

// Level is the discrete risk bucket derived from a score.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

// LevelRank maps levels to comparable integers for filtering.
var LevelRank = map[Level]int{
	LevelLow:      0,
	LevelModerate: 1,
	LevelHigh:     2,
}

// Decision is the policy enforcement outcome for one evaluation.
type Decision string

const (
	Allow Decision = "allow"
	Warn  Decision = "warn"
	Block Decision = "block"
)

// EvalContext carries the page-level facts scoring reasons about alongside
// the signal list. Populated by the caller, never inferred inside scoring.
type EvalContext struct {
	HTTPS       bool `json:"https"`
	CrossOrigin bool `json:"cross_origin"`
	Trusted     bool `json:"trusted"`
}

// RiskAssessment is the immutable output of one scoring pass. A re-evaluation
// produces a fresh assessment; existing ones are never mutated.
type RiskAssessment struct {
	Score   int      `json:"score"`
	Level   Level    `json:"level"`
	Reasons []string `json:"reasons"`
	Signals []Signal `json:"signals"`
}

// MaskPreview returns an anonymized preview of a sensitive value, keeping at
// most the last four characters. Safe to log and store.
func MaskPreview(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return strings.Repeat("•", len(v))
	}
	return "••••" + v[len(v)-4:]
}
