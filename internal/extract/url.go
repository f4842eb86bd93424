package extract

import (
	"net"
	"net/url"
	"strings"

	"github.com/ppiankov/pageguard/internal/model"
	"github.com/ppiankov/pageguard/internal/rules"
)

// suspiciousTLDs are TLDs disproportionately used by throwaway phishing
// infrastructure. Deterministic list matching — no heuristics.
var suspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf", ".gq", ".top", ".zip", ".mov"}

const (
	maxSubdomains = 3
	maxURLLength  = 150
	maxParams     = 10
	maxEncoded    = 5
)

// FromURL extracts suspicious-URL-trait and transport signals from a raw URL.
// Total: malformed input yields no signals plus a diagnostic reason, never an
// error. Runs in time bounded by the URL length only.
func FromURL(raw string, urlRep *rules.Table) ([]model.Signal, []string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, []string{"empty url"}
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return nil, []string{"unparseable url: " + trimmed}
	}

	host := strings.ToLower(u.Hostname())
	var signals []model.Signal
	add := func(kind model.SignalKind, cat model.Category, detail string) {
		signals = append(signals, model.Signal{Kind: kind, Category: cat, Subject: host, Detail: detail})
	}

	if u.Scheme != "https" {
		add(model.NoHTTPS, model.CatNoHTTPS, u.Scheme)
	}

	if strings.Contains(host, "xn--") {
		add(model.SuspiciousURLTrait, model.CatPunycode, host)
	}

	if net.ParseIP(host) != nil {
		add(model.SuspiciousURLTrait, model.CatIPHost, host)
	}

	if strings.Count(host, ".") > maxSubdomains {
		add(model.SuspiciousURLTrait, model.CatExcessiveSubs, host)
	}

	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			add(model.SuspiciousURLTrait, model.CatSuspiciousTLD, tld)
			break
		}
	}

	if len(trimmed) > maxURLLength {
		add(model.SuspiciousURLTrait, model.CatLongURL, "")
	}

	if len(u.Query()) > maxParams {
		add(model.SuspiciousURLTrait, model.CatManyParams, "")
	}

	if strings.Count(trimmed, "%") > maxEncoded {
		add(model.SuspiciousURLTrait, model.CatEncodedChars, "")
	}

	// Table-driven lookalike patterns (e.g. userinfo tricks like https://bank.com@evil.tk).
	if urlRep != nil {
		seen := make(map[model.Category]bool)
		for _, s := range signals {
			seen[s.Category] = true
		}
		for _, hit := range urlRep.MatchValue(trimmed) {
			if !seen[hit.Category] {
				seen[hit.Category] = true
				add(model.SuspiciousURLTrait, hit.Category, hit.Pattern)
			}
		}
	}

	return signals, nil
}

// SameOrigin reports whether two URLs share scheme and host. Unparseable
// input counts as a different origin: high-stakes ambiguity is not resolved
// in the permissive direction.
func SameOrigin(a, b string) bool {
	ua, errA := url.Parse(strings.TrimSpace(a))
	ub, errB := url.Parse(strings.TrimSpace(b))
	if errA != nil || errB != nil || ua.Host == "" || ub.Host == "" {
		return false
	}
	return ua.Scheme == ub.Scheme && strings.EqualFold(ua.Host, ub.Host)
}

// Host returns the lowercase hostname of a URL, or the input itself when it
// is already a bare host. Empty string for unusable input.
func Host(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if u, err := url.Parse(trimmed); err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}
	if !strings.ContainsAny(trimmed, "/ ") {
		return strings.ToLower(trimmed)
	}
	return ""
}
