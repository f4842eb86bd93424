package extract

import (
	"testing"

	"github.com/ppiankov/pageguard/internal/model"
	"github.com/ppiankov/pageguard/internal/rules"
)

var (
	urlRep    = rules.Default(rules.SurfaceURLRep)
	sensitive = rules.Default(rules.SurfaceSensitive)
	privacy   = rules.Default(rules.SurfacePrivacy)
)

func categories(signals []model.Signal) map[model.Category]bool {
	set := make(map[model.Category]bool)
	for _, s := range signals {
		set[s.Category] = true
	}
	return set
}

func TestFromURLCleanHTTPS(t *testing.T) {
	signals, diags := FromURL("https://example.com/about", urlRep)
	if len(signals) != 0 {
		t.Errorf("expected no signals for clean https url, got %v", signals)
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

func TestFromURLPlainHTTP(t *testing.T) {
	signals, _ := FromURL("http://example.com", urlRep)
	if !categories(signals)[model.CatNoHTTPS] {
		t.Error("expected no_https signal for plain http")
	}
}

func TestFromURLMalformedYieldsDiagnosticOnly(t *testing.T) {
	signals, diags := FromURL("::not a url::", urlRep)
	if len(signals) != 0 {
		t.Errorf("expected no signals for malformed url, got %v", signals)
	}
	if len(diags) == 0 {
		t.Error("expected a diagnostic reason for malformed url")
	}
}

func TestFromURLSuspiciousTraits(t *testing.T) {
	signals, _ := FromURL("http://203.0.113.7/login", urlRep)
	cats := categories(signals)
	if !cats[model.CatIPHost] {
		t.Error("expected ip-host trait")
	}

	signals, _ = FromURL("https://xn--pypal-4ve.com", urlRep)
	if !categories(signals)[model.CatPunycode] {
		t.Error("expected punycode trait")
	}

	signals, _ = FromURL("https://login.secure.account.bank.example.tk", urlRep)
	cats = categories(signals)
	if !cats[model.CatExcessiveSubs] {
		t.Error("expected excessive-subdomains trait")
	}
	if !cats[model.CatSuspiciousTLD] {
		t.Error("expected suspicious-tld trait")
	}
}

func TestFromURLUserinfoLookalike(t *testing.T) {
	signals, _ := FromURL("https://bank.com%40evil.example/x", urlRep)
	// Either the encoded-chars trait or the lookalike regex should notice;
	// the plain userinfo form must trip the table rule.
	signals2, _ := FromURL("https://bank.com@evil.example/x", urlRep)
	if !categories(signals2)[model.CatLookalike] {
		t.Errorf("expected lookalike trait for userinfo url, got %v, %v", signals, signals2)
	}
}

func TestSameOrigin(t *testing.T) {
	if !SameOrigin("https://shop.example/cart", "https://shop.example/checkout") {
		t.Error("expected same origin")
	}
	if SameOrigin("https://shop.example", "https://pay.example") {
		t.Error("expected different origin for different hosts")
	}
	if SameOrigin("https://shop.example", "http://shop.example") {
		t.Error("expected different origin for different schemes")
	}
	if SameOrigin("::bad::", "https://shop.example") {
		t.Error("unparseable input must not count as same origin")
	}
}

func TestFromHeadersMissingSecurity(t *testing.T) {
	signals, _ := FromHeaders("https://example.com", map[string]string{
		"Content-Type": "text/html",
	})
	count := 0
	for _, s := range signals {
		if s.Kind == model.MissingSecurityHeader {
			count++
		}
	}
	if count != 4 {
		t.Errorf("expected 4 missing-header signals, got %d: %v", count, signals)
	}
}

func TestFromHeadersAllPresent(t *testing.T) {
	signals, _ := FromHeaders("https://example.com", map[string]string{
		"strict-transport-security": "max-age=63072000",
		"content-security-policy":   "default-src 'self'",
		"x-content-type-options":    "nosniff",
		"x-frame-options":           "DENY",
	})
	if len(signals) != 0 {
		t.Errorf("expected no signals with full header set, got %v", signals)
	}
}

func TestFromHeadersInsecureCookie(t *testing.T) {
	signals, _ := FromHeaders("https://example.com", map[string]string{
		"Strict-Transport-Security": "max-age=1",
		"Content-Security-Policy":   "default-src 'self'",
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"Set-Cookie":                "session=abc; Path=/",
	})
	if len(signals) != 1 || signals[0].Kind != model.InsecureCookie {
		t.Fatalf("expected one insecure-cookie signal, got %v", signals)
	}
	if signals[0].Detail != "missing Secure and HttpOnly" {
		t.Errorf("unexpected detail: %s", signals[0].Detail)
	}
}

func TestFromHeadersHSTSSkippedOverHTTP(t *testing.T) {
	signals, _ := FromHeaders("http://example.com", map[string]string{
		"Content-Security-Policy": "default-src 'self'",
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
	})
	for _, s := range signals {
		if s.Detail == "Strict-Transport-Security" {
			t.Error("HSTS must not be expected over plain http")
		}
	}
}

func TestFromFieldMasksValue(t *testing.T) {
	field := model.FieldDescriptor{Name: "cc", Label: "Card number", Value: "4111111111111111"}
	signals, _ := FromField("https://shop.example", field, sensitive)
	if len(signals) == 0 {
		t.Fatal("expected sensitive-field signal")
	}
	for _, s := range signals {
		if s.Detail == "4111111111111111" {
			t.Fatal("raw value leaked into signal detail")
		}
	}
	if signals[0].Detail != "••••1111" {
		t.Errorf("expected masked preview, got %q", signals[0].Detail)
	}
}

func TestFromFormCrossOrigin(t *testing.T) {
	ev := model.FormSubmitEvent{
		PageURL:   "https://shop.example/checkout",
		ActionURL: "https://collector.evil/submit",
		Method:    "POST",
	}
	signals, _ := FromForm(ev, sensitive)
	if len(signals) != 1 || signals[0].Kind != model.CrossOriginPost {
		t.Fatalf("expected cross-origin-post signal, got %v", signals)
	}
	if signals[0].Detail != "collector.evil" {
		t.Errorf("expected action host in detail, got %s", signals[0].Detail)
	}
}

func TestFromFormSameOriginNoSignal(t *testing.T) {
	ev := model.FormSubmitEvent{
		PageURL:   "https://shop.example/checkout",
		ActionURL: "https://shop.example/submit",
	}
	signals, _ := FromForm(ev, sensitive)
	if len(signals) != 0 {
		t.Errorf("expected no signals for same-origin submit, got %v", signals)
	}
}

func TestFromThirdPartyDomains(t *testing.T) {
	signals, _ := FromThirdPartyDomains("https://news.example", []string{
		"cdn.news.example",
		"ads.doubleclick.net",
		"static.criteo.com",
	}, privacy)
	if len(signals) != 2 {
		t.Fatalf("expected 2 tracker signals, got %v", signals)
	}
	cats := categories(signals)
	if !cats[model.CatTracker] || !cats[model.CatAdNetwork] {
		t.Errorf("expected tracker and ad_network categories, got %v", cats)
	}
}

func TestFromContentMatchesKeywords(t *testing.T) {
	content := rules.Default(rules.SurfaceContent)

	signals := FromContent("https://lucky-casino.example/slots", content)
	cats := categories(signals)
	if !cats[model.CatContentGambling] {
		t.Errorf("expected content_gambling signal, got %v", signals)
	}
	for _, s := range signals {
		if s.Subject != "lucky-casino.example" {
			t.Errorf("subject: expected lucky-casino.example, got %q", s.Subject)
		}
	}
}

func TestFromContentCleanURLYieldsNothing(t *testing.T) {
	content := rules.Default(rules.SurfaceContent)
	if signals := FromContent("https://example.com/news", content); len(signals) != 0 {
		t.Errorf("expected no content signals, got %v", signals)
	}
}

func TestFromContentNilTable(t *testing.T) {
	if signals := FromContent("https://lucky-casino.example/", nil); signals != nil {
		t.Errorf("nil table should yield nil, got %v", signals)
	}
}
