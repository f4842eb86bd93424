package extract

import (
	"strings"

	"github.com/ppiankov/pageguard/internal/model"
)

// securityHeaders are the response headers whose absence on a document load
// produces a MissingSecurityHeader signal. HSTS is only meaningful over TLS.
var securityHeaders = []struct {
	name      string
	httpsOnly bool
}{
	{"Strict-Transport-Security", true},
	{"Content-Security-Policy", false},
	{"X-Content-Type-Options", false},
	{"X-Frame-Options", false},
}

// FromHeaders extracts header-hygiene signals from a document response.
// Lookup is case-insensitive. Bounded by the (small, fixed) checklist, not by
// response size.
func FromHeaders(rawURL string, headers map[string]string) ([]model.Signal, []string) {
	host := Host(rawURL)
	if host == "" {
		return nil, []string{"unparseable url: " + rawURL}
	}

	canon := make(map[string]string, len(headers))
	for k, v := range headers {
		canon[strings.ToLower(k)] = v
	}

	https := strings.HasPrefix(strings.TrimSpace(strings.ToLower(rawURL)), "https://")

	var signals []model.Signal
	for _, h := range securityHeaders {
		if h.httpsOnly && !https {
			continue
		}
		if _, ok := canon[strings.ToLower(h.name)]; !ok {
			signals = append(signals, model.Signal{
				Kind:     model.MissingSecurityHeader,
				Category: model.CatMissingHeader,
				Subject:  host,
				Detail:   h.name,
			})
		}
	}

	if cookie, ok := canon["set-cookie"]; ok {
		lower := strings.ToLower(cookie)
		missingSecure := https && !strings.Contains(lower, "secure")
		missingHTTPOnly := !strings.Contains(lower, "httponly")
		if missingSecure || missingHTTPOnly {
			signals = append(signals, model.Signal{
				Kind:     model.InsecureCookie,
				Category: model.CatInsecureCookie,
				Subject:  host,
				Detail:   cookieFlagDetail(missingSecure, missingHTTPOnly),
			})
		}
	}

	return signals, nil
}

func cookieFlagDetail(missingSecure, missingHTTPOnly bool) string {
	switch {
	case missingSecure && missingHTTPOnly:
		return "missing Secure and HttpOnly"
	case missingSecure:
		return "missing Secure"
	default:
		return "missing HttpOnly"
	}
}
