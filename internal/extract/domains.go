package extract

import (
	"github.com/ppiankov/pageguard/internal/model"
	"github.com/ppiankov/pageguard/internal/rules"
)

// FromThirdPartyDomains matches a page's third-party hosts against the
// privacy rule table, producing one TrackerDomain signal per matching host.
func FromThirdPartyDomains(pageURL string, domains []string, privacy *rules.Table) ([]model.Signal, []string) {
	host := Host(pageURL)
	if host == "" {
		return nil, []string{"unparseable page url: " + pageURL}
	}
	if privacy == nil {
		return nil, nil
	}

	var signals []model.Signal
	var diags []string
	for _, d := range domains {
		dh := Host(d)
		if dh == "" {
			diags = append(diags, "unparseable domain: "+d)
			continue
		}
		for _, hit := range privacy.MatchValue(dh) {
			signals = append(signals, model.Signal{
				Kind:     model.TrackerDomain,
				Category: hit.Category,
				Subject:  host,
				Detail:   dh,
			})
		}
	}
	return signals, diags
}
