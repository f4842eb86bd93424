package extract

import (
	"strings"

	"github.com/ppiankov/pageguard/internal/model"
	"github.com/ppiankov/pageguard/internal/rules"
)

// FromContent matches content-category keywords against the URL text (host
// and path). These signals exist so user-blocked categories can force a
// block regardless of score; their weights contribute like any other.
func FromContent(rawURL string, content *rules.Table) []model.Signal {
	if content == nil {
		return nil
	}
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil
	}
	host := Host(trimmed)

	var signals []model.Signal
	seen := make(map[model.Category]bool)
	for _, hit := range content.MatchLabel(trimmed) {
		if seen[hit.Category] {
			continue
		}
		seen[hit.Category] = true
		signals = append(signals, model.Signal{
			Kind:     model.ContentCategory,
			Category: hit.Category,
			Subject:  host,
			Detail:   hit.Pattern,
		})
	}
	return signals
}
