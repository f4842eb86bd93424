package extract

import (
	"github.com/ppiankov/pageguard/internal/classify"
	"github.com/ppiankov/pageguard/internal/model"
	"github.com/ppiankov/pageguard/internal/rules"
)

// FromField turns one form field into sensitive-field signals. The raw value
// never leaves this function: signals carry only the masked preview.
func FromField(pageURL string, field model.FieldDescriptor, sensitive *rules.Table) ([]model.Signal, []string) {
	host := Host(pageURL)
	if host == "" {
		return nil, []string{"unparseable page url: " + pageURL}
	}

	cats := classify.ClassifyField(field, sensitive)
	if len(cats) == 0 {
		return nil, nil
	}

	preview := model.MaskPreview(field.Value)
	signals := make([]model.Signal, 0, len(cats))
	for _, cat := range cats {
		signals = append(signals, model.Signal{
			Kind:     model.SensitiveFieldType,
			Category: cat,
			Subject:  host,
			Detail:   preview,
		})
	}
	return signals, nil
}

// FromForm extracts signals for a form submission: per-field sensitive
// signals plus a CrossOriginPost when the action host differs from the page.
// O(field count).
func FromForm(ev model.FormSubmitEvent, sensitive *rules.Table) ([]model.Signal, []string) {
	host := Host(ev.PageURL)
	if host == "" {
		return nil, []string{"unparseable page url: " + ev.PageURL}
	}

	var signals []model.Signal
	var diags []string
	for _, f := range ev.Fields {
		sigs, d := FromField(ev.PageURL, f, sensitive)
		signals = append(signals, sigs...)
		diags = append(diags, d...)
	}

	if ev.ActionURL != "" && !SameOrigin(ev.PageURL, ev.ActionURL) {
		signals = append(signals, model.Signal{
			Kind:     model.CrossOriginPost,
			Category: model.CatCrossOrigin,
			Subject:  host,
			Detail:   Host(ev.ActionURL),
		})
	}

	return signals, diags
}
