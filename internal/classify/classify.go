package classify

import (
	"strings"

	"github.com/ppiankov/pageguard/internal/model"
	"github.com/ppiankov/pageguard/internal/rules"
)

// Classify maps a raw field value plus its contextual label text to sensitive
// categories using the given rule table. Value-pattern and label-keyword
// matches are independent, alternative evidence (OR), with one exception:
// card-number-shaped values must pass the Luhn check before the card category
// is accepted, suppressing digit-coincidence false positives.
//
// Returned categories are deduplicated and ordered: value evidence first,
// label evidence after, each in table order.
func Classify(value, label string, table *rules.Table) []model.Category {
	if table == nil {
		return nil
	}

	seen := make(map[model.Category]bool)
	var cats []model.Category
	add := func(cat model.Category) {
		if !seen[cat] {
			seen[cat] = true
			cats = append(cats, cat)
		}
	}

	cardShaped, cardValid := cardEvidence(value)

	for _, hit := range table.MatchValue(value) {
		if hit.Category == model.CatCardNumber && !cardValid {
			continue
		}
		add(hit.Category)
	}

	for _, hit := range table.MatchLabel(label) {
		// A card-shaped value that failed the checksum vetoes label evidence
		// too: the field holds something that merely looks like a card.
		if hit.Category == model.CatCardNumber && cardShaped && !cardValid {
			continue
		}
		add(hit.Category)
	}

	return cats
}

// ClassifyField classifies one form field, combining the input type with
// value and label evidence. Label text is the concatenation of name, label,
// and placeholder so any of them can carry the keyword.
func ClassifyField(field model.FieldDescriptor, table *rules.Table) []model.Category {
	label := strings.Join([]string{field.Name, field.Label, field.Placeholder}, " ")

	cats := Classify(field.Value, label, table)

	// type=password is authoritative regardless of pattern evidence.
	if strings.EqualFold(field.InputType, "password") {
		for _, c := range cats {
			if c == model.CatPassword {
				return cats
			}
		}
		return append([]model.Category{model.CatPassword}, cats...)
	}
	return cats
}

// cardEvidence reports whether the value looks like a card number at all
// (13–19 digits after separator stripping) and whether it passes Luhn.
func cardEvidence(value string) (shaped, valid bool) {
	digits := digitsOf(value)
	if len(digits) < 13 || len(digits) > 19 {
		return false, false
	}
	return true, LuhnValid(digits)
}
