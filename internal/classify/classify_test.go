package classify

import (
	"testing"

	"github.com/ppiankov/pageguard/internal/model"
	"github.com/ppiankov/pageguard/internal/rules"
)

var sensitive = rules.Default(rules.SurfaceSensitive)

func hasCategory(cats []model.Category, want model.Category) bool {
	for _, c := range cats {
		if c == want {
			return true
		}
	}
	return false
}

func TestLuhnValid(t *testing.T) {
	valid := []string{"4111111111111111", "5500005555555559", "340000000000009"}
	for _, v := range valid {
		if !LuhnValid(v) {
			t.Errorf("expected %s to pass Luhn", v)
		}
	}
	if LuhnValid("4111111111111112") {
		t.Error("expected altered check digit to fail Luhn")
	}
	if LuhnValid("41x1111111111111") {
		t.Error("expected non-digit input to fail Luhn")
	}
}

func TestCardNumberRequiresChecksum(t *testing.T) {
	cats := Classify("4111 1111 1111 1111", "", sensitive)
	if !hasCategory(cats, model.CatCardNumber) {
		t.Error("expected card_number for Luhn-valid value")
	}

	// Card-shaped but invalid checksum: regex matches, category must not.
	cats = Classify("4111 1111 1111 1112", "", sensitive)
	if hasCategory(cats, model.CatCardNumber) {
		t.Error("expected no card_number for Luhn-invalid value")
	}
}

func TestInvalidCardVetoesLabelEvidence(t *testing.T) {
	cats := Classify("4111 1111 1111 1112", "card number", sensitive)
	if hasCategory(cats, model.CatCardNumber) {
		t.Error("card-shaped value failing checksum must veto label evidence")
	}
}

func TestLabelEvidenceAloneSuffices(t *testing.T) {
	cats := Classify("", "Credit Card Number", sensitive)
	if !hasCategory(cats, model.CatCardNumber) {
		t.Error("expected card_number from label keyword alone")
	}
}

func TestValueEvidenceAloneSuffices(t *testing.T) {
	cats := Classify("jane@example.com", "", sensitive)
	if !hasCategory(cats, model.CatEmail) {
		t.Error("expected email from value pattern alone")
	}
}

func TestNationalIDPattern(t *testing.T) {
	cats := Classify("123-45-6789", "", sensitive)
	if !hasCategory(cats, model.CatNationalID) {
		t.Error("expected national_id for SSN-shaped value")
	}
}

func TestIBANPattern(t *testing.T) {
	cats := Classify("DE89370400440532013000", "", sensitive)
	if !hasCategory(cats, model.CatIBAN) {
		t.Error("expected iban category")
	}
}

func TestCVVNeedsLabelContext(t *testing.T) {
	// Three digits alone are not evidence; the label is.
	if cats := Classify("123", "", sensitive); hasCategory(cats, model.CatCVV) {
		t.Error("bare digits must not classify as cvv")
	}
	if cats := Classify("123", "CVV", sensitive); !hasCategory(cats, model.CatCVV) {
		t.Error("expected cvv with label evidence")
	}
}

func TestClassifyFieldPasswordType(t *testing.T) {
	field := model.FieldDescriptor{Name: "f1", InputType: "password", Value: "hunter2"}
	cats := ClassifyField(field, sensitive)
	if len(cats) == 0 || cats[0] != model.CatPassword {
		t.Errorf("expected password first for type=password, got %v", cats)
	}
}

func TestClassifyFieldNoDuplicatePassword(t *testing.T) {
	field := model.FieldDescriptor{Name: "password", InputType: "password"}
	cats := ClassifyField(field, sensitive)
	count := 0
	for _, c := range cats {
		if c == model.CatPassword {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one password category, got %d in %v", count, cats)
	}
}

func TestClassifyNilTable(t *testing.T) {
	if cats := Classify("x", "y", nil); cats != nil {
		t.Errorf("expected nil for nil table, got %v", cats)
	}
}

func TestClassifyDeterministicOrder(t *testing.T) {
	a := Classify("jane@example.com", "email phone", sensitive)
	b := Classify("jane@example.com", "email phone", sensitive)
	if len(a) != len(b) {
		t.Fatalf("nondeterministic classification: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("nondeterministic order: %v vs %v", a, b)
		}
	}
}
