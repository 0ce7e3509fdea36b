package format

import (
	"errors"
	"testing"
)

func TestTemplatesSet(t *testing.T) {
	templates := NewTemplates()

	if err := templates.Set('t', "no placeholder"); !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("Expected ErrInvalidTemplate, got: %v", err)
	}
	if err := templates.Set('t', "{} {}"); !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("Expected ErrInvalidTemplate, got: %v", err)
	}
	if err := templates.Set('x', "{}"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Expected ErrUnknownField, got: %v", err)
	}
	if err := templates.Set('a', "by {}"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := templates.Apply('a', "Jane"); got != "by Jane" {
		t.Errorf("Expected 'by Jane', got: %q", got)
	}
}

func TestTemplatesOverridesAndReset(t *testing.T) {
	templates := NewTemplates()
	if len(templates.Overrides()) != 0 {
		t.Errorf("Expected no overrides, got: %v", templates.Overrides())
	}

	_ = templates.Set('f', "{}:")
	_ = templates.Set('t', DefaultTemplate('t'))
	overrides := templates.Overrides()
	if len(overrides) != 1 || overrides["f"] != "{}:" {
		t.Errorf("Expected only f override, got: %v", overrides)
	}

	encoded := templates.Encode()
	if len(encoded) != len(AllFields) || encoded[0] != "a|<{}>" {
		t.Errorf("Expected sorted encoding, got: %v", encoded)
	}

	templates.Reset()
	if templates.Get('f') != "[{}]" {
		t.Errorf("Expected default template after reset, got: %q", templates.Get('f'))
	}
}
