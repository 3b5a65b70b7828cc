package i18n

import (
	"context"
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	if DetectLanguage("en-US,en;q=0.9") != "en" {
		t.Fatalf("expected en")
	}
	if DetectLanguage("PT-br") != "pt" {
		t.Fatalf("expected pt for PT-br")
	}
	if DetectLanguage("fr-FR,pt;q=0.8") != "pt" {
		t.Fatalf("expected pt as first supported tag")
	}
	if DetectLanguage("fr-FR") != "en" {
		t.Fatalf("expected en fallback")
	}
	if DetectLanguage("") != "en" {
		t.Fatalf("expected default en")
	}
}

func TestTranslations(t *testing.T) {
	if T("en", "required") != "Required" {
		t.Fatalf("expected Required")
	}
	if T("pt", "required") != "Obrigatório" {
		t.Fatalf("expected Obrigatório")
	}
	if T("pt", "status.won") != "Fechado" {
		t.Fatalf("expected Fechado")
	}
	// unknown code -> fallback to code
	if T("en", "__nope__") != "__nope__" {
		t.Fatalf("expected fallback to code")
	}
	// unknown language -> fallback to en translation
	if T("es", "required") != "Required" {
		t.Fatalf("expected en fallback for es lang")
	}
}

func TestEveryCodeTranslated(t *testing.T) {
	for code := range messages[DefaultLang] {
		if _, ok := messages["pt"][code]; !ok {
			t.Errorf("missing pt translation for %q", code)
		}
	}
}

func TestLangContext(t *testing.T) {
	if LangFromContext(context.Background()) != DefaultLang {
		t.Fatalf("expected default lang")
	}
	if LangFromContext(WithLang(context.Background(), "pt")) != "pt" {
		t.Fatalf("expected pt from context")
	}
}
