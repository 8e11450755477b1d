package openaitr

import (
	"strings"
	"testing"

	"github.com/verselate/verselate/pkg/provider/translation"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestNewDefaultsModel(t *testing.T) {
	p, err := New("sk-test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != defaultModel {
		t.Errorf("model = %q, want %q", p.model, defaultModel)
	}
}

func TestWithModel(t *testing.T) {
	p, err := New("sk-test", WithModel("gpt-4o"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", p.model)
	}
}

func TestUserPromptWithSourceLanguage(t *testing.T) {
	got := userPrompt(translation.Request{
		Text:           "Hola mundo",
		TargetLanguage: "en",
		SourceLanguage: "es",
	})
	if !strings.Contains(got, "from es to en") {
		t.Errorf("prompt missing language pair: %q", got)
	}
	if !strings.HasSuffix(got, "Hola mundo") {
		t.Errorf("prompt should end with the lyrics: %q", got)
	}
}

func TestUserPromptAutoDetect(t *testing.T) {
	got := userPrompt(translation.Request{
		Text:           "Hola mundo",
		TargetLanguage: "en",
	})
	if strings.Contains(got, "from") {
		t.Errorf("prompt should not name a source language: %q", got)
	}
	if !strings.Contains(got, "to en") {
		t.Errorf("prompt missing target language: %q", got)
	}
}
