package mymemory

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/verselate/verselate/pkg/provider/translation"
)

func TestTranslate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("langpair"); got != "en|es" {
			t.Errorf("langpair = %q, want en|es", got)
		}
		w.Write([]byte(`{
			"responseStatus": 200,
			"responseData": {"translatedText": "hola mundo"}
		}`))
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	res, err := p.Translate(context.Background(), translation.Request{
		Text:           "hello world",
		TargetLanguage: "es",
		SourceLanguage: "en",
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res == nil || res.Text != "hola mundo" {
		t.Fatalf("res = %+v, want hola mundo", res)
	}
	if res.TargetLanguage != "es" {
		t.Errorf("target = %q, want es", res.TargetLanguage)
	}
	if res.Source != "mymemory" {
		t.Errorf("source = %q, want mymemory", res.Source)
	}
}

func TestTranslate_AutodetectWhenSourceEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("langpair"); got != "Autodetect|fr" {
			t.Errorf("langpair = %q, want Autodetect|fr", got)
		}
		w.Write([]byte(`{"responseStatus": 200, "responseData": {"translatedText": "bonjour"}}`))
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	if _, err := p.Translate(context.Background(), translation.Request{
		Text: "hello", TargetLanguage: "fr",
	}); err != nil {
		t.Fatalf("Translate: %v", err)
	}
}

func TestTranslate_ChunksLongText(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprintf(w, `{"responseStatus": 200, "responseData": {"translatedText": "chunk %d"}}`, requests)
	}))
	defer srv.Close()

	// 20 lines of 60 chars each is well past one 450-byte chunk.
	line := strings.Repeat("a", 60)
	text := strings.TrimSuffix(strings.Repeat(line+"\n", 20), "\n")

	p := New(WithBaseURL(srv.URL))
	res, err := p.Translate(context.Background(), translation.Request{
		Text: text, TargetLanguage: "es",
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if requests < 2 {
		t.Errorf("requests = %d, want the text split across multiple calls", requests)
	}
	if !strings.Contains(res.Text, "chunk 1") || !strings.Contains(res.Text, fmt.Sprintf("chunk %d", requests)) {
		t.Errorf("res.Text = %q, want all chunks joined", res.Text)
	}
}

func TestTranslate_APIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseStatus": 403, "responseDetails": "invalid language pair"}`))
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	if _, err := p.Translate(context.Background(), translation.Request{
		Text: "x", TargetLanguage: "zz",
	}); err == nil {
		t.Fatal("expected error for api status 403")
	}
}

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   int
	}{
		{"short single chunk", "hello\nworld", 450, 1},
		{"two chunks", "aaaa\nbbbb\ncccc", 9, 2},
		{"oversized single line kept whole", strings.Repeat("x", 100), 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := splitChunks(tt.text, tt.maxLen)
			if len(chunks) != tt.want {
				t.Errorf("chunks = %d, want %d (%q)", len(chunks), tt.want, chunks)
			}
			if got := strings.Join(chunks, "\n"); got != tt.text {
				t.Errorf("rejoined = %q, want original %q", got, tt.text)
			}
		})
	}
}
