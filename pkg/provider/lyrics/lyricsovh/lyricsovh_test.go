package lyricsovh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Beatles/Yesterday" {
			t.Errorf("path = %q, want /Beatles/Yesterday", r.URL.Path)
		}
		w.Write([]byte(`{"lyrics": "Yesterday\nall my troubles seemed so far away\n"}`))
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	l, err := p.Fetch(context.Background(), "Beatles", "Yesterday")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if l == nil || l.Text == "" {
		t.Fatal("expected lyrics text")
	}
	if l.Source != "lyricsovh" {
		t.Errorf("source = %q, want lyricsovh", l.Source)
	}
}

func TestFetch_NotFoundIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"No lyrics found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	l, err := p.Fetch(context.Background(), "Nobody", "Nothing")
	if err != nil {
		t.Fatalf("Fetch: %v (404 must not be an error)", err)
	}
	if l != nil {
		t.Errorf("lyrics = %+v, want nil", l)
	}
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	if _, err := p.Fetch(context.Background(), "a", "b"); err == nil {
		t.Fatal("expected error for HTTP 502")
	}
}

func TestFetch_EscapesPathSegments(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"lyrics": "x"}`))
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	if _, err := p.Fetch(context.Background(), "AC/DC", "Back in Black"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/AC%2FDC/Back%20in%20Black" {
		t.Errorf("path = %q, want escaped artist and title", gotPath)
	}
}
