package musixmatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q_artist"); got != "Beatles" {
			t.Errorf("q_artist = %q, want Beatles", got)
		}
		if got := r.URL.Query().Get("apikey"); got != "key" {
			t.Errorf("apikey = %q, want key", got)
		}
		w.Write([]byte(`{
			"message": {
				"header": {"status_code": 200},
				"body": {"lyrics": {"lyrics_body": "Yesterday\nall my troubles seemed so far away\n...\n\n******* This Lyrics is NOT for Commercial use *******"}}
			}
		}`))
	}))
	defer srv.Close()

	p, err := New("key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l, err := p.Fetch(context.Background(), "Beatles", "Yesterday")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if l == nil {
		t.Fatal("expected lyrics")
	}
	want := "Yesterday\nall my troubles seemed so far away"
	if l.Text != want {
		t.Errorf("text = %q, want %q (disclaimer stripped)", l.Text, want)
	}
	if l.Source != "musixmatch" {
		t.Errorf("source = %q, want musixmatch", l.Source)
	}
}

func TestFetch_NotFoundIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": {"header": {"status_code": 404}, "body": []}}`))
	}))
	defer srv.Close()

	p, _ := New("key", WithBaseURL(srv.URL))
	l, err := p.Fetch(context.Background(), "Nobody", "Nothing")
	if err != nil {
		t.Fatalf("Fetch: %v (404 must not be an error)", err)
	}
	if l != nil {
		t.Errorf("lyrics = %+v, want nil", l)
	}
}

func TestFetch_APIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": {"header": {"status_code": 401}, "body": []}}`))
	}))
	defer srv.Close()

	p, _ := New("key", WithBaseURL(srv.URL))
	if _, err := p.Fetch(context.Background(), "a", "b"); err == nil {
		t.Fatal("expected error for status 401")
	}
}

func TestFetch_EmptyLyricsIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"message": {"header": {"status_code": 200}, "body": {"lyrics": {"lyrics_body": ""}}}
		}`))
	}))
	defer srv.Close()

	p, _ := New("key", WithBaseURL(srv.URL))
	l, err := p.Fetch(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if l != nil {
		t.Errorf("lyrics = %+v, want nil for empty body", l)
	}
}
