package acrcloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecognize_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("access_key"); got != "key" {
			t.Errorf("access_key = %q, want key", got)
		}
		if got := r.FormValue("signature"); got == "" {
			t.Error("signature is empty")
		}
		w.Write([]byte(`{
			"status": {"code": 0, "msg": "Success"},
			"metadata": {"music": [{
				"title": "Yesterday",
				"score": 92,
				"artists": [{"name": "The Beatles"}],
				"album": {"name": "Help!"}
			}]}
		}`))
	}))
	defer srv.Close()

	p, err := New("key", "secret", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	info, err := p.Recognize(context.Background(), []byte("audio-bytes"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if info == nil {
		t.Fatal("expected a match")
	}
	if info.Artist != "The Beatles" || info.Title != "Yesterday" {
		t.Errorf("got %q / %q, want The Beatles / Yesterday", info.Artist, info.Title)
	}
	if info.Album != "Help!" {
		t.Errorf("album = %q, want Help!", info.Album)
	}
	if info.Confidence < 0.91 || info.Confidence > 0.93 {
		t.Errorf("confidence = %f, want ~0.92", info.Confidence)
	}
	if info.Source != "acrcloud" {
		t.Errorf("source = %q, want acrcloud", info.Source)
	}
}

func TestRecognize_NoResultIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": {"code": 1001, "msg": "No result"}}`))
	}))
	defer srv.Close()

	p, _ := New("key", "secret", WithBaseURL(srv.URL))
	info, err := p.Recognize(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("Recognize: %v (no-result must not be an error)", err)
	}
	if info != nil {
		t.Errorf("info = %+v, want nil", info)
	}
}

func TestRecognize_ProtocolErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": {"code": 3001, "msg": "Invalid access key"}}`))
	}))
	defer srv.Close()

	p, _ := New("key", "secret", WithBaseURL(srv.URL))
	if _, err := p.Recognize(context.Background(), []byte("audio")); err == nil {
		t.Fatal("expected error for non-success status code")
	}
}

func TestRecognize_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := New("key", "secret", WithBaseURL(srv.URL))
	if _, err := p.Recognize(context.Background(), []byte("audio")); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestParseIdentifyResponse_HitWithoutArtistIsMiss(t *testing.T) {
	var ir identifyResponse
	raw := `{
		"status": {"code": 0},
		"metadata": {"music": [{"title": "Orphan Track", "artists": []}]}
	}`
	if err := json.Unmarshal([]byte(raw), &ir); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	info, err := parseIdentifyResponse(&ir)
	if err != nil {
		t.Fatalf("parseIdentifyResponse: %v", err)
	}
	if info != nil {
		t.Errorf("info = %+v, want nil for a hit missing artist", info)
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New("", "secret"); err == nil {
		t.Error("expected error for empty access key")
	}
	if _, err := New("key", ""); err == nil {
		t.Error("expected error for empty secret")
	}
}
