package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verselate/verselate/internal/cache"
	"github.com/verselate/verselate/pkg/types"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if VERSELATE_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("VERSELATE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VERSELATE_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [cache.Store] with clean tables.
func newTestStore(t *testing.T, ttl time.Duration) *cache.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS cached_lyrics, cached_translations`); err != nil {
		t.Fatalf("drop tables: %v", err)
	}

	store, err := cache.NewStore(ctx, dsn, ttl)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestLyricsRoundTrip(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	got, err := store.GetLyrics(ctx, "Beatles", "Yesterday")
	if err != nil {
		t.Fatalf("GetLyrics: %v", err)
	}
	if got != nil {
		t.Fatalf("expected miss on empty cache, got %+v", got)
	}

	in := &types.Lyrics{Text: "Yesterday, all my troubles...", Source: "lrclib"}
	if err := store.PutLyrics(ctx, "Beatles", "Yesterday", in); err != nil {
		t.Fatalf("PutLyrics: %v", err)
	}

	// Lookup is case-insensitive on the key.
	got, err = store.GetLyrics(ctx, "beatles", "YESTERDAY")
	if err != nil {
		t.Fatalf("GetLyrics: %v", err)
	}
	if got == nil || got.Text != in.Text || got.Source != "lrclib" {
		t.Errorf("GetLyrics = %+v, want cached entry", got)
	}
}

func TestTranslationRoundTrip(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	in := &types.Translation{Text: "Ayer", SourceLanguage: "en", TargetLanguage: "es", Source: "mymemory"}
	if err := store.PutTranslation(ctx, "Yesterday", "es", in); err != nil {
		t.Fatalf("PutTranslation: %v", err)
	}

	got, err := store.GetTranslation(ctx, "Yesterday", "es")
	if err != nil {
		t.Fatalf("GetTranslation: %v", err)
	}
	if got == nil || got.Text != "Ayer" || got.SourceLanguage != "en" {
		t.Errorf("GetTranslation = %+v, want cached entry", got)
	}

	// Different target language is a distinct entry.
	got, err = store.GetTranslation(ctx, "Yesterday", "fr")
	if err != nil {
		t.Fatalf("GetTranslation: %v", err)
	}
	if got != nil {
		t.Errorf("expected miss for other target, got %+v", got)
	}
}

func TestPutOverwritesOlderEntry(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	first := &types.Lyrics{Text: "old text", Source: "lyricsovh"}
	second := &types.Lyrics{Text: "new text", Source: "lrclib"}
	if err := store.PutLyrics(ctx, "a", "b", first); err != nil {
		t.Fatal(err)
	}
	if err := store.PutLyrics(ctx, "a", "b", second); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetLyrics(ctx, "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Text != "new text" {
		t.Errorf("GetLyrics = %+v, want the newer entry", got)
	}
}
