// Package cache provides an optional PostgreSQL-backed result cache for
// lyrics and translations.
//
// Lyrics for a given artist and title rarely change, and translations are
// deterministic enough to reuse, so caching both saves the scarce provider
// quotas the rate limiter guards. The cache is keyed by normalised artist and
// title for lyrics, and by a content hash of the source text plus the target
// language for translations.
//
// Usage:
//
//	store, err := cache.NewStore(ctx, dsn, 7*24*time.Hour)
//	if err != nil { … }
//	defer store.Close()
//
// The store satisfies the pipeline's Cache interface. All operations are safe
// for concurrent use.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verselate/verselate/pkg/types"
)

const ddl = `
CREATE TABLE IF NOT EXISTS cached_lyrics (
    artist      TEXT         NOT NULL,
    title       TEXT         NOT NULL,
    text        TEXT         NOT NULL,
    synced      TEXT         NOT NULL DEFAULT '',
    source      TEXT         NOT NULL DEFAULT '',
    fetched_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (artist, title)
);

CREATE TABLE IF NOT EXISTS cached_translations (
    text_hash    TEXT         NOT NULL,
    target_lang  TEXT         NOT NULL,
    text         TEXT         NOT NULL,
    source_lang  TEXT         NOT NULL DEFAULT '',
    source       TEXT         NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (text_hash, target_lang)
);
`

// Store is the PostgreSQL-backed cache. Obtain one via [NewStore].
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, and runs [Migrate] to ensure the cache tables exist.
// A ttl of zero means entries never expire.
func NewStore(ctx context.Context, dsn string, ttl time.Duration) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("cache: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cache: migrate: %w", err)
	}

	return &Store{pool: pool, ttl: ttl}, nil
}

// Migrate creates the cache tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("cache: apply schema: %w", err)
	}
	return nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks connectivity, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetLyrics returns the cached lyrics for artist and title, or (nil, nil)
// when no fresh entry exists.
func (s *Store) GetLyrics(ctx context.Context, artist, title string) (*types.Lyrics, error) {
	const q = `
		SELECT text, synced, source
		FROM   cached_lyrics
		WHERE  artist = $1 AND title = $2
		  AND  ($3::bigint = 0 OR fetched_at >= now() - ($3::bigint * interval '1 microsecond'))`

	l := &types.Lyrics{Artist: artist, Title: title}
	err := s.pool.QueryRow(ctx, q, cacheKey(artist), cacheKey(title), s.ttl.Microseconds()).
		Scan(&l.Text, &l.Synced, &l.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get lyrics: %w", err)
	}
	return l, nil
}

// PutLyrics stores lyrics for artist and title, replacing any older entry.
func (s *Store) PutLyrics(ctx context.Context, artist, title string, l *types.Lyrics) error {
	const q = `
		INSERT INTO cached_lyrics (artist, title, text, synced, source, fetched_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (artist, title) DO UPDATE
		SET text = EXCLUDED.text, synced = EXCLUDED.synced,
		    source = EXCLUDED.source, fetched_at = EXCLUDED.fetched_at`

	if _, err := s.pool.Exec(ctx, q, cacheKey(artist), cacheKey(title), l.Text, l.Synced, l.Source); err != nil {
		return fmt.Errorf("cache: put lyrics: %w", err)
	}
	return nil
}

// GetTranslation returns the cached translation of text into targetLang, or
// (nil, nil) when no fresh entry exists.
func (s *Store) GetTranslation(ctx context.Context, text, targetLang string) (*types.Translation, error) {
	const q = `
		SELECT text, source_lang, source
		FROM   cached_translations
		WHERE  text_hash = $1 AND target_lang = $2
		  AND  ($3::bigint = 0 OR created_at >= now() - ($3::bigint * interval '1 microsecond'))`

	tr := &types.Translation{TargetLanguage: targetLang}
	err := s.pool.QueryRow(ctx, q, hashText(text), targetLang, s.ttl.Microseconds()).
		Scan(&tr.Text, &tr.SourceLanguage, &tr.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get translation: %w", err)
	}
	return tr, nil
}

// PutTranslation stores the translation of text into targetLang.
func (s *Store) PutTranslation(ctx context.Context, text, targetLang string, tr *types.Translation) error {
	const q = `
		INSERT INTO cached_translations (text_hash, target_lang, text, source_lang, source, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (text_hash, target_lang) DO UPDATE
		SET text = EXCLUDED.text, source_lang = EXCLUDED.source_lang,
		    source = EXCLUDED.source, created_at = EXCLUDED.created_at`

	if _, err := s.pool.Exec(ctx, q, hashText(text), targetLang, tr.Text, tr.SourceLanguage, tr.Source); err != nil {
		return fmt.Errorf("cache: put translation: %w", err)
	}
	return nil
}

// cacheKey normalises a lyrics lookup key so trivial casing and spacing
// differences share an entry.
func cacheKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// hashText keys translations by content without storing the source text twice.
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
