package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per pipeline stage.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"recognition": {"acrcloud", "audd"},
	"lyrics":      {"musixmatch", "lyricsovh", "lrclib"},
	"translation": {"mymemory", "libretranslate", "googletrans", "openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Occurrences of ${VAR} in the document are replaced with the
// value of the environment variable VAR before decoding, so credentials can
// stay out of the file itself.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg, err := LoadFromReader(strings.NewReader(expandEnv(string(raw))))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
// It does not perform environment expansion; [Load] does that on the raw file.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references with environment values. Unset
// variables expand to the empty string, which downstream code treats as
// "provider not configured". Bare $VAR is left alone so YAML content such
// as shell snippets survives.
func expandEnv(doc string) string {
	return envRef.ReplaceAllStringFunc(doc, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Pipeline.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("pipeline.retry_attempts %d must not be negative", cfg.Pipeline.RetryAttempts))
	}
	if cfg.Pipeline.BatchConcurrency < 0 {
		errs = append(errs, fmt.Errorf("pipeline.batch_concurrency %d must not be negative", cfg.Pipeline.BatchConcurrency))
	}

	errs = append(errs, validateStage("recognition", cfg.Providers.Recognition)...)
	errs = append(errs, validateStage("lyrics", cfg.Providers.Lyrics)...)
	errs = append(errs, validateStage("translation", cfg.Providers.Translation)...)

	if len(cfg.Providers.Translation) == 0 {
		errs = append(errs, errors.New("providers.translation must list at least one provider"))
	}
	if len(cfg.Providers.Lyrics) == 0 {
		slog.Warn("providers.lyrics is empty; only pre-fetched lyrics can be translated")
	}
	if len(cfg.Providers.Recognition) == 0 {
		slog.Warn("providers.recognition is empty; audio input will not be supported")
	}
	if cfg.Cache.PostgresDSN == "" {
		slog.Debug("cache.postgres_dsn is empty; result caching disabled")
	}

	return errors.Join(errs...)
}

// validateStage checks one stage's provider list.
func validateStage(stage string, entries []ProviderEntry) []error {
	var errs []error
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		prefix := fmt.Sprintf("providers.%s[%d]", stage, i)
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := seen[e.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of providers.%s[%d]", prefix, e.Name, stage, prev))
		}
		seen[e.Name] = i

		validateProviderName(stage, e.Name)

		if e.RateLimit.MaxRequests < 0 {
			errs = append(errs, fmt.Errorf("%s.rate_limit.max_requests %d must not be negative", prefix, e.RateLimit.MaxRequests))
		}
		if e.RateLimit.MaxRequests > 0 && e.RateLimit.WindowMs <= 0 {
			errs = append(errs, fmt.Errorf("%s.rate_limit.window_ms is required when max_requests is set", prefix))
		}
		if e.TimeoutMs < 0 {
			errs = append(errs, fmt.Errorf("%s.timeout_ms %d must not be negative", prefix, e.TimeoutMs))
		}
	}
	return errs
}

// validateProviderName logs a warning if name is not found in the
// [ValidProviderNames] list for the given stage.
func validateProviderName(stage, name string) {
	known, ok := ValidProviderNames[stage]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"stage", stage,
		"name", name,
		"known", known,
	)
}
