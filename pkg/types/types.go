// Package types holds the domain types shared between the Verselate pipeline,
// the fallback dispatcher, and the provider adapters.
//
// Everything in this package is request-scoped: a fresh [Outcome] is created
// per pipeline invocation and fully owned by the caller once returned. The
// only state that survives a pipeline run is the rate limiter's counters,
// which live elsewhere.
package types

import "time"

// SongInfo is the result of the recognition stage: the identified song plus
// the provider's own confidence in the match.
type SongInfo struct {
	// Artist is the performing artist as reported by the provider.
	Artist string `json:"artist"`

	// Title is the track title as reported by the provider.
	Title string `json:"title"`

	// Album is the release the track appears on. May be empty.
	Album string `json:"album,omitempty"`

	// Confidence is the provider-reported match confidence in [0, 1].
	// Zero when the provider does not report one.
	Confidence float64 `json:"confidence"`

	// Source names the provider that produced this result (e.g. "acrcloud").
	Source string `json:"source"`
}

// Lyrics is the result of the lyrics stage.
type Lyrics struct {
	// Text is the plain lyrics text.
	Text string `json:"text"`

	// Synced is the time-synchronised LRC variant when the provider supplies
	// one. May be empty.
	Synced string `json:"synced,omitempty"`

	// Artist and Title echo the provider's own metadata for the match, used
	// to verify the provider returned the requested song. May be empty.
	Artist string `json:"artist,omitempty"`
	Title  string `json:"title,omitempty"`

	// Source names the provider that produced this result.
	Source string `json:"source"`
}

// Translation is the result of the translation stage.
type Translation struct {
	// Text is the translated lyrics text.
	Text string `json:"text"`

	// SourceLanguage is the detected or caller-supplied input language.
	SourceLanguage string `json:"source_language,omitempty"`

	// TargetLanguage is the language the text was translated into.
	TargetLanguage string `json:"target_language"`

	// Source names the provider that produced this result.
	Source string `json:"source"`
}

// ServiceError records a single provider or stage failure. Errors are
// accumulated on the [Outcome] and never raised to the caller.
type ServiceError struct {
	// Service is the provider key or stage name that failed.
	Service string `json:"service"`

	// Message describes the failure.
	Message string `json:"message"`

	// RetryAfter is how long until the provider's rate-limit window frees a
	// slot. Zero for failures that are not admission-related.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Outcome is the structured result of one pipeline run. Stage pointers are
// nil when the stage did not run or exhausted all of its providers; callers
// must check for presence rather than rely on errors.
type Outcome struct {
	Recognition *SongInfo    `json:"recognition,omitempty"`
	Lyrics      *Lyrics      `json:"lyrics,omitempty"`
	Translation *Translation `json:"translation,omitempty"`

	// Errors holds every provider and stage failure collected during the run,
	// in the order they occurred.
	Errors []ServiceError `json:"errors,omitempty"`

	// ProcessingTime is the wall-clock duration of the run.
	ProcessingTime time.Duration `json:"processing_time"`

	// Confidence is a heuristic overall score in [0, 1]; see the pipeline
	// package for how it is blended.
	Confidence float64 `json:"confidence"`
}

// Failed reports whether the run recorded any errors.
func (o *Outcome) Failed() bool {
	return len(o.Errors) > 0
}

// Request is one unit of work for batch translation. Exactly one of Audio or
// Artist+Title or Text should be populated; the pipeline picks the entry
// point accordingly.
type Request struct {
	// Audio is a raw audio sample for recognition.
	Audio []byte `json:"audio,omitempty"`

	// Artist and Title identify the song directly, skipping recognition.
	Artist string `json:"artist,omitempty"`
	Title  string `json:"title,omitempty"`

	// Text is raw lyrics text, skipping recognition and lyrics lookup.
	Text string `json:"text"`

	// TargetLanguage is the language to translate into. Required.
	TargetLanguage string `json:"target_language"`

	// SourceLanguage is the input language. Empty means auto-detect.
	SourceLanguage string `json:"source_language,omitempty"`
}
