package pipeline

import "github.com/verselate/verselate/pkg/types"

// Confidence blending weights. The score is a heuristic for surfacing
// suspicious outcomes to callers, not an authoritative quality measure.
const (
	confidenceBase = 0.5

	// Recognition contributes at most this much, scaled by the provider's own
	// match confidence.
	recognitionWeight = 0.2

	// Lyrics length thresholds. Very short "lyrics" are usually an error page
	// or an instrumental stub that slipped through.
	lyricsShortBonus = 0.05 // > 100 chars
	lyricsLongBonus  = 0.05 // > 500 chars

	// Translations wildly shorter or longer than the input are suspect.
	ratioBonus     = 0.1
	minLengthRatio = 0.3
	maxLengthRatio = 3.0

	trustBonus   = 0.1
	errorPenalty = 0.1
)

// confidence blends a heuristic overall score for a completed run.
func (p *Pipeline) confidence(out *types.Outcome) float64 {
	score := confidenceBase

	if out.Recognition != nil {
		c := out.Recognition.Confidence
		if c > 1 {
			c = 1
		}
		score += recognitionWeight * c
	}

	if out.Lyrics != nil {
		n := len(out.Lyrics.Text)
		if n > 100 {
			score += lyricsShortBonus
		}
		if n > 500 {
			score += lyricsLongBonus
		}
	}

	if out.Translation != nil && out.Lyrics != nil && len(out.Lyrics.Text) > 0 {
		ratio := float64(len(out.Translation.Text)) / float64(len(out.Lyrics.Text))
		if ratio >= minLengthRatio && ratio <= maxLengthRatio {
			score += ratioBonus
		}
		if p.translation.TrustedEntry(out.Translation.Source) {
			score += trustBonus
		}
	}

	score -= errorPenalty * float64(len(out.Errors))

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
