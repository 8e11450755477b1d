package translation

import (
	"strings"

	"github.com/verselate/verselate/pkg/types"
)

// Scoring weights for best-quality dispatch. The heuristic is deliberately
// crude: it ranks candidate translations against each other, it does not
// judge absolute quality.
const (
	baseScore       = 0.5
	ratioBonus      = 0.3
	artifactPenalty = 0.2
	trustBonus      = 0.1

	// Plausible translated/original length ratio bounds. Outside this range
	// the translation almost certainly truncated or padded the text.
	minLengthRatio = 0.3
	maxLengthRatio = 3.0
)

// artifactMarkers are substrings that betray a broken or partial machine
// translation: truncation ellipses, untranslated placeholder brackets, and
// template remnants.
var artifactMarkers = []string{
	"[...]",
	"…]",
	"{{",
	"}}",
	"%s",
	"MYMEMORY WARNING",
	"QUERY LENGTH LIMIT",
}

// ScoreQuality rates one candidate translation for best-quality dispatch.
// It rewards a plausible length ratio, penalises artifact markers, and gives
// designated high-trust providers a small fixed bonus. The signature matches
// the dispatcher's pluggable scorer so a real quality model can replace it
// without touching the fallback logic.
func ScoreQuality(req Request, res *types.Translation, trusted bool) float64 {
	if res == nil || strings.TrimSpace(res.Text) == "" {
		return 0
	}

	score := baseScore

	if len(req.Text) > 0 {
		ratio := float64(len(res.Text)) / float64(len(req.Text))
		if ratio >= minLengthRatio && ratio <= maxLengthRatio {
			score += ratioBonus
		}
	}

	upper := strings.ToUpper(res.Text)
	for _, marker := range artifactMarkers {
		if strings.Contains(upper, strings.ToUpper(marker)) {
			score -= artifactPenalty
			break
		}
	}

	if trusted {
		score += trustBonus
	}

	if score < 0 {
		score = 0
	}
	return score
}
