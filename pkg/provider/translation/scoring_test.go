package translation

import (
	"strings"
	"testing"

	"github.com/verselate/verselate/pkg/types"
)

func TestScoreQuality(t *testing.T) {
	req := Request{Text: "these are the original lyrics of the song", TargetLanguage: "es"}

	tests := []struct {
		name    string
		res     *types.Translation
		trusted bool
		wantMin float64
		wantMax float64
	}{
		{
			name:    "plausible translation",
			res:     &types.Translation{Text: "estas son las letras originales de la cancion"},
			wantMin: 0.79, wantMax: 0.81,
		},
		{
			name:    "plausible and trusted",
			res:     &types.Translation{Text: "estas son las letras originales de la cancion"},
			trusted: true,
			wantMin: 0.89, wantMax: 0.91,
		},
		{
			name:    "suspiciously short",
			res:     &types.Translation{Text: "si"},
			wantMin: 0.49, wantMax: 0.51,
		},
		{
			name:    "artifact marker",
			res:     &types.Translation{Text: "estas son las letras [...] de la cancion"},
			wantMin: 0.59, wantMax: 0.61,
		},
		{
			name:    "mymemory quota warning",
			res:     &types.Translation{Text: "MYMEMORY WARNING: YOU USED ALL AVAILABLE FREE TRANSLATIONS FOR TODAY " + strings.Repeat("x", 20)},
			wantMin: 0.59, wantMax: 0.61,
		},
		{
			name:    "nil result",
			res:     nil,
			wantMin: 0, wantMax: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreQuality(req, tt.res, tt.trusted)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("ScoreQuality = %f, want in [%f, %f]", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestScoreQuality_TrustBreaksTies(t *testing.T) {
	req := Request{Text: "hello world, this is a test"}
	res := &types.Translation{Text: "hola mundo, esto es una prueba"}

	plain := ScoreQuality(req, res, false)
	trusted := ScoreQuality(req, res, true)
	if trusted <= plain {
		t.Errorf("trusted score %f should exceed untrusted %f", trusted, plain)
	}
}
