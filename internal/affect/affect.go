// Package affect extracts a small numeric emotion tuple (PAD:
// valence/arousal/dominance) from content text. The built-in extractor is
// a deterministic lexicon scorer; it exists to satisfy the collaborator
// contract, not to model genuine affect.
package affect

import (
	"strings"
	"unicode"

	"mnemo/internal/logging"
	"mnemo/internal/types"
)

// Extractor produces an emotion vector for a piece of content.
type Extractor interface {
	Extract(content string) types.PAD
	Name() string
}

// lexiconEntry scores one word on the three PAD axes.
type lexiconEntry struct {
	valence   float64
	arousal   float64
	dominance float64
	tag       string
}

// Deterministic word lexicon. Scores are coarse; the model only needs a
// stable, bounded signal.
var lexicon = map[string]lexiconEntry{
	"love":      {0.9, 0.6, 0.4, "joy"},
	"loved":     {0.9, 0.6, 0.4, "joy"},
	"like":      {0.5, 0.3, 0.2, "joy"},
	"enjoy":     {0.7, 0.5, 0.3, "joy"},
	"happy":     {0.8, 0.5, 0.4, "joy"},
	"great":     {0.7, 0.4, 0.4, "joy"},
	"wonderful": {0.8, 0.5, 0.4, "joy"},
	"excited":   {0.7, 0.9, 0.5, "joy"},
	"favorite":  {0.6, 0.3, 0.3, "joy"},
	"calm":      {0.4, -0.6, 0.3, "calm"},
	"peaceful":  {0.5, -0.7, 0.3, "calm"},
	"sad":       {-0.7, -0.3, -0.4, "sadness"},
	"miss":      {-0.4, -0.1, -0.3, "sadness"},
	"lost":      {-0.5, -0.2, -0.5, "sadness"},
	"lonely":    {-0.6, -0.3, -0.5, "sadness"},
	"angry":     {-0.6, 0.8, 0.3, "anger"},
	"hate":      {-0.8, 0.7, 0.3, "anger"},
	"furious":   {-0.7, 0.9, 0.4, "anger"},
	"annoyed":   {-0.4, 0.5, 0.1, "anger"},
	"afraid":    {-0.6, 0.7, -0.6, "fear"},
	"scared":    {-0.6, 0.8, -0.6, "fear"},
	"worried":   {-0.5, 0.6, -0.4, "fear"},
	"anxious":   {-0.5, 0.7, -0.5, "fear"},
	"nervous":   {-0.4, 0.6, -0.4, "fear"},
	"curious":   {0.4, 0.5, 0.2, "curiosity"},
	"wonder":    {0.3, 0.4, 0.1, "curiosity"},
	"why":       {0.1, 0.3, 0.0, "curiosity"},
	"how":       {0.1, 0.2, 0.0, "curiosity"},
	"surprised": {0.2, 0.8, -0.1, "surprise"},
	"amazing":   {0.7, 0.7, 0.3, "surprise"},
	"proud":     {0.7, 0.4, 0.7, "pride"},
	"confident": {0.6, 0.3, 0.8, "pride"},
	"tired":     {-0.3, -0.6, -0.3, "fatigue"},
	"exhausted": {-0.5, -0.5, -0.4, "fatigue"},
}

// LexiconExtractor is the deterministic built-in extractor.
type LexiconExtractor struct{}

// NewLexiconExtractor returns the built-in extractor.
func NewLexiconExtractor() *LexiconExtractor { return &LexiconExtractor{} }

// Extract scores content against the lexicon. Matched word scores are
// averaged, exclamation marks amplify arousal, and each distinct tag is
// carried once in match order. Unmatched content yields the neutral tuple.
func (x *LexiconExtractor) Extract(content string) types.PAD {
	words := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	var pad types.PAD
	var matched int
	seen := map[string]bool{}
	for _, w := range words {
		entry, ok := lexicon[w]
		if !ok {
			continue
		}
		matched++
		pad.Valence += entry.valence
		pad.Arousal += entry.arousal
		pad.Dominance += entry.dominance
		if entry.tag != "" && !seen[entry.tag] {
			seen[entry.tag] = true
			pad.Tags = append(pad.Tags, entry.tag)
		}
	}
	if matched == 0 {
		logging.AffectDebug("no lexicon matches in %d words, neutral PAD", len(words))
		return types.PAD{}
	}

	pad.Valence /= float64(matched)
	pad.Arousal /= float64(matched)
	pad.Dominance /= float64(matched)

	// Exclamation marks push arousal up, bounded.
	if n := strings.Count(content, "!"); n > 0 {
		pad.Arousal += 0.1 * float64(min(n, 3))
	}
	pad.Valence = clamp(pad.Valence)
	pad.Arousal = clamp(pad.Arousal)
	pad.Dominance = clamp(pad.Dominance)

	logging.AffectDebug("extracted PAD v=%.2f a=%.2f d=%.2f tags=%v", pad.Valence, pad.Arousal, pad.Dominance, pad.Tags)
	return pad
}

// Name returns the extractor name.
func (x *LexiconExtractor) Name() string { return "lexicon" }

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
