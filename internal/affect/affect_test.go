package affect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractNeutralOnNoMatch(t *testing.T) {
	x := NewLexiconExtractor()
	pad := x.Extract("the quarterly spreadsheet was filed on schedule")
	assert.Zero(t, pad.Valence)
	assert.Zero(t, pad.Arousal)
	assert.Zero(t, pad.Dominance)
	assert.Empty(t, pad.Tags)
}

func TestExtractValenceSigns(t *testing.T) {
	x := NewLexiconExtractor()

	happy := x.Extract("I was so happy and excited about the wonderful trip")
	assert.Greater(t, happy.Valence, 0.0)
	assert.Contains(t, happy.Tags, "joy")

	sad := x.Extract("feeling sad and lonely, I miss the old house")
	assert.Less(t, sad.Valence, 0.0)
	assert.Contains(t, sad.Tags, "sadness")
}

func TestExtractDeterministic(t *testing.T) {
	x := NewLexiconExtractor()
	content := "worried but curious about the surprise"
	first := x.Extract(content)
	second := x.Extract(content)
	assert.Equal(t, first, second)
}

func TestExclamationBoostsArousal(t *testing.T) {
	x := NewLexiconExtractor()
	flat := x.Extract("that was great")
	loud := x.Extract("that was great!!!")
	assert.Greater(t, loud.Arousal, flat.Arousal)

	// The boost is bounded: a wall of exclamation marks behaves like three.
	wall := x.Extract("that was great!!!!!!!!!!")
	assert.Equal(t, loud.Arousal, wall.Arousal)
}

func TestExtractStaysInRange(t *testing.T) {
	x := NewLexiconExtractor()
	pad := x.Extract("love love love excited amazing wonderful!!!")
	assert.LessOrEqual(t, pad.Valence, 1.0)
	assert.LessOrEqual(t, pad.Arousal, 1.0)
	assert.GreaterOrEqual(t, pad.Dominance, -1.0)
}

func TestTagsDedupedInMatchOrder(t *testing.T) {
	x := NewLexiconExtractor()
	pad := x.Extract("happy then angry then happy again then scared")
	assert.Equal(t, []string{"joy", "anger", "fear"}, pad.Tags)
}
