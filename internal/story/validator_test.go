package story

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

// words builds a text of exactly n whitespace-separated words.
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

// anchoredWords builds n words ending in a year anchor.
func anchoredWords(n int) string {
	return words(n-1) + " 1970"
}

func threeBlockStory(hook, evidence, loop string) model.Story {
	return model.Story{
		Bullets: []model.Bullet{
			{Symbol: "SPY", Text: hook},
			{Symbol: "SPY", Text: evidence},
			{Symbol: "SPY", Text: loop},
		},
	}
}

func TestValidatorBulletCount(t *testing.T) {
	v := NewValidator(DefaultRuleset())

	verdict := v.Check(model.Story{Bullets: []model.Bullet{{Text: "a"}, {Text: "b"}}})
	assert.False(t, verdict.OK)
	assert.Equal(t, "Draft must contain three bullets: Hook, Evidence, Loop.", verdict.Defect)

	verdict = v.Check(model.Story{Bullets: []model.Bullet{{}, {}, {}, {}}})
	assert.False(t, verdict.OK)
	assert.Equal(t, "Draft must contain three bullets: Hook, Evidence, Loop.", verdict.Defect)
}

func TestValidatorBelowHardFloor(t *testing.T) {
	v := NewValidator(DefaultRuleset())

	verdict := v.Check(threeBlockStory(words(5), words(5), words(5)))
	assert.False(t, verdict.OK)
	assert.Equal(t, "Total words 15 < 130: failure, increase density to 140-160 words.", verdict.Defect)
}

func TestValidatorOutsideTargetRange(t *testing.T) {
	v := NewValidator(DefaultRuleset())

	// Above the floor but under the target minimum.
	verdict := v.Check(threeBlockStory(words(15), anchoredWords(105), words(15)))
	assert.False(t, verdict.OK)
	assert.Equal(t, "Total words 135 not in required 140-160 range.", verdict.Defect)

	// Over the target maximum.
	verdict = v.Check(threeBlockStory(words(30), anchoredWords(105), words(30)))
	assert.False(t, verdict.OK)
	assert.Equal(t, "Total words 165 not in required 140-160 range.", verdict.Defect)
}

func TestValidatorEvidenceTooShort(t *testing.T) {
	v := NewValidator(DefaultRuleset())

	verdict := v.Check(threeBlockStory(words(50), anchoredWords(50), words(45)))
	assert.False(t, verdict.OK)
	assert.Equal(t, "Evidence block too short (50 words). Must be >=100 words.", verdict.Defect)
}

func TestValidatorMissingAnchor(t *testing.T) {
	v := NewValidator(DefaultRuleset())

	verdict := v.Check(threeBlockStory(words(20), words(105), words(20)))
	assert.False(t, verdict.OK)
	assert.Equal(t, "Evidence block must include specific numbers/dates (e.g., '1970', '40%', '$23,000').", verdict.Defect)
}

func TestValidatorAnchorForms(t *testing.T) {
	v := NewValidator(DefaultRuleset())

	for _, anchor := range []string{"1970", "2024", "40%", "$23,000", "$5"} {
		evidence := words(104) + " " + anchor
		verdict := v.Check(threeBlockStory(words(20), evidence, words(19)))
		assert.True(t, verdict.OK, "anchor %q should satisfy the check", anchor)
	}
}

func TestValidatorPass(t *testing.T) {
	v := NewValidator(DefaultRuleset())

	verdict := v.Check(threeBlockStory(words(20), anchoredWords(105), words(20)))
	assert.True(t, verdict.OK)
	assert.Empty(t, verdict.Defect)
}

func TestValidatorCustomAnchorPredicate(t *testing.T) {
	v := NewValidator(DefaultRuleset(), WithAnchorPredicate(func(string) bool { return true }))

	// No numeric content at all, yet the injected predicate accepts.
	verdict := v.Check(threeBlockStory(words(20), words(105), words(20)))
	assert.True(t, verdict.OK)
}

func TestLoadRuleset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"validation:\n  min_total_words: 90\n  target_min_words: 100\n  target_max_words: 120\n"), 0o644))

	r, err := LoadRuleset(path)
	require.NoError(t, err)
	assert.Equal(t, 90, r.MinTotalWords)
	assert.Equal(t, 100, r.TargetMinWords)
	assert.Equal(t, 120, r.TargetMaxWords)
	// Unset fields fall back to defaults.
	assert.Equal(t, 100, r.MinEvidenceWords)
	assert.Equal(t, defaultAnchorPattern, r.AnchorPattern)
}

func TestLoadRulesetMissingFile(t *testing.T) {
	_, err := LoadRuleset(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, countWords(""))
	assert.Equal(t, 3, countWords("one two three"))
	assert.Equal(t, 4, countWords("up 40% since 1970."))
}
