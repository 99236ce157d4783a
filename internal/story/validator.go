package story

import (
	"fmt"
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

// defaultAnchorPattern matches the numeric anchors the Evidence block must
// carry: a 4-digit year (1900-2099), a percentage, or a dollar amount with
// optional thousands separators.
const defaultAnchorPattern = `\b(19|20)\d{2}\b|\b\d+%|\$\s*\d{1,3}(?:,\d{3})*\b`

var wordRE = regexp.MustCompile(`\w+`)

// countWords counts runs of alphanumeric characters, insensitive to
// whitespace and punctuation.
func countWords(s string) int {
	return len(wordRE.FindAllString(s, -1))
}

// Ruleset holds the structural thresholds the validator enforces.
type Ruleset struct {
	MinTotalWords    int    `yaml:"min_total_words" mapstructure:"min_total_words"`
	TargetMinWords   int    `yaml:"target_min_words" mapstructure:"target_min_words"`
	TargetMaxWords   int    `yaml:"target_max_words" mapstructure:"target_max_words"`
	MinEvidenceWords int    `yaml:"min_evidence_words" mapstructure:"min_evidence_words"`
	AnchorPattern    string `yaml:"anchor_pattern" mapstructure:"anchor_pattern"`
}

// DefaultRuleset returns the production thresholds: 140-160 words total for a
// 60-second narration, 130 as the hard rewrite floor, 100-word Evidence
// minimum.
func DefaultRuleset() Ruleset {
	return Ruleset{
		MinTotalWords:    130,
		TargetMinWords:   140,
		TargetMaxWords:   160,
		MinEvidenceWords: 100,
		AnchorPattern:    defaultAnchorPattern,
	}
}

// LoadRuleset reads validation thresholds from a YAML file with a top-level
// "validation" key. Zero-valued fields fall back to the defaults.
func LoadRuleset(path string) (Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Ruleset{}, eris.Wrapf(err, "story: read ruleset %s", path)
	}

	var wrapper struct {
		Validation Ruleset `yaml:"validation"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Ruleset{}, eris.Wrap(err, "story: parse ruleset")
	}

	r := wrapper.Validation
	def := DefaultRuleset()
	if r.MinTotalWords <= 0 {
		r.MinTotalWords = def.MinTotalWords
	}
	if r.TargetMinWords <= 0 {
		r.TargetMinWords = def.TargetMinWords
	}
	if r.TargetMaxWords <= 0 {
		r.TargetMaxWords = def.TargetMaxWords
	}
	if r.MinEvidenceWords <= 0 {
		r.MinEvidenceWords = def.MinEvidenceWords
	}
	if r.AnchorPattern == "" {
		r.AnchorPattern = def.AnchorPattern
	}
	return r, nil
}

// AnchorPredicate reports whether text contains a usable numeric anchor. It
// is injectable so tests and non-English locales can supply their own check.
type AnchorPredicate func(text string) bool

// Validator applies the structural and lexical rules to a candidate story.
// Checks run in priority order; the first failure becomes the verdict.
type Validator struct {
	rules  Ruleset
	anchor AnchorPredicate
}

// ValidatorOption configures the validator.
type ValidatorOption func(*Validator)

// WithAnchorPredicate replaces the regex-based numeric-anchor check.
func WithAnchorPredicate(p AnchorPredicate) ValidatorOption {
	return func(v *Validator) {
		v.anchor = p
	}
}

// NewValidator creates a validator for the given ruleset.
func NewValidator(rules Ruleset, opts ...ValidatorOption) *Validator {
	v := &Validator{rules: rules}
	for _, o := range opts {
		o(v)
	}
	if v.anchor == nil {
		pattern := rules.AnchorPattern
		if pattern == "" {
			pattern = defaultAnchorPattern
		}
		re := regexp.MustCompile(pattern)
		v.anchor = re.MatchString
	}
	return v
}

// Check validates a candidate story and returns the verdict. The defect
// string names the first violated rule only.
func (v *Validator) Check(s model.Story) model.Verdict {
	if len(s.Bullets) != 3 {
		return model.Fail("Draft must contain three bullets: Hook, Evidence, Loop.")
	}

	hook := s.Bullets[0].Text
	evidence := s.Bullets[1].Text
	loop := s.Bullets[2].Text
	total := countWords(hook) + countWords(evidence) + countWords(loop)

	r := v.rules
	if total < r.MinTotalWords {
		return model.Fail(fmt.Sprintf("Total words %d < %d: failure, increase density to %d-%d words.",
			total, r.MinTotalWords, r.TargetMinWords, r.TargetMaxWords))
	}
	if total < r.TargetMinWords || total > r.TargetMaxWords {
		return model.Fail(fmt.Sprintf("Total words %d not in required %d-%d range.",
			total, r.TargetMinWords, r.TargetMaxWords))
	}
	if ew := countWords(evidence); ew < r.MinEvidenceWords {
		return model.Fail(fmt.Sprintf("Evidence block too short (%d words). Must be >=%d words.",
			ew, r.MinEvidenceWords))
	}
	if !v.anchor(evidence) {
		return model.Fail("Evidence block must include specific numbers/dates (e.g., '1970', '40%', '$23,000').")
	}
	return model.Pass()
}
