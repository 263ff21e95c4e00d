package cv

import "strings"

// SkillLevel is the proficiency of a skill or tool.
type SkillLevel string

// Skill levels in ascending order.
const (
	LevelBeginner SkillLevel = "beginner"
	LevelMedium   SkillLevel = "medium"
	LevelAdvanced SkillLevel = "advanced"
	LevelExpert   SkillLevel = "expert"
)

// Ordinal returns 1..4 for known levels. Unknown levels count as medium.
func (l SkillLevel) Ordinal() int {
	switch SkillLevel(strings.ToLower(string(l))) {
	case LevelBeginner:
		return 1
	case LevelAdvanced:
		return 3
	case LevelExpert:
		return 4
	default:
		return 2
	}
}

// Valid reports whether l is one of the four known levels.
func (l SkillLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelMedium, LevelAdvanced, LevelExpert:
		return true
	}
	return false
}

// LanguageTier is the display tier of a language proficiency label.
type LanguageTier int

// Language tiers in ascending order.
const (
	TierBeginner LanguageTier = iota
	TierIntermediate
	TierAdvanced
	TierNative
)

func (t LanguageTier) String() string {
	switch t {
	case TierNative:
		return "native"
	case TierAdvanced:
		return "advanced"
	case TierIntermediate:
		return "intermediate"
	default:
		return "beginner"
	}
}

// Ordinal returns 1..4, used for proficiency bars.
func (t LanguageTier) Ordinal() int {
	return int(t) + 1
}

// ClassifyLanguage maps a free-form label to a tier by case-insensitive
// substring: native/natif, then c1/c2/advanced, then b1/b2/inter. Anything
// else, including the empty label, is beginner.
func ClassifyLanguage(level string) LanguageTier {
	l := strings.ToLower(level)
	switch {
	case strings.Contains(l, "native"), strings.Contains(l, "natif"):
		return TierNative
	case strings.Contains(l, "c1"), strings.Contains(l, "c2"), strings.Contains(l, "advanced"):
		return TierAdvanced
	case strings.Contains(l, "b1"), strings.Contains(l, "b2"), strings.Contains(l, "inter"):
		return TierIntermediate
	default:
		return TierBeginner
	}
}

// levelKeys is the exact-match vocabulary used for printed phrases.
var levelKeys = map[string]LanguageTier{
	"native":            TierNative,
	"natif":             TierNative,
	"native speaker":    TierNative,
	"mother tongue":     TierNative,
	"langue maternelle": TierNative,
	"bilingual":         TierNative,
	"bilingue":          TierNative,
	"c2":                TierAdvanced,
	"c1":                TierAdvanced,
	"advanced":          TierAdvanced,
	"avancé":            TierAdvanced,
	"fluent":            TierAdvanced,
	"courant":           TierAdvanced,
	"b2":                TierIntermediate,
	"b1":                TierIntermediate,
	"intermediate":      TierIntermediate,
	"intermédiaire":     TierIntermediate,
	"a2":                TierBeginner,
	"a1":                TierBeginner,
	"beginner":          TierBeginner,
	"débutant":          TierBeginner,
	"elementary":        TierBeginner,
	"notions":           TierBeginner,
}

// LookupLanguageLevel finds the tier of a known label after trimming and
// lower-casing. ok is false for labels outside the vocabulary.
func LookupLanguageLevel(level string) (tier LanguageTier, ok bool) {
	tier, ok = levelKeys[strings.ToLower(strings.TrimSpace(level))]
	return tier, ok
}
