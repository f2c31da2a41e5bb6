package main

import "regexp"

const (
	emDash = "\u2014"
	enDash = "\u2013"
)

var dashPatterns = map[Mode]*regexp.Regexp{
	ModeEm:   regexp.MustCompile(emDash),
	ModeEn:   regexp.MustCompile(enDash),
	ModeBoth: regexp.MustCompile("[" + enDash + emDash + "]"),
}

// ActivePattern is the matching rule plus the literal that replaces matches.
// It is immutable once built; a settings change builds a new one.
type ActivePattern struct {
	Mode        Mode
	Regex       *regexp.Regexp
	Replacement string
}

// ResolvePattern returns the pattern for mode. Unknown modes resolve to em
// and unknown replacements to ", ".
func ResolvePattern(mode Mode, replacement string) *ActivePattern {
	mode = NormalizeMode(string(mode))
	return &ActivePattern{
		Mode:        mode,
		Regex:       dashPatterns[mode],
		Replacement: NormalizeReplacement(replacement),
	}
}

// Matches reports whether s contains a dash this pattern replaces
func (p *ActivePattern) Matches(s string) bool {
	return p.Regex.MatchString(s)
}

// Apply replaces every match in s with the replacement literal
func (p *ActivePattern) Apply(s string) string {
	return p.Regex.ReplaceAllLiteralString(s, p.Replacement)
}
