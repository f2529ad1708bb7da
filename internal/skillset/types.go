package skillset

// Severity classifies how strongly a skill's guidance is meant to be
// enforced. It is carried through to reports for display; the evaluation
// engine itself treats all severities the same.
type Severity string

const (
	SeverityBlock   Severity = "BLOCK"
	SeverityWarn    Severity = "WARN"
	SeveritySuggest Severity = "SUGGEST"
)

// ParseSeverity maps a frontmatter value to a Severity. The second return
// is false for unknown values, in which case callers fall back to SUGGEST.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case SeverityBlock, SeverityWarn, SeveritySuggest:
		return Severity(s), true
	default:
		return SeveritySuggest, false
	}
}

// Skill is one named block of behavioral guidance plus its test cases.
// Skills are immutable once loaded; a registry is built once per run.
type Skill struct {
	Slug        string
	Dir         string
	Description string
	Severity    Severity

	// Guidance is the markdown body of SKILL.md, prepended verbatim to the
	// test input when building the skill-augmented prompt.
	Guidance string

	Tests []TestCase
}

// TestCase is a single prompt plus its mechanical expectations. Input is
// either literal prompt text or the name of a file colocated with the skill.
type TestCase struct {
	Name   string          `json:"name"`
	Input  string          `json:"input"`
	Expect ExpectationSpec `json:"expected"`
}

// ExpectationSpec is a conjunction of optional checks against a model
// response. An absent field skips that check; a spec with every field empty
// passes trivially.
type ExpectationSpec struct {
	Includes  []string `json:"includes,omitempty"`
	Excludes  []string `json:"excludes,omitempty"`
	Regex     []string `json:"regex,omitempty"`
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
}

// Empty reports whether no checks are configured.
func (s ExpectationSpec) Empty() bool {
	return len(s.Includes) == 0 && len(s.Excludes) == 0 && len(s.Regex) == 0 &&
		s.MinLength == nil && s.MaxLength == nil
}

// Warning records a skill directory that was skipped during discovery.
// One malformed skill never aborts the rest of the run.
type Warning struct {
	Slug   string `json:"slug"`
	Reason string `json:"reason"`
}
