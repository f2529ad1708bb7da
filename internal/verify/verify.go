// Package verify implements the mechanical half of evaluation: deterministic
// pattern checks against a model response. Verify is a pure function -- same
// response and spec always yield the same verdict -- and is total over any
// text input.
package verify

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/skillbench/skillbench/internal/skillset"
)

// Check names used in violations.
const (
	CheckIncludes  = "includes"
	CheckExcludes  = "excludes"
	CheckRegex     = "regex"
	CheckMinLength = "min_length"
	CheckMaxLength = "max_length"
)

// Violation identifies one failed sub-check.
type Violation struct {
	Check  string `json:"check"`
	Detail string `json:"detail"`
}

// Verdict is the outcome of mechanical verification. Violations carries
// every failed sub-check, not just the first, so diagnostics are actionable.
type Verdict struct {
	Pass       bool        `json:"pass"`
	Violations []Violation `json:"violations,omitempty"`
}

// Verify checks a response against an expectation spec. Every check is
// evaluated even after an earlier one fails; there is no short-circuiting.
// A spec with no checks configured passes trivially.
func Verify(response string, spec skillset.ExpectationSpec) Verdict {
	var violations []Violation

	for _, want := range spec.Includes {
		if !strings.Contains(response, want) {
			violations = append(violations, Violation{
				Check:  CheckIncludes,
				Detail: fmt.Sprintf("missing required substring %q", want),
			})
		}
	}

	for _, forbidden := range spec.Excludes {
		if strings.Contains(response, forbidden) {
			violations = append(violations, Violation{
				Check:  CheckExcludes,
				Detail: fmt.Sprintf("found forbidden substring %q", forbidden),
			})
		}
	}

	for _, pattern := range spec.Regex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			// The verifier is total: an uncompilable pattern is reported as
			// a failed check, never an error.
			violations = append(violations, Violation{
				Check:  CheckRegex,
				Detail: fmt.Sprintf("invalid pattern %q: %v", pattern, err),
			})
			continue
		}
		if !re.MatchString(response) {
			violations = append(violations, Violation{
				Check:  CheckRegex,
				Detail: fmt.Sprintf("no match for pattern %q", pattern),
			})
		}
	}

	// Length bounds count characters of the full response, not bytes.
	length := utf8.RuneCountInString(response)
	if spec.MinLength != nil && length < *spec.MinLength {
		violations = append(violations, Violation{
			Check:  CheckMinLength,
			Detail: fmt.Sprintf("response has %d characters, need at least %d", length, *spec.MinLength),
		})
	}
	if spec.MaxLength != nil && length > *spec.MaxLength {
		violations = append(violations, Violation{
			Check:  CheckMaxLength,
			Detail: fmt.Sprintf("response has %d characters, limit is %d", length, *spec.MaxLength),
		})
	}

	return Verdict{Pass: len(violations) == 0, Violations: violations}
}

// FailedChecks returns the distinct check names that failed, in evaluation
// order.
func (v Verdict) FailedChecks() []string {
	var names []string
	seen := make(map[string]bool)
	for _, violation := range v.Violations {
		if !seen[violation.Check] {
			seen[violation.Check] = true
			names = append(names, violation.Check)
		}
	}
	return names
}
