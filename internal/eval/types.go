// Package eval runs the dual-pass evaluation of a skill's test cases
// against one model and combines the mechanical and semantic signals into a
// final decision.
package eval

import (
	"github.com/skillbench/skillbench/internal/judge"
	"github.com/skillbench/skillbench/internal/provider"
	"github.com/skillbench/skillbench/internal/skillset"
	"github.com/skillbench/skillbench/internal/verify"
)

// Improvement classifies whether the skill made the output better.
type Improvement string

const (
	ImprovementYes     Improvement = "yes"
	ImprovementNo      Improvement = "no"
	ImprovementNeutral Improvement = "neutral"
)

// Decision is the reconciled outcome for one record. It is derived only by
// Decide, never set independently, so it can never drift from the stored
// sub-results.
type Decision struct {
	Pass          bool        `json:"pass"`
	Improvement   Improvement `json:"improvement"`
	JudgeDegraded bool        `json:"judge_degraded,omitempty"`
}

// Record is the full, immutable outcome for one
// (skill, test case, provider, model) tuple.
type Record struct {
	ID       string            `json:"id"`
	Skill    string            `json:"skill"`
	Severity skillset.Severity `json:"severity"`
	TestName string            `json:"test"`
	Provider string            `json:"provider"`
	Model    string            `json:"model"`

	// InputError is set when the test input could not be resolved (for
	// example a missing colocated file). It is kept distinct from
	// invocation failures so reports can separate authoring mistakes from
	// transport problems.
	InputError string `json:"input_error,omitempty"`

	Baseline  provider.InvocationResult `json:"baseline"`
	WithSkill provider.InvocationResult `json:"with_skill"`

	BaselineVerdict verify.Verdict `json:"baseline_verdict"`
	SkillVerdict    verify.Verdict `json:"skill_verdict"`

	Judge    *judge.Verdict `json:"judge,omitempty"`
	JudgeErr string         `json:"judge_error,omitempty"`

	Decision Decision `json:"decision"`
}
