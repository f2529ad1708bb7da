package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skillbench/skillbench/internal/eval"
	"github.com/skillbench/skillbench/internal/judge"
	"github.com/skillbench/skillbench/internal/matrix"
	"github.com/skillbench/skillbench/internal/provider"
	"github.com/skillbench/skillbench/internal/skillset"
	"github.com/skillbench/skillbench/internal/verify"
)

func TestRender(t *testing.T) {
	run := testRun("20260825-120000")
	out := Render(run)

	assert.Contains(t, out, "# Skill Benchmark Report")
	assert.Contains(t, out, "20260825-120000")
	assert.Contains(t, out, "| openai | gpt-4o | 50% (1/2) |")
	assert.Contains(t, out, "## Skills")
	assert.Contains(t, out, "| guard-clauses | WARN | 1/2 | 1 |")
	assert.Contains(t, out, "## Failures")
	assert.Contains(t, out, "guard-clauses / b")
}

func TestRenderFailureReasons(t *testing.T) {
	inputErr := record("guard-clauses", "bad-input", false, eval.ImprovementNeutral)
	inputErr.InputError = "referenced input file not found"

	judged := record("guard-clauses", "judged", false, eval.ImprovementNo)
	judged.Judge = &judge.Verdict{
		BaselineRating: judge.RatingGood,
		SkillRating:    judge.RatingVague,
		Better:         judge.BetterBaseline,
		Score:          30,
		Reasoning:      "The skill response ignores the guidance.",
	}

	mechanical := record("guard-clauses", "mech", false, eval.ImprovementNeutral)
	mechanical.SkillVerdict = verify.Verdict{
		Pass:       false,
		Violations: []verify.Violation{{Check: verify.CheckIncludes, Detail: "missing required substring"}},
	}
	mechanical.Decision.JudgeDegraded = true

	run := &Run{
		ID:    "r",
		Units: []matrix.UnitResult{unitResult("openai", "gpt-4o", inputErr, judged, mechanical)},
	}
	run.Summary = Summarize(run.Units, nil)

	out := Render(run)
	assert.Contains(t, out, "input error: referenced input file not found")
	assert.Contains(t, out, "judge scored 30 (Baseline better)")
	assert.Contains(t, out, "judge degraded; failed checks: includes")
}

func TestRenderUnitError(t *testing.T) {
	run := &Run{
		ID: "r",
		Units: []matrix.UnitResult{{
			Unit: matrix.Unit{Config: provider.ModelConfig{Provider: "kserve", Model: "mistral-7b"}},
			Err:  "model mistral-7b is not ready",
		}},
	}
	run.Summary = Summarize(run.Units, nil)

	out := Render(run)
	assert.Contains(t, out, "did not run: model mistral-7b is not ready")
}

func TestRenderGitHubComment(t *testing.T) {
	run := testRun("20260825-120000")
	out := RenderGitHubComment(run)

	assert.True(t, strings.HasPrefix(out, commentMarker))
	assert.Contains(t, out, "## Skill Benchmark: 1/2 passed")
	assert.Contains(t, out, "<details>")
	assert.Contains(t, out, "Failure details")
}

func TestRenderWarnings(t *testing.T) {
	run := testRun("20260825-120000")
	run.Summary.Warnings = []skillset.Warning{{Slug: "broken", Reason: "missing frontmatter"}}

	out := Render(run)
	assert.Contains(t, out, "## Skipped skills")
	assert.Contains(t, out, "`broken`: missing frontmatter")
}
