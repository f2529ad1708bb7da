package eval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/skillbench/skillbench/internal/judge"
	"github.com/skillbench/skillbench/internal/provider"
	"github.com/skillbench/skillbench/internal/skillset"
	"github.com/skillbench/skillbench/internal/verify"
)

// skillPreamble introduces the guidance in the skill-augmented prompt. The
// guidance itself is inserted verbatim; the preamble and the test input are
// identical across runs, so the skill text is the only difference between
// the two passes.
const skillPreamble = "Apply the following programming skill:\n\n"

// ProgressFunc is called before each test case executes.
type ProgressFunc func(skill, test string, index, total int)

// Executor runs the dual-pass evaluation: for every test case, one baseline
// call and one skill-augmented call against the same model, always in that
// order so reruns stay comparable.
type Executor struct {
	invoker   provider.Invoker
	judge     *judge.Judge // nil when semantic judging is disabled
	threshold int
	progress  ProgressFunc
}

// NewExecutor creates an executor. judge may be nil to disable semantic
// evaluation.
func NewExecutor(invoker provider.Invoker, j *judge.Judge, threshold int) *Executor {
	return &Executor{invoker: invoker, judge: j, threshold: threshold}
}

// SetProgressFunc sets the progress callback.
func (e *Executor) SetProgressFunc(fn ProgressFunc) {
	e.progress = fn
}

// EvaluateSkill runs every test case of one skill against one model config.
// Test cases run sequentially; a failed model call fails only its own
// record and the loop continues. The returned records are complete and
// immutable.
func (e *Executor) EvaluateSkill(ctx context.Context, skill *skillset.Skill, cfg provider.ModelConfig) ([]Record, error) {
	if len(skill.Tests) == 0 {
		return nil, fmt.Errorf("skill %s has no test cases", skill.Slug)
	}

	records := make([]Record, 0, len(skill.Tests))

	for i, tc := range skill.Tests {
		if err := ctx.Err(); err != nil {
			slog.Warn("evaluation cancelled",
				"skill", skill.Slug,
				"completed", i,
				"total", len(skill.Tests),
			)
			return records, err
		}

		if e.progress != nil {
			e.progress(skill.Slug, tc.Name, i+1, len(skill.Tests))
		}

		records = append(records, e.runTestCase(ctx, skill, tc, cfg))
	}

	return records, nil
}

func (e *Executor) runTestCase(ctx context.Context, skill *skillset.Skill, tc skillset.TestCase, cfg provider.ModelConfig) Record {
	rec := Record{
		ID:       uuid.NewString(),
		Skill:    skill.Slug,
		Severity: skill.Severity,
		TestName: tc.Name,
		Provider: cfg.Provider,
		Model:    cfg.Model,
	}

	input, err := skillset.ResolveInput(skill, tc)
	if err != nil {
		slog.Warn("test input unresolvable", "skill", skill.Slug, "test", tc.Name, "error", err)
		rec.InputError = err.Error()
		rec.Decision = Decision{Pass: false, Improvement: ImprovementNeutral}
		return rec
	}

	// Baseline always precedes the skill call.
	rec.Baseline = e.invoker.Invoke(ctx, input, cfg)
	rec.WithSkill = e.invoker.Invoke(ctx, skillPreamble+skill.Guidance+"\n\n"+input, cfg)

	rec.BaselineVerdict = verdictFor(rec.Baseline, tc.Expect)
	rec.SkillVerdict = verdictFor(rec.WithSkill, tc.Expect)

	if e.judge != nil && rec.Baseline.OK() && rec.WithSkill.OK() {
		verdict, err := e.judge.Compare(ctx, skill, rec.Baseline.Text, rec.WithSkill.Text)
		if err != nil {
			slog.Warn("judge unavailable for record, falling back to mechanical verdict",
				"skill", skill.Slug,
				"test", tc.Name,
				"error", err,
			)
			rec.JudgeErr = err.Error()
		} else {
			rec.Judge = verdict
		}
	}

	rec.Decision = Decide(rec.BaselineVerdict, rec.SkillVerdict, rec.Judge, rec.JudgeErr, e.threshold)
	return rec
}

// verdictFor verifies a response, treating an invocation failure as a
// failed verdict with the failure kind recorded as the violated check.
func verdictFor(result provider.InvocationResult, spec skillset.ExpectationSpec) verify.Verdict {
	if !result.OK() {
		return verify.Verdict{
			Pass: false,
			Violations: []verify.Violation{
				{Check: "invocation", Detail: fmt.Sprintf("%s: %s", result.Failure.Kind, result.Failure.Message)},
			},
		}
	}
	return verify.Verify(result.Text, spec)
}
