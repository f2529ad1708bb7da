package eval

import (
	"github.com/skillbench/skillbench/internal/judge"
	"github.com/skillbench/skillbench/internal/verify"
)

// DefaultThreshold is the judge score a record must reach to pass when
// judging is enabled.
const DefaultThreshold = 70

// Decide reconciles the mechanical verdicts with an optional judge outcome
// into one pass/fail plus an improvement classification. Pure function.
//
// Precedence:
//   - judge verdict present: the judge's discriminant and score decide;
//     mechanical results stay in the record for diagnostics only
//   - judge errored: fall back to the mechanical verdict and flag the
//     decision as judge-degraded, so "could not be judged" is never
//     reported as an ordinary pass
//   - judging disabled: the skill-augmented mechanical verdict decides,
//     the baseline verdict is informational
func Decide(baselineVerdict, skillVerdict verify.Verdict, jv *judge.Verdict, judgeErr string, threshold int) Decision {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	if jv != nil {
		return Decision{
			Pass:        jv.Score >= threshold && (jv.Better == judge.BetterSkill || jv.Better == judge.BetterEqual),
			Improvement: improvementFromJudge(jv.Better),
		}
	}

	mechanical := Decision{
		Pass:        skillVerdict.Pass,
		Improvement: improvementFromVerdicts(baselineVerdict, skillVerdict),
	}
	if judgeErr != "" {
		mechanical.JudgeDegraded = true
	}
	return mechanical
}

func improvementFromJudge(better judge.Better) Improvement {
	switch better {
	case judge.BetterSkill:
		return ImprovementYes
	case judge.BetterBaseline:
		return ImprovementNo
	default:
		return ImprovementNeutral
	}
}

func improvementFromVerdicts(baseline, skill verify.Verdict) Improvement {
	switch {
	case skill.Pass && !baseline.Pass:
		return ImprovementYes
	case !skill.Pass && baseline.Pass:
		return ImprovementNo
	default:
		return ImprovementNeutral
	}
}
