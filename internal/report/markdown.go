package report

import (
	"fmt"
	"strings"

	"github.com/skillbench/skillbench/internal/eval"
)

// commentMarker identifies benchmark comments so a workflow can find and
// update its previous comment instead of stacking new ones.
const commentMarker = "<!-- skillbench-report -->"

// Render produces the console report for a run.
func Render(run *Run) string {
	var b strings.Builder
	s := run.Summary

	fmt.Fprintf(&b, "# Skill Benchmark Report\n\n")
	fmt.Fprintf(&b, "Run `%s` — %s, %d test executions across %d units\n\n",
		run.ID, run.Timestamp.Format("2006-01-02 15:04:05"), s.Total, len(s.Units))

	fmt.Fprintf(&b, "| | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Passed | %d |\n", s.Passed)
	fmt.Fprintf(&b, "| Failed | %d |\n", s.Failed)
	fmt.Fprintf(&b, "| Improved by skill | %d |\n", s.Improved)
	fmt.Fprintf(&b, "| Regressed by skill | %d |\n", s.Regressed)
	fmt.Fprintf(&b, "| Neutral | %d |\n", s.Neutral)
	if s.JudgeDegraded > 0 {
		fmt.Fprintf(&b, "| Judge degraded | %d |\n", s.JudgeDegraded)
	}
	b.WriteString("\n")

	b.WriteString(renderLeaderboard(s))
	b.WriteString(renderSkillTable(s))
	b.WriteString(renderFailures(run))
	b.WriteString(renderWarnings(s))

	return b.String()
}

// RenderGitHubComment produces the pull request comment body: the same
// content as the console report, with the marker first and the failure
// details folded away.
func RenderGitHubComment(run *Run) string {
	var b strings.Builder
	s := run.Summary

	b.WriteString(commentMarker + "\n")
	fmt.Fprintf(&b, "## Skill Benchmark: %d/%d passed\n\n", s.Passed, s.Total)

	b.WriteString(renderLeaderboard(s))
	b.WriteString(renderSkillTable(s))

	if failures := renderFailures(run); failures != "" {
		b.WriteString("<details>\n<summary>Failure details</summary>\n\n")
		b.WriteString(failures)
		b.WriteString("</details>\n")
	}
	b.WriteString(renderWarnings(s))

	return b.String()
}

func renderLeaderboard(s RunSummary) string {
	var b strings.Builder
	b.WriteString("## Models\n\n")
	b.WriteString("| Provider | Model | Pass Rate | Rating | Improved | Regressed |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, u := range s.Units {
		if u.UnitError != "" {
			fmt.Fprintf(&b, "| %s | %s | — | — | — | did not run: %s |\n", u.Provider, u.Model, u.UnitError)
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %d%% (%d/%d) | %s | %d | %d |\n",
			u.Provider, u.Model, u.PassRate, u.Passed, u.Total, u.Rating, u.Improved, u.Regressed)
	}
	b.WriteString("\n")
	return b.String()
}

func renderSkillTable(s RunSummary) string {
	if len(s.Skills) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Skills\n\n")
	b.WriteString("| Skill | Severity | Passed | Improved |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, sk := range s.Skills {
		fmt.Fprintf(&b, "| %s | %s | %d/%d | %d |\n", sk.Skill, sk.Severity, sk.Passed, sk.Total, sk.Improved)
	}
	b.WriteString("\n")
	return b.String()
}

func renderFailures(run *Run) string {
	var b strings.Builder
	for _, ur := range run.Units {
		for _, rec := range ur.Records {
			if rec.Decision.Pass {
				continue
			}
			fmt.Fprintf(&b, "- **%s / %s** on %s: %s\n",
				rec.Skill, rec.TestName, ur.Unit.Config.Key(), failureReason(rec))
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "## Failures\n\n" + b.String() + "\n"
}

func failureReason(rec eval.Record) string {
	if rec.InputError != "" {
		return "input error: " + rec.InputError
	}
	if rec.Judge != nil {
		return fmt.Sprintf("judge scored %d (%s better): %s", rec.Judge.Score, rec.Judge.Better, rec.Judge.Reasoning)
	}
	var parts []string
	if rec.Decision.JudgeDegraded {
		parts = append(parts, "judge degraded")
	}
	if checks := rec.SkillVerdict.FailedChecks(); len(checks) > 0 {
		parts = append(parts, "failed checks: "+strings.Join(checks, ", "))
	}
	if len(parts) == 0 {
		return "failed"
	}
	return strings.Join(parts, "; ")
}

func renderWarnings(s RunSummary) string {
	if len(s.Warnings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Skipped skills\n\n")
	for _, w := range s.Warnings {
		fmt.Fprintf(&b, "- `%s`: %s\n", w.Slug, w.Reason)
	}
	b.WriteString("\n")
	return b.String()
}
