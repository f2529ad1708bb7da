// Package report turns raw evaluation records into summaries, persists runs
// append-only, and renders them for the console and for GitHub pull request
// comments.
package report

import (
	"sort"
	"time"

	"github.com/skillbench/skillbench/internal/eval"
	"github.com/skillbench/skillbench/internal/judge"
	"github.com/skillbench/skillbench/internal/matrix"
	"github.com/skillbench/skillbench/internal/skillset"
)

// UnitSummary aggregates one (provider, model) unit's records.
type UnitSummary struct {
	Provider      string       `json:"provider"`
	Model         string       `json:"model"`
	Total         int          `json:"total"`
	Passed        int          `json:"passed"`
	Failed        int          `json:"failed"`
	Improved      int          `json:"improved"`
	Regressed     int          `json:"regressed"`
	Neutral       int          `json:"neutral"`
	JudgeDegraded int          `json:"judge_degraded"`
	InputErrors   int          `json:"input_errors"`
	PassRate      int          `json:"pass_rate"`
	Rating        judge.Rating `json:"rating"`
	UnitError     string       `json:"unit_error,omitempty"`
}

// SkillSummary aggregates one skill's records across all units.
type SkillSummary struct {
	Skill    string            `json:"skill"`
	Severity skillset.Severity `json:"severity"`
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Improved int               `json:"improved"`
}

// RunSummary is the aggregate view of one complete run.
type RunSummary struct {
	Total         int `json:"total"`
	Passed        int `json:"passed"`
	Failed        int `json:"failed"`
	Improved      int `json:"improved"`
	Regressed     int `json:"regressed"`
	Neutral       int `json:"neutral"`
	JudgeDegraded int `json:"judge_degraded"`
	FailedUnits   int `json:"failed_units"`

	Units  []UnitSummary  `json:"units"`
	Skills []SkillSummary `json:"skills"`

	// Warnings carries skill directories that were skipped during
	// discovery, so a malformed SKILL.md is visible in the final report.
	Warnings []skillset.Warning `json:"warnings,omitempty"`
}

// Run is the persisted form of one complete benchmark run.
type Run struct {
	ID        string              `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	Duration  time.Duration       `json:"duration"`
	Units     []matrix.UnitResult `json:"units"`
	Summary   RunSummary          `json:"summary"`
}

// Summarize computes the aggregate view from per-unit results. Pure
// function over its inputs.
func Summarize(results []matrix.UnitResult, warnings []skillset.Warning) RunSummary {
	summary := RunSummary{Warnings: warnings}
	bySkill := make(map[string]*SkillSummary)

	for _, ur := range results {
		us := UnitSummary{
			Provider:  ur.Unit.Config.Provider,
			Model:     ur.Unit.Config.Model,
			UnitError: ur.Err,
		}
		if ur.Err != "" {
			summary.FailedUnits++
		}

		for _, rec := range ur.Records {
			us.Total++
			if rec.Decision.Pass {
				us.Passed++
			} else {
				us.Failed++
			}
			switch rec.Decision.Improvement {
			case eval.ImprovementYes:
				us.Improved++
			case eval.ImprovementNo:
				us.Regressed++
			default:
				us.Neutral++
			}
			if rec.Decision.JudgeDegraded {
				us.JudgeDegraded++
			}
			if rec.InputError != "" {
				us.InputErrors++
			}

			ss, ok := bySkill[rec.Skill]
			if !ok {
				ss = &SkillSummary{Skill: rec.Skill, Severity: rec.Severity}
				bySkill[rec.Skill] = ss
			}
			ss.Total++
			if rec.Decision.Pass {
				ss.Passed++
			}
			if rec.Decision.Improvement == eval.ImprovementYes {
				ss.Improved++
			}
		}

		if us.Total > 0 {
			us.PassRate = us.Passed * 100 / us.Total
		}
		us.Rating = judge.RatingForRate(us.PassRate)

		summary.Total += us.Total
		summary.Passed += us.Passed
		summary.Failed += us.Failed
		summary.Improved += us.Improved
		summary.Regressed += us.Regressed
		summary.Neutral += us.Neutral
		summary.JudgeDegraded += us.JudgeDegraded
		summary.Units = append(summary.Units, us)
	}

	// Leaderboard order: best pass rate first, name as tiebreak.
	sort.SliceStable(summary.Units, func(i, j int) bool {
		if summary.Units[i].PassRate != summary.Units[j].PassRate {
			return summary.Units[i].PassRate > summary.Units[j].PassRate
		}
		return summary.Units[i].Provider+summary.Units[i].Model < summary.Units[j].Provider+summary.Units[j].Model
	})

	for _, ss := range bySkill {
		summary.Skills = append(summary.Skills, *ss)
	}
	sort.Slice(summary.Skills, func(i, j int) bool {
		return summary.Skills[i].Skill < summary.Skills[j].Skill
	})

	return summary
}
