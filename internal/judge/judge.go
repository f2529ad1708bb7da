// Package judge asks a model to semantically compare a baseline response
// with a skill-augmented one. The judge is an external, possibly flaky
// collaborator: its reply is validated field by field, and anything
// unparsable becomes a distinct judge error rather than a best-effort
// verdict.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/skillbench/skillbench/internal/provider"
	"github.com/skillbench/skillbench/internal/skillset"
)

// Rating is one of four ordered quality bands.
type Rating string

const (
	RatingVague       Rating = "vague"
	RatingRegular     Rating = "regular"
	RatingGood        Rating = "good"
	RatingOutstanding Rating = "outstanding"
)

// Rank returns the ordinal position of a rating, vague being lowest.
func (r Rating) Rank() int {
	switch r {
	case RatingVague:
		return 0
	case RatingRegular:
		return 1
	case RatingGood:
		return 2
	case RatingOutstanding:
		return 3
	default:
		return -1
	}
}

func validRating(r Rating) bool {
	return r.Rank() >= 0
}

// RatingForRate maps a 0-100 pass percentage onto a band, for reports that
// display mechanical-only results in the same vocabulary as the judge.
func RatingForRate(percent int) Rating {
	switch {
	case percent >= 90:
		return RatingOutstanding
	case percent >= 70:
		return RatingGood
	case percent >= 40:
		return RatingRegular
	default:
		return RatingVague
	}
}

// Better is the judge's overall discriminant.
type Better string

const (
	BetterBaseline Better = "Baseline"
	BetterSkill    Better = "Skill"
	BetterEqual    Better = "Equal"
)

// Verdict is a validated judge reply. BaselineShownFirst records which
// presentation order the coin flip produced, so reruns are auditable.
type Verdict struct {
	BaselineRating     Rating `json:"baseline_rating"`
	SkillRating        Rating `json:"skill_rating"`
	Better             Better `json:"better"`
	Score              int    `json:"score"`
	Reasoning          string `json:"reasoning"`
	BaselineShownFirst bool   `json:"baseline_shown_first"`
}

// Judge compares response pairs through the same invocation port as any
// other model call, inheriting its timeout and retry policy.
type Judge struct {
	invoker provider.Invoker
	cfg     provider.ModelConfig
	rng     *rand.Rand
}

// JudgeOption configures a Judge.
type JudgeOption func(*Judge)

// WithRand injects the random source used for presentation-order coin
// flips. Tests pass a seeded source for determinism.
func WithRand(rng *rand.Rand) JudgeOption {
	return func(j *Judge) {
		j.rng = rng
	}
}

// New creates a Judge that invokes the given model config.
func New(invoker provider.Invoker, cfg provider.ModelConfig, opts ...JudgeOption) *Judge {
	j := &Judge{invoker: invoker, cfg: cfg}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Compare runs one blind comparison. The two responses are labeled Option A
// and Option B in randomized order so the judge cannot favour a position.
// Any invocation failure or unparsable reply is returned as an error; the
// caller records it as a judge error, never as an "Equal" verdict.
func (j *Judge) Compare(ctx context.Context, skill *skillset.Skill, baselineResp, skillResp string) (*Verdict, error) {
	if strings.TrimSpace(baselineResp) == "" || strings.TrimSpace(skillResp) == "" {
		return nil, fmt.Errorf("judge needs both responses, got empty input")
	}

	baselineFirst := j.coinFlip()
	optionA, optionB := baselineResp, skillResp
	if !baselineFirst {
		optionA, optionB = skillResp, baselineResp
	}

	prompt := buildComparisonPrompt(skill.Description, skill.Guidance, optionA, optionB)

	result := j.invoker.Invoke(ctx, prompt, j.cfg)
	if !result.OK() {
		return nil, fmt.Errorf("judge call failed (%s): %s", result.Failure.Kind, result.Failure.Message)
	}

	verdict, err := parseReply(result.Text, baselineFirst)
	if err != nil {
		return nil, fmt.Errorf("judge reply rejected: %w", err)
	}
	return verdict, nil
}

func (j *Judge) coinFlip() bool {
	if j.rng != nil {
		return j.rng.Intn(2) == 0
	}
	return rand.Intn(2) == 0
}

// rawReply mirrors the JSON shape the judge is instructed to emit.
type rawReply struct {
	OptionARating string          `json:"option_a_rating"`
	OptionBRating string          `json:"option_b_rating"`
	OverallBetter string          `json:"overall_better"`
	Score         json.Number     `json:"score"`
	Reasoning     string          `json:"reasoning"`
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSON pulls the JSON object out of a reply that may wrap it in
// markdown code fences or surrounding prose.
func extractJSON(reply string) (string, error) {
	if m := fencedJSON.FindStringSubmatch(reply); m != nil {
		return m[1], nil
	}

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start >= 0 && end > start {
		return reply[start : end+1], nil
	}
	return "", fmt.Errorf("no JSON object found in reply")
}

func parseReply(reply string, baselineFirst bool) (*Verdict, error) {
	jsonStr, err := extractJSON(reply)
	if err != nil {
		return nil, err
	}

	var raw rawReply
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	ratingA := Rating(strings.ToLower(strings.TrimSpace(raw.OptionARating)))
	ratingB := Rating(strings.ToLower(strings.TrimSpace(raw.OptionBRating)))
	if !validRating(ratingA) {
		return nil, fmt.Errorf("invalid option_a_rating %q", raw.OptionARating)
	}
	if !validRating(ratingB) {
		return nil, fmt.Errorf("invalid option_b_rating %q", raw.OptionBRating)
	}

	scoreFloat, err := raw.Score.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid score %q", raw.Score.String())
	}
	score := int(scoreFloat)
	if score < 0 || score > 100 {
		return nil, fmt.Errorf("score %d out of range 0-100", score)
	}

	reasoning := strings.TrimSpace(raw.Reasoning)
	if reasoning == "" {
		return nil, fmt.Errorf("missing reasoning")
	}

	var better Better
	switch strings.TrimSpace(raw.OverallBetter) {
	case "A":
		if baselineFirst {
			better = BetterBaseline
		} else {
			better = BetterSkill
		}
	case "B":
		if baselineFirst {
			better = BetterSkill
		} else {
			better = BetterBaseline
		}
	case "Equal":
		better = BetterEqual
	default:
		return nil, fmt.Errorf("invalid overall_better %q", raw.OverallBetter)
	}

	verdict := &Verdict{
		Better:             better,
		Score:              score,
		Reasoning:          reasoning,
		BaselineShownFirst: baselineFirst,
	}
	if baselineFirst {
		verdict.BaselineRating, verdict.SkillRating = ratingA, ratingB
	} else {
		verdict.BaselineRating, verdict.SkillRating = ratingB, ratingA
	}
	return verdict, nil
}
