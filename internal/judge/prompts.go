package judge

import "fmt"

// comparisonPrompt instructs the judging model to rate two anonymized
// responses against a skill's guidance and return strict JSON. The options
// are presented in randomized order; the mapping back to baseline/skill
// happens after parsing.
const comparisonPrompt = `You are evaluating two code responses against a programming skill.

SKILL: %s

GUIDANCE:
%s

OPTION A:
` + "```" + `
%s
` + "```" + `

OPTION B:
` + "```" + `
%s
` + "```" + `

Rate each option as one of: "vague", "regular", "good", "outstanding"
(ordered from worst to best adherence to the guidance).

Then decide which option better follows the guidance overall:
- "A" if Option A is clearly better
- "B" if Option B is clearly better
- "Equal" if there is no meaningful difference

Finally give an overall quality score for the better option from 0-100:
- 90-100: outstanding demonstration of the guidance
- 70-89: good adherence with minor issues
- 40-69: partial adherence, notable problems
- 0-39: vague or violates the guidance

Respond ONLY with valid JSON in this exact format:
{
  "option_a_rating": "vague|regular|good|outstanding",
  "option_b_rating": "vague|regular|good|outstanding",
  "overall_better": "A|B|Equal",
  "score": 85,
  "reasoning": "2-3 sentence explanation"
}`

func buildComparisonPrompt(description, guidance, optionA, optionB string) string {
	return fmt.Sprintf(comparisonPrompt, description, guidance, optionA, optionB)
}
