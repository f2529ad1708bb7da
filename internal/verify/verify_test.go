package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbench/skillbench/internal/skillset"
)

func intPtr(n int) *int { return &n }

func TestVerifyEmptySpecPasses(t *testing.T) {
	verdict := Verify("anything at all", skillset.ExpectationSpec{})
	assert.True(t, verdict.Pass)
	assert.Empty(t, verdict.Violations)
}

func TestVerifyIncludes(t *testing.T) {
	spec := skillset.ExpectationSpec{Includes: []string{"func", "return"}}

	assert.True(t, Verify("func f() { return }", spec).Pass)

	verdict := Verify("no keywords here", spec)
	assert.False(t, verdict.Pass)
	assert.Len(t, verdict.Violations, 2)
}

func TestVerifyIncludesCaseSensitive(t *testing.T) {
	spec := skillset.ExpectationSpec{Includes: []string{"Error"}}
	assert.False(t, Verify("error handling", spec).Pass)
	assert.True(t, Verify("Error handling", spec).Pass)
}

func TestVerifyExcludes(t *testing.T) {
	spec := skillset.ExpectationSpec{Excludes: []string{"panic("}}

	assert.True(t, Verify("return err", spec).Pass)

	verdict := Verify("panic(err)", spec)
	assert.False(t, verdict.Pass)
	require.Len(t, verdict.Violations, 1)
	assert.Equal(t, CheckExcludes, verdict.Violations[0].Check)
}

func TestVerifyRegex(t *testing.T) {
	spec := skillset.ExpectationSpec{Regex: []string{`fmt\.Errorf\(".*%w`}}

	assert.True(t, Verify(`return fmt.Errorf("read config: %w", err)`, spec).Pass)
	assert.False(t, Verify(`return err`, spec).Pass)
}

func TestVerifyInvalidRegexIsViolation(t *testing.T) {
	spec := skillset.ExpectationSpec{Regex: []string{"[unclosed"}}

	verdict := Verify("anything", spec)
	assert.False(t, verdict.Pass)
	require.Len(t, verdict.Violations, 1)
	assert.Equal(t, CheckRegex, verdict.Violations[0].Check)
	assert.Contains(t, verdict.Violations[0].Detail, "invalid pattern")
}

func TestVerifyLengthBounds(t *testing.T) {
	tests := []struct {
		name     string
		response string
		spec     skillset.ExpectationSpec
		pass     bool
		check    string
	}{
		{
			name:     "within bounds",
			response: "12345",
			spec:     skillset.ExpectationSpec{MinLength: intPtr(3), MaxLength: intPtr(10)},
			pass:     true,
		},
		{
			name:     "too short",
			response: "ab",
			spec:     skillset.ExpectationSpec{MinLength: intPtr(3)},
			pass:     false,
			check:    CheckMinLength,
		},
		{
			name:     "too long",
			response: "abcdef",
			spec:     skillset.ExpectationSpec{MaxLength: intPtr(5)},
			pass:     false,
			check:    CheckMaxLength,
		},
		{
			name:     "multibyte runes count as one",
			response: "héllo",
			spec:     skillset.ExpectationSpec{MaxLength: intPtr(5)},
			pass:     true,
		},
		{
			name:     "boundary is inclusive",
			response: "abc",
			spec:     skillset.ExpectationSpec{MinLength: intPtr(3), MaxLength: intPtr(3)},
			pass:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := Verify(tt.response, tt.spec)
			assert.Equal(t, tt.pass, verdict.Pass)
			if tt.check != "" {
				require.Len(t, verdict.Violations, 1)
				assert.Equal(t, tt.check, verdict.Violations[0].Check)
			}
		})
	}
}

func TestVerifyNoShortCircuit(t *testing.T) {
	spec := skillset.ExpectationSpec{
		Includes:  []string{"missing"},
		Excludes:  []string{"bad"},
		Regex:     []string{`\d{4}`},
		MinLength: intPtr(100),
	}

	verdict := Verify("bad", spec)
	assert.False(t, verdict.Pass)
	// Every configured check reports its own violation.
	assert.Len(t, verdict.Violations, 4)
	assert.Equal(t, []string{CheckIncludes, CheckExcludes, CheckRegex, CheckMinLength}, verdict.FailedChecks())
}

func TestFailedChecksDeduplicates(t *testing.T) {
	spec := skillset.ExpectationSpec{Includes: []string{"a", "b", "c"}}

	verdict := Verify("nothing", spec)
	assert.Len(t, verdict.Violations, 3)
	assert.Equal(t, []string{CheckIncludes}, verdict.FailedChecks())
}
