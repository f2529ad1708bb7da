package skillset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, root, slug, skillMD, testsJSON string) {
	t.Helper()
	dir := filepath.Join(root, slug)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(skillMD), 0o644))
	if testsJSON != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "tests.json"), []byte(testsJSON), 0o644))
	}
}

const validSkillMD = `---
description: Prefer guard clauses over nested conditionals
severity: WARN
---

# Guard Clauses

Return early instead of nesting.
`

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "guard-clauses", validSkillMD,
		`[{"name": "basic", "input": "Refactor this.", "expected": {"includes": ["return"]}}]`)

	reg, err := Discover(root)
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())
	assert.Empty(t, reg.Warnings())

	skill, ok := reg.Get("guard-clauses")
	require.True(t, ok)
	assert.Equal(t, "guard-clauses", skill.Slug)
	assert.Equal(t, "Prefer guard clauses over nested conditionals", skill.Description)
	assert.Equal(t, SeverityWarn, skill.Severity)
	assert.Contains(t, skill.Guidance, "Return early instead of nesting.")
	assert.NotContains(t, skill.Guidance, "description:")
	require.Len(t, skill.Tests, 1)
	assert.Equal(t, "basic", skill.Tests[0].Name)
	assert.Equal(t, []string{"return"}, skill.Tests[0].Expect.Includes)
}

func TestDiscoverIgnoresNonSkillDirs(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "real-skill", validSkillMD, "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "no-skill-md"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray-file.md"), []byte("x"), 0o644))

	reg, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
	assert.Empty(t, reg.Warnings())
}

func TestDiscoverMalformedSkillIsWarning(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "good", validSkillMD, "")
	writeSkill(t, root, "no-frontmatter", "# Just a header\n\nbody\n", "")
	writeSkill(t, root, "bad-tests", validSkillMD, `[{"name": "", "input": "x"}]`)

	reg, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	warnings := reg.Warnings()
	require.Len(t, warnings, 2)
	slugs := []string{warnings[0].Slug, warnings[1].Slug}
	assert.ElementsMatch(t, []string{"no-frontmatter", "bad-tests"}, slugs)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDiscoverDescriptionFallback(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "fallback", `---
severity: BLOCK
---

# Header

First body line becomes the description.
`, "")

	reg, err := Discover(root)
	require.NoError(t, err)

	skill, ok := reg.Get("fallback")
	require.True(t, ok)
	assert.Equal(t, "First body line becomes the description.", skill.Description)
	assert.Equal(t, SeverityBlock, skill.Severity)
}

func TestDiscoverUnknownSeverityDefaults(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "odd-severity", `---
description: something
severity: CRITICAL
---

body
`, "")

	reg, err := Discover(root)
	require.NoError(t, err)

	skill, ok := reg.Get("odd-severity")
	require.True(t, ok)
	assert.Equal(t, SeveritySuggest, skill.Severity)
}

func TestDiscoverLegacyTestsFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "legacy")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(validSkillMD), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.json"),
		[]byte(`{"tests": [{"name": "wrapped", "input": "do it"}]}`), 0o644))

	reg, err := Discover(root)
	require.NoError(t, err)

	skill, ok := reg.Get("legacy")
	require.True(t, ok)
	require.Len(t, skill.Tests, 1)
	assert.Equal(t, "wrapped", skill.Tests[0].Name)
	assert.True(t, skill.Tests[0].Expect.Empty())
}

func TestParseTests(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
		count   int
	}{
		{
			name:  "bare array",
			raw:   `[{"name": "a", "input": "x"}, {"name": "b", "input": "y"}]`,
			count: 2,
		},
		{
			name:  "wrapper object",
			raw:   `{"tests": [{"name": "a", "input": "x"}]}`,
			count: 1,
		},
		{
			name:    "duplicate names",
			raw:     `[{"name": "a", "input": "x"}, {"name": "a", "input": "y"}]`,
			wantErr: "duplicate test name",
		},
		{
			name:    "empty input",
			raw:     `[{"name": "a", "input": ""}]`,
			wantErr: "has no input",
		},
		{
			name:    "not json",
			raw:     `{{`,
			wantErr: "invalid character",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parseTests([]byte(tt.raw))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, parsed, tt.count)
		})
	}
}

func TestFilter(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "guard-clauses", validSkillMD, "")
	writeSkill(t, root, "error-wrapping", validSkillMD, "")
	writeSkill(t, root, "table-tests", validSkillMD, "")

	reg, err := Discover(root)
	require.NoError(t, err)

	all := reg.Filter(nil)
	assert.Len(t, all, 3)

	matched := reg.Filter([]string{"guard", "table"})
	require.Len(t, matched, 2)
	assert.Equal(t, "guard-clauses", matched[0].Slug)
	assert.Equal(t, "table-tests", matched[1].Slug)

	assert.Empty(t, reg.Filter([]string{"nonexistent"}))
}

func TestSkillsSorted(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "zebra", validSkillMD, "")
	writeSkill(t, root, "alpha", validSkillMD, "")

	reg, err := Discover(root)
	require.NoError(t, err)

	skills := reg.Skills()
	require.Len(t, skills, 2)
	assert.Equal(t, "alpha", skills[0].Slug)
	assert.Equal(t, "zebra", skills[1].Slug)
}
