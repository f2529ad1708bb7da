package skillset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

const (
	skillFileName = "SKILL.md"
	testsFileName = "tests.json"

	// legacyTestsFileName is still accepted for older skill directories.
	legacyTestsFileName = "test.json"
)

// Registry is the finite, validated set of skills discovered under one root
// directory. It is built once at startup and read-only afterwards.
type Registry struct {
	skills   map[string]*Skill
	warnings []Warning
}

// Discover scans root for skill directories. A directory is a skill iff it
// contains a SKILL.md with YAML frontmatter. Malformed skills are skipped
// and recorded as warnings rather than aborting discovery, so one bad skill
// cannot block benchmarking the rest. Discovery is idempotent: two scans of
// an unchanged tree produce identical registries.
func Discover(root string) (*Registry, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read skills directory %s: %w", root, err)
	}

	reg := &Registry{skills: make(map[string]*Skill)}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, skillFileName)); err != nil {
			// Not a skill directory.
			continue
		}

		skill, err := loadSkill(dir, entry.Name())
		if err != nil {
			slog.Warn("skipping malformed skill", "skill", entry.Name(), "error", err)
			reg.warnings = append(reg.warnings, Warning{Slug: entry.Name(), Reason: err.Error()})
			continue
		}

		reg.skills[skill.Slug] = skill
	}

	return reg, nil
}

// Skills returns all loaded skills sorted by slug.
func (r *Registry) Skills() []*Skill {
	out := make([]*Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Get returns the skill with the given slug.
func (r *Registry) Get(slug string) (*Skill, bool) {
	s, ok := r.skills[slug]
	return s, ok
}

// Filter returns skills whose slug contains any of the given names,
// sorted by slug. An empty filter returns every skill.
func (r *Registry) Filter(names []string) []*Skill {
	if len(names) == 0 {
		return r.Skills()
	}

	var out []*Skill
	for _, s := range r.Skills() {
		for _, name := range names {
			if strings.Contains(s.Slug, name) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Warnings returns the skills skipped during discovery.
func (r *Registry) Warnings() []Warning {
	return r.warnings
}

// Len returns the number of loaded skills.
func (r *Registry) Len() int {
	return len(r.skills)
}

func loadSkill(dir, slug string) (*Skill, error) {
	raw, err := os.ReadFile(filepath.Join(dir, skillFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", skillFileName, err)
	}

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(raw, &buf, parser.WithContext(pctx)); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", skillFileName, err)
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, fmt.Errorf("%s is missing YAML frontmatter", skillFileName)
	}

	description, _ := metaData["description"].(string)
	body := stripFrontmatter(string(raw))
	if description == "" {
		description = firstParagraphLine(body)
	}
	if description == "" {
		return nil, fmt.Errorf("%s has no description (frontmatter or body)", skillFileName)
	}

	severity := SeveritySuggest
	if sevRaw, ok := metaData["severity"].(string); ok {
		sev, known := ParseSeverity(strings.ToUpper(sevRaw))
		if !known {
			slog.Warn("unknown skill severity, defaulting to SUGGEST", "skill", slug, "severity", sevRaw)
		}
		severity = sev
	}

	tests, err := loadTests(dir)
	if err != nil {
		return nil, err
	}

	return &Skill{
		Slug:        slug,
		Dir:         dir,
		Description: description,
		Severity:    severity,
		Guidance:    body,
		Tests:       tests,
	}, nil
}

func loadTests(dir string) ([]TestCase, error) {
	for _, filename := range []string{testsFileName, legacyTestsFileName} {
		path := filepath.Join(dir, filename)
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", filename, err)
		}

		tests, err := parseTests(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", filename, err)
		}
		return tests, nil
	}

	// A skill without test cases is legal; it simply contributes nothing
	// to the matrix.
	return nil, nil
}

// parseTests accepts either a bare JSON array of test cases or an object
// with a "tests" array.
func parseTests(raw []byte) ([]TestCase, error) {
	var tests []TestCase
	if err := json.Unmarshal(raw, &tests); err == nil {
		return validateTests(tests)
	}

	var wrapper struct {
		Tests []TestCase `json:"tests"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	return validateTests(wrapper.Tests)
}

func validateTests(tests []TestCase) ([]TestCase, error) {
	seen := make(map[string]bool, len(tests))
	for i, tc := range tests {
		if tc.Name == "" {
			return nil, fmt.Errorf("test %d has no name", i+1)
		}
		if seen[tc.Name] {
			return nil, fmt.Errorf("duplicate test name %q", tc.Name)
		}
		seen[tc.Name] = true
		if tc.Input == "" {
			return nil, fmt.Errorf("test %q has no input", tc.Name)
		}
	}
	return tests, nil
}

func stripFrontmatter(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n")
		}
	}
	return content
}

// firstParagraphLine returns the first non-empty, non-header line of a
// markdown body, used as a fallback description.
func firstParagraphLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped != "" && !strings.HasPrefix(stripped, "#") {
			return stripped
		}
	}
	return ""
}
