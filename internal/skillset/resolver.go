package skillset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingInput marks a test case whose input names a colocated file that
// does not exist. It is distinct from generic I/O errors so reporting can
// tell an authoring mistake apart from a transport failure.
var ErrMissingInput = errors.New("referenced input file not found")

// ResolveInput returns the effective prompt text for a test case. An input
// that looks like a file reference is read from the skill's own directory;
// anything else is the literal prompt. A file-shaped reference that is
// absent fails closed with ErrMissingInput.
func ResolveInput(skill *Skill, tc TestCase) (string, error) {
	if !looksLikeFileRef(tc.Input) {
		return tc.Input, nil
	}

	path, err := securePath(skill.Dir, tc.Input)
	if err != nil {
		return "", fmt.Errorf("test %q: %w", tc.Name, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("test %q references %s: %w", tc.Name, tc.Input, ErrMissingInput)
		}
		return "", fmt.Errorf("test %q: failed to read input file %s: %w", tc.Name, tc.Input, err)
	}

	return string(raw), nil
}

// looksLikeFileRef applies a conservative shape test: a single relative path
// with no whitespace and a file extension. Prompt prose never matches; a
// typo'd filename still fails closed instead of being sent to the model as
// a one-word prompt.
func looksLikeFileRef(input string) bool {
	if input == "" || strings.ContainsAny(input, " \t\n\r") {
		return false
	}
	if filepath.IsAbs(input) {
		return false
	}
	ext := filepath.Ext(input)
	return ext != "" && ext != "."
}

// securePath joins ref onto dir and rejects any path that escapes dir.
func securePath(dir, ref string) (string, error) {
	path := filepath.Join(dir, ref)

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve skill directory: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve input path: %w", err)
	}

	if absPath != absDir && !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("input reference %q escapes the skill directory", ref)
	}
	return path, nil
}
