package mcp

import (
	"fmt"
	"path/filepath"
	"strings"
)

// validateRunID rejects run identifiers that could escape the results root
// when joined onto it.
func validateRunID(runID string) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run_id is required")
	}
	if strings.Contains(runID, string(filepath.Separator)) || strings.Contains(runID, "/") {
		return fmt.Errorf("path separators are not allowed")
	}
	if runID == "." || runID == ".." {
		return fmt.Errorf("path traversal is not allowed")
	}
	return nil
}
