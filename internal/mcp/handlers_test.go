package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbench/skillbench/internal/report"
	"github.com/skillbench/skillbench/internal/server"
	"github.com/skillbench/skillbench/internal/testutil"
)

func writeSkillFixture(t *testing.T, root, slug string) {
	t.Helper()
	dir := filepath.Join(root, slug)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	skillMD := `---
description: Prefer guard clauses over nested conditionals
severity: WARN
---

# Guard Clauses

Return early instead of nesting.
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(skillMD), 0o644))

	tests := `[{"name": "basic", "input": "Refactor this function.", "expected": {"includes": ["return"]}}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tests.json"), []byte(tests), 0o644))
}

func newTestContext(t *testing.T) *server.ServerContext {
	t.Helper()
	skillsDir := t.TempDir()
	writeSkillFixture(t, skillsDir, "guard-clauses")

	return &server.ServerContext{
		SkillsDir: skillsDir,
		Store:     report.NewStore(t.TempDir()),
		Invoker:   &testutil.MockInvoker{DefaultResponse: "func f() { return }"},
	}
}

func TestHandleListSkills(t *testing.T) {
	sc := newTestContext(t)

	result, err := handleListSkills(context.Background(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	require.NotNil(t, result)

	content := result.Content[0].(mcp.TextContent)
	assert.Contains(t, content.Text, "guard-clauses")

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(content.Text), &out))
	skills := out["skills"].([]any)
	require.Len(t, skills, 1)

	s := skills[0].(map[string]any)
	assert.Equal(t, "guard-clauses", s["name"])
	assert.Equal(t, "WARN", s["severity"])
	assert.Equal(t, float64(1), s["test_count"])
}

func TestHandleRunBenchmarkMissingRequired(t *testing.T) {
	sc := newTestContext(t)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{}

	result, err := handleRunBenchmark(context.Background(), request, sc)
	require.NoError(t, err)

	content := result.Content[0].(mcp.TextContent)
	assert.Contains(t, content.Text, "provider is required")
}

func TestHandleRunBenchmarkNoMatchingSkills(t *testing.T) {
	sc := newTestContext(t)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"provider": "openai",
		"model":    "gpt-4o",
		"skills":   "nonexistent",
	}

	result, err := handleRunBenchmark(context.Background(), request, sc)
	require.NoError(t, err)

	content := result.Content[0].(mcp.TextContent)
	assert.Contains(t, content.Text, "no skills matched")
}

func TestHandleRunBenchmark(t *testing.T) {
	sc := newTestContext(t)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"provider": "openai",
		"model":    "gpt-4o",
	}

	result, err := handleRunBenchmark(context.Background(), request, sc)
	require.NoError(t, err)

	content := result.Content[0].(mcp.TextContent)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(content.Text), &out))
	assert.NotEmpty(t, out["run_id"])

	summary := out["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["total"])
	assert.Equal(t, float64(1), summary["passed"])

	// The run must be persisted.
	ids, err := sc.Store.List()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, out["run_id"], ids[0])
}

func TestHandleGetReportEmpty(t *testing.T) {
	sc := newTestContext(t)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{}

	result, err := handleGetReport(context.Background(), request, sc)
	require.NoError(t, err)

	content := result.Content[0].(mcp.TextContent)
	assert.Equal(t, "[]", content.Text)
}

func TestHandleGetReportInvalidRunID(t *testing.T) {
	sc := newTestContext(t)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"run_id": "../escape",
	}

	result, err := handleGetReport(context.Background(), request, sc)
	require.NoError(t, err)

	content := result.Content[0].(mcp.TextContent)
	assert.Contains(t, content.Text, "not allowed")
}

func TestHandleGetReportSpecificRun(t *testing.T) {
	sc := newTestContext(t)

	// Run a benchmark, then fetch its report by ID.
	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"provider": "openai",
		"model":    "gpt-4o",
	}
	runResult, err := handleRunBenchmark(context.Background(), request, sc)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(runResult.Content[0].(mcp.TextContent).Text), &out))

	reportReq := mcp.CallToolRequest{}
	reportReq.Params.Arguments = map[string]interface{}{
		"run_id": out["run_id"],
	}

	result, err := handleGetReport(context.Background(), reportReq, sc)
	require.NoError(t, err)

	content := result.Content[0].(mcp.TextContent)
	assert.Contains(t, content.Text, "Skill Benchmark Report")
	assert.Contains(t, content.Text, "gpt-4o")
}

func TestHandleDeployModelNoManager(t *testing.T) {
	sc := &server.ServerContext{
		KServeManager: nil,
	}

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"model_name": "test",
		"model_uri":  "hf://org/model",
	}

	result, err := handleDeployModel(context.Background(), request, sc)
	require.NoError(t, err)

	content := result.Content[0].(mcp.TextContent)
	assert.Contains(t, content.Text, "KServe manager is not configured")
}

func TestHandleTeardownModelNoManager(t *testing.T) {
	sc := &server.ServerContext{
		KServeManager: nil,
	}

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"model_name": "test",
	}

	result, err := handleTeardownModel(context.Background(), request, sc)
	require.NoError(t, err)

	content := result.Content[0].(mcp.TextContent)
	assert.Contains(t, content.Text, "KServe manager is not configured")
}

func TestHandleListModelsNoManager(t *testing.T) {
	sc := &server.ServerContext{
		KServeManager: nil,
	}

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{}

	result, err := handleListModels(context.Background(), request, sc)
	require.NoError(t, err)

	content := result.Content[0].(mcp.TextContent)
	assert.Contains(t, content.Text, "KServe manager is not configured")
}
