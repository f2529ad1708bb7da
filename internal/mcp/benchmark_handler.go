package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/skillbench/skillbench/internal/eval"
	"github.com/skillbench/skillbench/internal/judge"
	"github.com/skillbench/skillbench/internal/matrix"
	"github.com/skillbench/skillbench/internal/provider"
	"github.com/skillbench/skillbench/internal/report"
	"github.com/skillbench/skillbench/internal/server"
	"github.com/skillbench/skillbench/internal/skillset"
)

func registerBenchmarkTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// list_skills
	listTool := mcp.NewTool("list_skills",
		mcp.WithDescription("List discovered skills with their severity and test case counts"),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListSkills(ctx, request, sc)
	})

	// run_benchmark
	runTool := mcp.NewTool("run_benchmark",
		mcp.WithDescription("Run the skill benchmark against a model: each test case is executed once without and once with the skill guidance, then verified and optionally judged. If the model is deployed via KServe, its endpoint is discovered automatically."),
		mcp.WithString("provider",
			mcp.Required(),
			mcp.Description("Provider name (e.g. 'openai', 'ollama', 'kserve')"),
		),
		mcp.WithString("model",
			mcp.Required(),
			mcp.Description("Model name to benchmark"),
		),
		mcp.WithString("skills",
			mcp.Description("Comma-separated skill name filters (default: all skills)"),
		),
		mcp.WithString("endpoint",
			mcp.Description("Model endpoint URL (overrides auto-discovery from KServe)"),
		),
		mcp.WithString("judge_model",
			mcp.Description("Model to use as judge (omit to disable semantic judging)"),
		),
		mcp.WithNumber("threshold",
			mcp.Description(fmt.Sprintf("Judge score required to pass (default: %d)", eval.DefaultThreshold)),
		),
	)
	s.AddTool(runTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleRunBenchmark(ctx, request, sc)
	})

	// get_report
	reportTool := mcp.NewTool("get_report",
		mcp.WithDescription("Retrieve past benchmark runs, or the full report for one run"),
		mcp.WithString("run_id",
			mcp.Description("Specific run ID to retrieve (optional, lists all runs if omitted)"),
		),
	)
	s.AddTool(reportTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetReport(ctx, request, sc)
	})

	return nil
}

func handleListSkills(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	registry, err := skillset.Discover(sc.SkillsDir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to discover skills: %v", err)), nil
	}

	type skillInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Severity    string `json:"severity"`
		TestCount   int    `json:"test_count"`
	}

	var skills []skillInfo
	for _, s := range registry.Skills() {
		skills = append(skills, skillInfo{
			Name:        s.Slug,
			Description: s.Description,
			Severity:    string(s.Severity),
			TestCount:   len(s.Tests),
		})
	}

	out := map[string]any{"skills": skills}
	if warnings := registry.Warnings(); len(warnings) > 0 {
		out["warnings"] = warnings
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal skills: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleRunBenchmark(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	providerName, ok := args["provider"].(string)
	if !ok || providerName == "" {
		return mcp.NewToolResultError("provider is required"), nil
	}
	modelName, ok := args["model"].(string)
	if !ok || modelName == "" {
		return mcp.NewToolResultError("model is required"), nil
	}

	registry, err := skillset.Discover(sc.SkillsDir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to discover skills: %v", err)), nil
	}

	skills := registry.Skills()
	if filter, ok := args["skills"].(string); ok && filter != "" {
		skills = registry.Filter(strings.Split(filter, ","))
	}
	if len(skills) == 0 {
		return mcp.NewToolResultError("no skills matched"), nil
	}

	invoker, err := invokerForRequest(ctx, args, sc, modelName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	threshold := eval.DefaultThreshold
	if t, ok := args["threshold"].(float64); ok && t > 0 {
		threshold = int(t)
	}

	var j *judge.Judge
	if judgeModel, ok := args["judge_model"].(string); ok && judgeModel != "" {
		j = judge.New(invoker, provider.ModelConfig{Provider: providerName, Model: judgeModel})
	}

	cfg := provider.ModelConfig{Provider: providerName, Model: modelName}
	executor := eval.NewExecutor(invoker, j, threshold)

	start := time.Now()
	unit := matrix.UnitResult{Unit: matrix.Unit{Config: cfg}}
	for _, skill := range skills {
		records, err := executor.EvaluateSkill(ctx, skill, cfg)
		unit.Records = append(unit.Records, records...)
		if err != nil {
			unit.Err = err.Error()
			break
		}
	}
	unit.Duration = time.Since(start)

	run := &report.Run{
		ID:        report.NewRunID(start),
		Timestamp: start,
		Duration:  unit.Duration,
		Units:     []matrix.UnitResult{unit},
	}
	run.Summary = report.Summarize(run.Units, registry.Warnings())

	if err := sc.Store.Save(run); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save run: %v", err)), nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"run_id":   run.ID,
		"duration": run.Duration.String(),
		"summary":  run.Summary,
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal summary: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// invokerForRequest picks the invoker for a benchmark request: an explicit
// endpoint wins, then KServe auto-discovery for served models, then the
// server's default.
func invokerForRequest(ctx context.Context, args map[string]any, sc *server.ServerContext, modelName string) (provider.Invoker, error) {
	if endpoint, ok := args["endpoint"].(string); ok && endpoint != "" {
		return provider.NewOpenAIInvoker(provider.WithBaseURL(endpoint)), nil
	}

	if sc.KServeManager != nil {
		status, err := sc.KServeManager.Get(ctx, modelName)
		if err == nil && status.Ready && status.EndpointURL != "" {
			slog.Info("auto-discovered KServe endpoint for model",
				"model", modelName,
				"endpoint", status.EndpointURL,
			)
			return provider.NewOpenAIInvoker(provider.WithBaseURL(status.EndpointURL)), nil
		}
	}

	if sc.Invoker == nil {
		return nil, fmt.Errorf("no invoker configured: pass an endpoint or deploy the model first")
	}
	return sc.Invoker, nil
}

func handleGetReport(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	runID, _ := args["run_id"].(string)

	if runID == "" {
		ids, err := sc.Store.List()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list runs: %v", err)), nil
		}
		if len(ids) == 0 {
			return mcp.NewToolResultText("[]"), nil
		}
		data, err := json.MarshalIndent(ids, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal runs: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}

	if err := validateRunID(runID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	run, err := sc.Store.Load(runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run %q not found: %v", runID, err)), nil
	}
	return mcp.NewToolResultText(report.Render(run)), nil
}
