package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/skillbench/skillbench/internal/eval"
	"github.com/skillbench/skillbench/internal/judge"
	"github.com/skillbench/skillbench/internal/kserve"
	"github.com/skillbench/skillbench/internal/matrix"
	"github.com/skillbench/skillbench/internal/provider"
	"github.com/skillbench/skillbench/internal/report"
	"github.com/skillbench/skillbench/internal/skillset"
)

func newRunCmd() *cobra.Command {
	var (
		providers     []string
		models        []string
		matrixFile    string
		skillFilters  []string
		endpoint      string
		apiKey        string
		temperature   float64
		judgeModel    string
		threshold     int
		skillsDir     string
		resultsDir    string
		parallel      int
		timeout       time.Duration
		callTimeout   time.Duration
		rateLimit     float64
		showReport    bool
		githubComment bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the skill benchmark against one or more models",
		Long: `Execute every discovered skill's test cases against each (provider, model)
combination. Each test case runs twice -- a baseline pass with the raw prompt
and a skill pass with the guidance prepended -- then both responses are
verified against the test's expectations and optionally compared by an LLM
judge.

Results are written append-only under the results directory, one JSON
document per unit plus a run manifest. The exit code is the number of failed
test executions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			var units []matrix.Unit
			var err error
			if matrixFile != "" {
				units, err = matrix.LoadUnits(matrixFile)
				if err != nil {
					return err
				}
				providers = providers[:0]
				for _, u := range units {
					providers = append(providers, u.Config.Provider)
				}
			} else {
				if len(models) == 0 {
					return fmt.Errorf("at least one --model is required")
				}
				// A single provider applies to every model.
				if len(providers) == 1 && len(models) > 1 {
					expanded := make([]string, len(models))
					for i := range expanded {
						expanded[i] = providers[0]
					}
					providers = expanded
				}
				units, err = matrix.Units(providers, models)
				if err != nil {
					return err
				}
				for i := range units {
					units[i].Config.Temperature = temperature
				}
			}

			if err := checkCredentials(providers, apiKey, endpoint); err != nil {
				return err
			}

			registry, err := skillset.Discover(skillsDir)
			if err != nil {
				return fmt.Errorf("failed to discover skills: %w", err)
			}
			skills := registry.Skills()
			if len(skillFilters) > 0 {
				skills = registry.Filter(skillFilters)
			}
			if len(skills) == 0 {
				return fmt.Errorf("no skills matched in %s", skillsDir)
			}

			var ksManager *kserve.Manager
			if hasProvider(providers, "kserve") {
				namespace, _ := cmd.Flags().GetString("namespace")
				kubeconfig, _ := cmd.Flags().GetString("kubeconfig")
				ksManager, err = kserve.NewManager(namespace, kubeconfig, false)
				if err != nil {
					return fmt.Errorf("provider kserve requires cluster access: %w", err)
				}
			}

			var orch *matrix.Orchestrator

			invokerFor := func(ctx context.Context, cfg provider.ModelConfig) (provider.Invoker, error) {
				unitEndpoint := cfg.BaseURL
				if unitEndpoint == "" {
					unitEndpoint = endpoint
				}
				if cfg.Provider == "kserve" && unitEndpoint == "" {
					status, err := ksManager.Get(ctx, cfg.Model)
					if err != nil {
						return nil, fmt.Errorf("model %s is not served: %w", cfg.Model, err)
					}
					if !status.Ready || status.EndpointURL == "" {
						return nil, fmt.Errorf("model %s is not ready", cfg.Model)
					}
					unitEndpoint = status.EndpointURL
				}
				return newInvokerFromFlags(cfg.Provider, unitEndpoint, apiKey, callTimeout, orch.LimiterFor(cfg.Provider))
			}

			executorFor := func(invoker provider.Invoker) *eval.Executor {
				var j *judge.Judge
				if judgeModel != "" {
					j = judge.New(invoker, provider.ModelConfig{Model: judgeModel, Temperature: temperature})
				}
				executor := eval.NewExecutor(invoker, j, threshold)
				executor.SetProgressFunc(func(skill, test string, idx, total int) {
					fmt.Printf("\r  [%s] %s: test %d/%d...", skill, test, idx, total)
				})
				return executor
			}

			orch = matrix.New(invokerFor, executorFor,
				matrix.WithParallel(parallel),
				matrix.WithProviderRateLimit(rate.Limit(rateLimit), 1),
			)

			fmt.Printf("Skills: %d\n", len(skills))
			for _, s := range skills {
				fmt.Printf("  - %s (%s, %d tests)\n", s.Slug, s.Severity, len(s.Tests))
			}
			fmt.Printf("Units: %d\n", len(units))
			for i, u := range units {
				fmt.Printf("  %d. %s (temperature: %.1f)\n", i+1, u.Config.Key(), u.Config.Temperature)
			}
			if judgeModel != "" {
				fmt.Printf("Judge: %s (threshold: %d)\n", judgeModel, threshold)
			}
			fmt.Println()

			start := time.Now()
			results, err := orch.Run(ctx, units, skills)
			if err != nil {
				return err
			}

			run := &report.Run{
				ID:        report.NewRunID(start),
				Timestamp: start,
				Duration:  time.Since(start),
				Units:     results,
			}
			run.Summary = report.Summarize(results, registry.Warnings())

			store := report.NewStore(resultsDir)
			if err := store.Save(run); err != nil {
				return fmt.Errorf("failed to save run: %w", err)
			}

			fmt.Printf("\n\nBenchmark complete.\n")
			fmt.Printf("Run ID: %s\n", run.ID)
			fmt.Printf("Duration: %s\n", run.Duration)
			fmt.Println()

			if githubComment {
				fmt.Println(report.RenderGitHubComment(run))
			} else if showReport {
				fmt.Println(report.Render(run))
			}

			if run.Summary.Failed > 0 {
				fmt.Fprintf(os.Stderr, "%d of %d test executions failed\n", run.Summary.Failed, run.Summary.Total)
				os.Exit(min(run.Summary.Failed, 125))
			}

			slog.Info("benchmark run complete", "run_id", run.ID)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&providers, "provider", []string{"openai"}, "Provider per model (one value applies to all models)")
	cmd.Flags().StringSliceVar(&models, "model", nil, "Model names to benchmark (repeatable)")
	cmd.Flags().StringVar(&matrixFile, "matrix", "", "YAML file listing (provider, model) units, replaces --provider/--model")
	cmd.Flags().StringSliceVar(&skillFilters, "skill", nil, "Skill name filters (default: all skills)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Model API endpoint URL (overrides provider default)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (or set <PROVIDER>_API_KEY)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0.0, "Temperature for generation")
	cmd.Flags().StringVar(&judgeModel, "judge-model", "", "Model to use as judge (empty disables semantic judging)")
	cmd.Flags().IntVar(&threshold, "threshold", eval.DefaultThreshold, "Judge score required to pass")
	cmd.Flags().StringVar(&skillsDir, "skills-dir", "skills", "Directory containing skill directories")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "results", "Directory for benchmark results")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "How many units run concurrently")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall timeout for the run (e.g. 30m, 1h). 0 means no timeout")
	cmd.Flags().DurationVar(&callTimeout, "call-timeout", 0, "Timeout per model call (default 5m)")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", 2, "Requests per second per provider")
	cmd.Flags().BoolVar(&showReport, "report", true, "Print the report after the run")
	cmd.Flags().BoolVar(&githubComment, "github-comment", false, "Print the report as a GitHub PR comment instead")

	return cmd
}

func hasProvider(providers []string, name string) bool {
	for _, p := range providers {
		if p == name {
			return true
		}
	}
	return false
}
