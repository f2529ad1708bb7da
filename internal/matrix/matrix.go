// Package matrix fans a benchmark run out across (provider, model)
// combinations. Units run concurrently up to a configured limit, each unit
// is failure-isolated, and calls to the same provider share one rate
// limiter so parallel units cannot multiply the request rate.
package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/skillbench/skillbench/internal/eval"
	"github.com/skillbench/skillbench/internal/provider"
	"github.com/skillbench/skillbench/internal/skillset"
)

// Unit is one (provider, model) combination of the run matrix.
type Unit struct {
	Config provider.ModelConfig
}

// UnitResult holds everything one unit produced. Err is set when the unit
// could not run at all (no adapter, unavailable backend); individual test
// failures live inside the records instead.
type UnitResult struct {
	Unit     Unit          `json:"unit"`
	Records  []eval.Record `json:"records"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// InvokerForUnitFunc returns the invoker for one unit. It is called once
// per unit before any test executes, which is where deploy-on-demand
// providers bring their endpoint up.
type InvokerForUnitFunc func(ctx context.Context, cfg provider.ModelConfig) (provider.Invoker, error)

// AfterUnitFunc is called after a unit finishes (or fails), typically to
// tear down a deployed endpoint.
type AfterUnitFunc func(ctx context.Context, cfg provider.ModelConfig) error

// ExecutorForUnitFunc builds the evaluation executor for one unit from its
// invoker.
type ExecutorForUnitFunc func(invoker provider.Invoker) *eval.Executor

// Orchestrator runs the full skill set against every unit of the matrix.
type Orchestrator struct {
	invokerForUnit InvokerForUnitFunc
	executorFor    ExecutorForUnitFunc
	afterUnit      AfterUnitFunc
	parallel       int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithParallel sets how many units may run concurrently. Values below one
// fall back to sequential execution.
func WithParallel(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.parallel = n
		}
	}
}

// WithAfterUnit sets the post-unit teardown hook.
func WithAfterUnit(fn AfterUnitFunc) Option {
	return func(o *Orchestrator) {
		o.afterUnit = fn
	}
}

// WithProviderRateLimit sets the per-provider request rate shared by all
// units that talk to the same provider.
func WithProviderRateLimit(rps rate.Limit, burst int) Option {
	return func(o *Orchestrator) {
		o.rps = rps
		o.burst = burst
	}
}

// New creates an Orchestrator.
func New(invokerForUnit InvokerForUnitFunc, executorFor ExecutorForUnitFunc, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		invokerForUnit: invokerForUnit,
		executorFor:    executorFor,
		parallel:       1,
		limiters:       make(map[string]*rate.Limiter),
		rps:            rate.Limit(2),
		burst:          1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LimiterFor returns the shared rate limiter for a provider, creating it on
// first use. All units of a provider get the same instance.
func (o *Orchestrator) LimiterFor(providerName string) *rate.Limiter {
	o.mu.Lock()
	defer o.mu.Unlock()
	lim, ok := o.limiters[providerName]
	if !ok {
		lim = rate.NewLimiter(o.rps, o.burst)
		o.limiters[providerName] = lim
	}
	return lim
}

// Units builds the run matrix from parallel provider and model lists. The
// lists are zipped index by index; mismatched lengths are an error so a
// typo cannot silently drop a combination.
func Units(providers, models []string) ([]Unit, error) {
	if len(providers) == 0 || len(models) == 0 {
		return nil, fmt.Errorf("at least one provider and one model required")
	}
	if len(providers) != len(models) {
		return nil, fmt.Errorf("provider/model count mismatch: %d providers, %d models", len(providers), len(models))
	}

	seen := make(map[string]bool, len(providers))
	units := make([]Unit, 0, len(providers))
	for i := range providers {
		cfg := provider.ModelConfig{Provider: providers[i], Model: models[i]}
		if seen[cfg.Key()] {
			return nil, fmt.Errorf("duplicate unit %s", cfg.Key())
		}
		seen[cfg.Key()] = true
		units = append(units, Unit{Config: cfg})
	}
	return units, nil
}

// Run executes every skill against every unit. A failing unit never cancels
// its siblings: each unit's outcome, success or failure, becomes one
// UnitResult, and results arrive in matrix order regardless of completion
// order.
func (o *Orchestrator) Run(ctx context.Context, units []Unit, skills []*skillset.Skill) ([]UnitResult, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("no units to run")
	}
	if len(skills) == 0 {
		return nil, fmt.Errorf("no skills to run")
	}

	results := make([]UnitResult, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallel)

	for i, unit := range units {
		g.Go(func() error {
			results[i] = o.runUnit(gctx, unit, skills)
			// Unit failures are recorded, not propagated: returning an
			// error here would cancel sibling units.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (o *Orchestrator) runUnit(ctx context.Context, unit Unit, skills []*skillset.Skill) UnitResult {
	res := UnitResult{Unit: unit}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
	}()

	slog.Info("starting unit",
		"provider", unit.Config.Provider,
		"model", unit.Config.Model,
		"skills", len(skills),
	)

	invoker, err := o.invokerForUnit(ctx, unit.Config)
	if err != nil {
		slog.Error("failed to prepare unit", "unit", unit.Config.Key(), "error", err)
		res.Err = err.Error()
		if o.afterUnit != nil {
			_ = o.afterUnit(ctx, unit.Config)
		}
		return res
	}

	if prober, ok := invoker.(provider.Prober); ok && !prober.Available(ctx) {
		slog.Error("provider unavailable", "unit", unit.Config.Key())
		res.Err = fmt.Sprintf("provider %s unavailable", unit.Config.Provider)
		if o.afterUnit != nil {
			_ = o.afterUnit(ctx, unit.Config)
		}
		return res
	}

	executor := o.executorFor(invoker)

	for _, skill := range skills {
		records, err := executor.EvaluateSkill(ctx, skill, unit.Config)
		res.Records = append(res.Records, records...)
		if err != nil {
			// Cancellation aborts the rest of the unit; any completed
			// records are kept.
			slog.Warn("unit aborted", "unit", unit.Config.Key(), "skill", skill.Slug, "error", err)
			res.Err = err.Error()
			break
		}
	}

	if o.afterUnit != nil {
		if err := o.afterUnit(ctx, unit.Config); err != nil {
			slog.Error("unit teardown failed", "unit", unit.Config.Key(), "error", err)
		}
	}

	slog.Info("unit complete",
		"unit", unit.Config.Key(),
		"records", len(res.Records),
		"duration", res.Duration,
	)
	return res
}
