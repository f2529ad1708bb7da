package matrix

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbench/skillbench/internal/eval"
	"github.com/skillbench/skillbench/internal/provider"
	"github.com/skillbench/skillbench/internal/skillset"
	"github.com/skillbench/skillbench/internal/testutil"
)

func benchSkills() []*skillset.Skill {
	return []*skillset.Skill{
		{
			Slug:        "guard-clauses",
			Description: "Prefer guard clauses",
			Severity:    skillset.SeverityWarn,
			Guidance:    "Return early.",
			Tests: []skillset.TestCase{
				{Name: "basic", Input: "Refactor this.", Expect: skillset.ExpectationSpec{Includes: []string{"return"}}},
			},
		},
	}
}

func passingExecutorFor(invoker provider.Invoker) *eval.Executor {
	return eval.NewExecutor(invoker, nil, eval.DefaultThreshold)
}

func TestUnits(t *testing.T) {
	units, err := Units([]string{"openai", "ollama"}, []string{"gpt-4o", "llama3"})
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "openai/gpt-4o", units[0].Config.Key())
	assert.Equal(t, "ollama/llama3", units[1].Config.Key())
}

func TestUnitsValidation(t *testing.T) {
	_, err := Units(nil, []string{"m"})
	assert.Error(t, err)

	_, err = Units([]string{"a", "b"}, []string{"m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")

	_, err = Units([]string{"openai", "openai"}, []string{"gpt-4o", "gpt-4o"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate unit")
}

func TestRunSingleUnit(t *testing.T) {
	mock := &testutil.MockInvoker{DefaultResponse: "return early"}
	orch := New(
		func(_ context.Context, _ provider.ModelConfig) (provider.Invoker, error) { return mock, nil },
		passingExecutorFor,
	)

	units, err := Units([]string{"openai"}, []string{"gpt-4o"})
	require.NoError(t, err)

	results, err := orch.Run(context.Background(), units, benchSkills())
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Empty(t, res.Err)
	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].Decision.Pass)
	assert.Positive(t, res.Duration)
}

func TestRunFailedUnitDoesNotCancelSiblings(t *testing.T) {
	mock := &testutil.MockInvoker{DefaultResponse: "return early"}
	orch := New(
		func(_ context.Context, cfg provider.ModelConfig) (provider.Invoker, error) {
			if cfg.Provider == "broken" {
				return nil, fmt.Errorf("no adapter for %s", cfg.Provider)
			}
			return mock, nil
		},
		passingExecutorFor,
		WithParallel(2),
	)

	units, err := Units([]string{"broken", "openai"}, []string{"m1", "gpt-4o"})
	require.NoError(t, err)

	results, err := orch.Run(context.Background(), units, benchSkills())
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Results stay in matrix order regardless of completion order.
	assert.Equal(t, "broken/m1", results[0].Unit.Config.Key())
	assert.Contains(t, results[0].Err, "no adapter")
	assert.Empty(t, results[0].Records)

	assert.Empty(t, results[1].Err)
	require.Len(t, results[1].Records, 1)
	assert.True(t, results[1].Records[0].Decision.Pass)
}

func TestRunUnavailableProvider(t *testing.T) {
	mock := &testutil.MockInvoker{Unavailable: true}
	orch := New(
		func(_ context.Context, _ provider.ModelConfig) (provider.Invoker, error) { return mock, nil },
		passingExecutorFor,
	)

	units, err := Units([]string{"openai"}, []string{"gpt-4o"})
	require.NoError(t, err)

	results, err := orch.Run(context.Background(), units, benchSkills())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Err, "unavailable")
	assert.Empty(t, results[0].Records)

	// The probe failed, so no test call went out.
	assert.Zero(t, mock.Calls)
}

func TestRunAfterUnitHook(t *testing.T) {
	mock := &testutil.MockInvoker{DefaultResponse: "return"}

	var mu sync.Mutex
	var tornDown []string
	orch := New(
		func(_ context.Context, cfg provider.ModelConfig) (provider.Invoker, error) {
			if cfg.Provider == "broken" {
				return nil, fmt.Errorf("boom")
			}
			return mock, nil
		},
		passingExecutorFor,
		WithAfterUnit(func(_ context.Context, cfg provider.ModelConfig) error {
			mu.Lock()
			defer mu.Unlock()
			tornDown = append(tornDown, cfg.Key())
			return nil
		}),
	)

	units, err := Units([]string{"openai", "broken"}, []string{"gpt-4o", "m1"})
	require.NoError(t, err)

	_, err = orch.Run(context.Background(), units, benchSkills())
	require.NoError(t, err)

	// Teardown runs for every unit, including ones that failed to start.
	assert.ElementsMatch(t, []string{"openai/gpt-4o", "broken/m1"}, tornDown)
}

func TestRunValidation(t *testing.T) {
	orch := New(
		func(_ context.Context, _ provider.ModelConfig) (provider.Invoker, error) {
			return &testutil.MockInvoker{}, nil
		},
		passingExecutorFor,
	)

	_, err := orch.Run(context.Background(), nil, benchSkills())
	assert.Error(t, err)

	units, _ := Units([]string{"openai"}, []string{"gpt-4o"})
	_, err = orch.Run(context.Background(), units, nil)
	assert.Error(t, err)
}

func TestLimiterSharedPerProvider(t *testing.T) {
	orch := New(
		func(_ context.Context, _ provider.ModelConfig) (provider.Invoker, error) {
			return &testutil.MockInvoker{}, nil
		},
		passingExecutorFor,
	)

	a := orch.LimiterFor("openai")
	b := orch.LimiterFor("openai")
	c := orch.LimiterFor("ollama")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
