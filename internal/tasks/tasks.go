// Package tasks maps the task identifiers of the settings file to the
// analyses that implement them and runs them in order.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/ratiostat-cli/internal/analysis"
	"github.com/KaramelBytes/ratiostat-cli/internal/config"
	"github.com/KaramelBytes/ratiostat-cli/internal/dataset"
)

// ErrNothingToDo is returned by Dispatch when the task list contains "none".
var ErrNothingToDo = errors.New("no tasks to process")

// Task is one of the known analysis tasks.
type Task int

const (
	GraphicAnalysis Task = iota + 1
	NormalDistributionParameters
	MedianEqualityTest
	RegressionSignificanceTest
	QuantileRegression
)

var ids = map[Task]string{
	GraphicAnalysis:              "2_graphic_analysis",
	NormalDistributionParameters: "4_normal_distribution_parameters",
	MedianEqualityTest:           "7_median_equality_test",
	RegressionSignificanceTest:   "10_regression_significance_test",
	QuantileRegression:           "quantile_regression",
}

var descriptions = map[Task]string{
	GraphicAnalysis:              "dataset profile and histograms of numeric columns",
	NormalDistributionParameters: "normal distribution parameter estimates with confidence intervals",
	MedianEqualityTest:           "median equality across groups (Mann-Whitney / Kruskal-Wallis)",
	RegressionSignificanceTest:   "OLS coefficient t-tests and overall F test",
	QuantileRegression:           "quantile regression with the golden-ratio intercept test",
}

// All lists the tasks in their canonical order.
func All() []Task {
	return []Task{GraphicAnalysis, NormalDistributionParameters, MedianEqualityTest, RegressionSignificanceTest, QuantileRegression}
}

// String returns the identifier used in settings files.
func (t Task) String() string {
	if id, ok := ids[t]; ok {
		return id
	}
	return fmt.Sprintf("Task(%d)", int(t))
}

// Description is a one-line summary for listings.
func (t Task) Description() string { return descriptions[t] }

// Parse maps a settings identifier to a task.
func Parse(id string) (Task, bool) {
	id = strings.TrimSpace(id)
	for t, s := range ids {
		if s == id {
			return t, true
		}
	}
	return 0, false
}

// Env is what every task handler receives.
type Env struct {
	Settings *config.Settings
	Data     *dataset.Dataset
	Out      analysis.Output
	Logger   *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Handler runs one task.
type Handler func(ctx context.Context, env *Env) error

// Registry maps tasks to handlers.
type Registry map[Task]Handler

// Dispatch runs the handlers of the listed identifiers in list order. A list
// containing "none" runs nothing and returns ErrNothingToDo. Unknown
// identifiers are logged and skipped, repeated ones run once. The first
// handler error stops the run.
func Dispatch(ctx context.Context, ids []string, reg Registry, env *Env) ([]Task, error) {
	log := env.logger()
	for _, id := range ids {
		if strings.TrimSpace(id) == config.NoneTask {
			if len(ids) > 1 {
				log.Warn("task list contains \"none\"; other tasks are ignored", "tasks", ids)
			}
			return nil, ErrNothingToDo
		}
	}
	var plan []Task
	seen := map[Task]bool{}
	for _, id := range ids {
		t, ok := Parse(id)
		if !ok {
			log.Warn("unknown task identifier skipped", "task", id)
			continue
		}
		if seen[t] {
			log.Debug("duplicate task skipped", "task", id)
			continue
		}
		seen[t] = true
		plan = append(plan, t)
	}
	var done []Task
	for _, t := range plan {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		h, ok := reg[t]
		if !ok {
			return done, fmt.Errorf("task %s has no handler", t)
		}
		log.Info("running task", "task", t.String())
		if err := h(ctx, env); err != nil {
			return done, fmt.Errorf("task %s: %w", t, err)
		}
		done = append(done, t)
	}
	return done, nil
}
