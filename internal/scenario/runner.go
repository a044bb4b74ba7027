package scenario

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
)

// Step statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Result is the outcome of one step, written as its own YAML document.
type Result struct {
	Scenario string     `yaml:"scenario"`
	Step     string     `yaml:"step"`
	Op       string     `yaml:"op"`
	Status   string     `yaml:"status"`
	Duration string     `yaml:"duration,omitempty"`
	Data     any        `yaml:"data,omitempty"`
	Error    *ErrorInfo `yaml:"error,omitempty"`
}

// ErrorInfo describes a step error.
type ErrorInfo struct {
	Message string `yaml:"message"`
	Code    string `yaml:"code,omitempty"`
	Kind    string `yaml:"kind"`
}

func errorInfo(err error) *ErrorInfo {
	return &ErrorInfo{
		Message: err.Error(),
		Code:    fberrors.CodeOf(err),
		Kind:    fberrors.KindOf(err).String(),
	}
}

// Summary counts step outcomes.
type Summary struct {
	Name    string
	Passed  int
	Failed  int
	Skipped int
}

func (s *Summary) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

// Err returns a ScenarioFailedError if any step failed.
func (s *Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return &ScenarioFailedError{Name: s.Name, Failed: s.Failed, Total: s.Total()}
}

// Runner executes scenarios against an Env.
type Runner struct {
	registry *Registry
	env      *Env
	out      io.Writer
	logger   *zap.Logger
}

// NewRunner creates a runner writing results to out.
func NewRunner(registry *Registry, env *Env, out io.Writer, logger *zap.Logger) *Runner {
	return &Runner{
		registry: registry,
		env:      env,
		out:      out,
		logger:   logger.With(zap.String("component", "scenario-runner")),
	}
}

// Run executes the steps in order. Step failures are reported in the
// summary; the returned error covers unknown ops, output failures and ctx
// cancellation.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Summary, error) {
	ops := make([]OpFunc, len(s.Steps))
	for i, step := range s.Steps {
		fn, ok := r.registry.Get(step.Op)
		if !ok {
			return nil, &UnknownOpError{Step: step.Name, Op: step.Op}
		}
		ops[i] = fn
	}

	r.logger.Info("Running scenario",
		zap.String("name", s.Name),
		zap.Int("steps", len(s.Steps)),
	)

	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	defer enc.Close()

	summary := &Summary{Name: s.Name}
	stop := false
	for i := range s.Steps {
		step := &s.Steps[i]
		res := &Result{Scenario: s.Name, Step: step.Name, Op: step.Op}

		if stop {
			res.Status = StatusSkipped
			summary.Skipped++
		} else {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			r.runStep(ctx, step, ops[i], res)
			if res.Status == StatusOK {
				summary.Passed++
			} else {
				summary.Failed++
				stop = !s.ContinueOnError
			}
		}

		if err := enc.Encode(res); err != nil {
			return summary, fmt.Errorf("failed to write result of step '%s': %w", step.Name, err)
		}
	}

	r.logger.Info("Scenario finished",
		zap.String("name", s.Name),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)

	return summary, nil
}

func (r *Runner) runStep(ctx context.Context, step *Step, fn OpFunc, res *Result) {
	logger := r.logger.With(zap.String("step", step.Name), zap.String("op", step.Op))
	logger.Debug("Running step")

	start := time.Now()
	data, err := fn(ctx, r.env, &step.Args)
	res.Duration = time.Since(start).Round(time.Microsecond).String()

	switch {
	case err != nil && expected(err, step.ExpectError):
		res.Status = StatusOK
		res.Error = errorInfo(err)
	case err != nil:
		res.Status = StatusFailed
		res.Error = errorInfo(err)
		logger.Warn("Step failed", zap.Error(err))
	case step.ExpectError != "":
		res.Status = StatusFailed
		res.Data = data
		res.Error = &ErrorInfo{
			Message: fmt.Sprintf("expected error %s, step succeeded", step.ExpectError),
			Kind:    fberrors.KindUnknown.String(),
		}
		logger.Warn("Step succeeded but an error was expected", zap.String("expected", step.ExpectError))
	default:
		res.Status = StatusOK
		res.Data = data
	}
}

// expected matches err against an expect_error value, either an SDK error
// code or an error kind such as "not-found".
func expected(err error, want string) bool {
	if want == "" {
		return false
	}
	return fberrors.CodeOf(err) == want || fberrors.KindOf(err).String() == want
}
