// Package sweep runs many independent backtests over the same bars on a
// bounded worker pool and ranks the outcomes.
package sweep

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/metrics"
	"github.com/rustyeddy/quantlab/pkg/id"
	"github.com/rustyeddy/quantlab/strategies"
	"golang.org/x/sync/errgroup"
)

// Job is one strategy configuration to evaluate.
type Job struct {
	Kind   strategies.Kind   `json:"kind"`
	Params strategies.Params `json:"params"`
	Config backtest.Config   `json:"config"`
}

// Result is the outcome of one Job. Metrics omit the equity and drawdown
// curves. Error is set, and Metrics zero, when the job could not run.
type Result struct {
	RunID   string          `json:"runId"`
	Job     Job             `json:"job"`
	Name    string          `json:"name,omitempty"`
	Metrics metrics.Metrics `json:"metrics"`
	Error   string          `json:"error,omitempty"`
}

// Options tunes Run.
type Options struct {
	// Workers caps concurrent jobs. Zero means runtime.NumCPU().
	Workers int

	Metrics []metrics.Option
}

// Run evaluates every job against bars and returns results in job order.
// A job that fails (bad params, bad config) reports its error in its Result
// and does not stop the others. Cancelling ctx stops scheduling and Run
// returns the context error.
func Run(ctx context.Context, bars []market.Bar, jobs []Job, opts Options) ([]Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		// IDs are minted here so they sort in job order.
		runID := id.New()
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = runJob(runID, bars, job, opts.Metrics)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func runJob(runID string, bars []market.Bar, job Job, mopts []metrics.Option) (res Result) {
	res = Result{RunID: runID, Job: job}

	defer recoverJob(&res)

	strat, err := strategies.New(job.Kind, job.Params)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Name = strat.Name()
	if err := job.Config.Validate(); err != nil {
		res.Error = err.Error()
		return res
	}

	m := metrics.Compute(backtest.RunWith(bars, strat, job.Config), mopts...)
	m.EquityCurve = nil
	m.DrawdownCurve = nil
	res.Metrics = m
	return res
}

// recoverJob turns a panic in a job into its Result error so one job
// cannot take down the pool or the process hosting it.
func recoverJob(res *Result) {
	if r := recover(); r != nil {
		res.Metrics = metrics.Metrics{}
		res.Error = fmt.Sprintf("panic: %v", r)
	}
}

// GridSize is the number of jobs Grid would build for axes, saturating at
// math.MaxInt. Empty axes are ignored, as in Grid.
func GridSize(axes map[string][]any) int {
	n := 1
	for _, vs := range axes {
		if len(vs) == 0 {
			continue
		}
		if n > math.MaxInt/len(vs) {
			return math.MaxInt
		}
		n *= len(vs)
	}
	return n
}

// Grid expands axes into the cartesian product of parameter values laid
// over base. Axis keys are walked in sorted order with the last key varying
// fastest, so the job order is stable.
func Grid(kind strategies.Kind, base strategies.Params, axes map[string][]any, cfg backtest.Config) []Job {
	keys := make([]string, 0, len(axes))
	for k := range axes {
		if len(axes[k]) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	jobs := []Job{{Kind: kind, Params: strategies.Params{}.Merge(base), Config: cfg}}
	for _, k := range keys {
		next := make([]Job, 0, len(jobs)*len(axes[k]))
		for _, j := range jobs {
			for _, v := range axes[k] {
				p := strategies.Params{}.Merge(j.Params)
				p[k] = v
				next = append(next, Job{Kind: kind, Params: p, Config: cfg})
			}
		}
		jobs = next
	}
	return jobs
}

// ParseAxes reads "key=v1,v2,..." pairs. Values that parse as numbers are
// stored as float64, the rest as strings.
func ParseAxes(pairs []string) (map[string][]any, error) {
	axes := make(map[string][]any, len(pairs))
	for _, pair := range pairs {
		key, list, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.TrimSpace(list) == "" {
			return nil, fmt.Errorf("sweep: axis %q: want key=v1,v2", pair)
		}
		for _, raw := range strings.Split(list, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				axes[key] = append(axes[key], f)
			} else {
				axes[key] = append(axes[key], raw)
			}
		}
	}
	return axes, nil
}
