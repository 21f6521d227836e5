package seeder

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/threatlens/threatlens-stack/cli/internal/client"
	"github.com/threatlens/threatlens-stack/common/logging"
)

// Submitter sends generated records to the API.
type Submitter interface {
	SubmitNetwork(ctx context.Context, rec *client.NetworkTraffic) (*client.SubmitResult, error)
	SubmitEmail(ctx context.Context, rec *client.EmailCommunication) (*client.SubmitResult, error)
}

// Summary counts what a run produced.
type Summary struct {
	Submitted        int            `json:"submitted" yaml:"submitted"`
	Failed           int            `json:"failed" yaml:"failed"`
	Anomalies        int            `json:"anomalies" yaml:"anomalies"`
	Alerts           int            `json:"alerts" yaml:"alerts"`
	PredictionErrors int            `json:"prediction_errors" yaml:"prediction_errors"`
	ByPattern        map[string]int `json:"by_pattern" yaml:"by_pattern"`
}

type job struct {
	kind    string
	pattern string
	network *client.NetworkTraffic
	email   *client.EmailCommunication
}

// Runner handles the seeding execution
type Runner struct {
	config    *Config
	submitter Submitter
	gen       *Generator
	logger    *logging.Logger

	mu      sync.Mutex
	summary Summary
}

// NewRunner creates a new seeder runner
func NewRunner(config *Config, submitter Submitter, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		config:    config,
		submitter: submitter,
		gen:       NewGenerator(config.Defaults.Seed),
		logger:    logger,
	}
}

// Run submits the named scenarios followed by the baseline mix. With no
// names, every enabled scenario runs. Failed submissions are counted, not
// returned; only cancellation stops a run early.
func (r *Runner) Run(ctx context.Context, scenarios []string) (*Summary, error) {
	r.summary = Summary{ByPattern: map[string]int{}}
	if len(scenarios) == 0 {
		scenarios = r.config.EnabledScenarios()
	}

	r.logger.InfoContext(ctx, "starting seeder",
		"count", r.config.Defaults.Count,
		"kinds", r.config.Defaults.Kinds,
		"anomaly_ratio", r.config.Defaults.AnomalyRatio,
		"scenarios", scenarios,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Defaults.Concurrency)

	dispatch := func(j job) bool {
		if gctx.Err() != nil {
			return false
		}
		g.Go(func() error {
			r.submit(gctx, j)
			return nil
		})
		return r.wait(gctx)
	}

	for _, name := range scenarios {
		s, ok := r.config.GetScenario(name)
		if !ok {
			r.logger.WarnContext(ctx, "scenario not found in config, skipping", "scenario", name)
			continue
		}
		r.logger.InfoContext(ctx, "injecting scenario", "scenario", name, "kind", s.Kind, "pattern", s.Pattern, "count", s.Count)
		for i := 0; i < s.Count; i++ {
			j, err := r.build(s.Kind, s.Pattern)
			if err != nil {
				r.logger.WarnContext(ctx, "skipping scenario", "scenario", name, logging.Error(err))
				break
			}
			if !dispatch(j) {
				break
			}
		}
	}

	kinds := r.config.Defaults.Kinds
	for i := 0; i < r.config.Defaults.Count; i++ {
		kind := kinds[i%len(kinds)]
		pattern := Baseline
		if r.gen.Chance(r.config.Defaults.AnomalyRatio) {
			pattern = r.gen.AnomalyPattern(kind)
		}
		j, err := r.build(kind, pattern)
		if err != nil {
			return nil, err
		}
		if !dispatch(j) {
			break
		}
	}

	_ = g.Wait()
	summary := r.summary

	r.logger.InfoContext(ctx, "seeding complete",
		"submitted", summary.Submitted,
		"failed", summary.Failed,
		"anomalies", summary.Anomalies,
		"alerts", summary.Alerts,
	)

	if err := ctx.Err(); err != nil {
		return &summary, err
	}
	return &summary, nil
}

func (r *Runner) build(kind, pattern string) (job, error) {
	j := job{kind: kind, pattern: pattern}
	var err error
	switch kind {
	case client.KindEmail:
		j.email, err = r.gen.Email(pattern)
	default:
		j.network, err = r.gen.Network(pattern)
	}
	return j, err
}

func (r *Runner) submit(ctx context.Context, j job) {
	var (
		res *client.SubmitResult
		err error
	)
	if j.email != nil {
		res, err = r.submitter.SubmitEmail(ctx, j.email)
	} else {
		res, err = r.submitter.SubmitNetwork(ctx, j.network)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.summary.Failed++
		r.logger.DebugContext(ctx, "submit failed", logging.SourceKind(j.kind), "pattern", j.pattern, logging.Error(err))
		return
	}
	r.summary.Submitted++
	r.summary.ByPattern[j.kind+"/"+j.pattern]++
	if res.PredictionError != "" {
		r.summary.PredictionErrors++
	}
	if res.Prediction != nil && res.Prediction.IsAnomaly {
		r.summary.Anomalies++
	}
	if res.AlertID != "" {
		r.summary.Alerts++
	}
}

// wait sleeps for the configured interval and reports whether the run
// should continue.
func (r *Runner) wait(ctx context.Context) bool {
	if r.config.Defaults.Interval <= 0 {
		return true
	}
	t := time.NewTimer(r.config.Defaults.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
