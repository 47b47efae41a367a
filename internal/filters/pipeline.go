// Package filters decides whether a freshly observed pool is worth buying.
package filters

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/models"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/tokeninfo"
)

// Outcome of a single filter.
type Outcome int

const (
	Pass Outcome = iota
	Fail
	// Indeterminate means the data needed was not available yet. It counts
	// as a failure for the round.
	Indeterminate
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	default:
		return "indeterminate"
	}
}

type Result struct {
	Filter  string  `json:"filter"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// Filter is one admission predicate.
type Filter interface {
	Name() string
	Check(ctx context.Context, snap *tokeninfo.Snapshot) Result
}

// Report is the outcome of one round.
type Report struct {
	Passed  bool
	Results []Result
}

// Failed returns the results that did not pass.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome != Pass {
			out = append(out, res)
		}
	}
	return out
}

// Pipeline runs every enabled filter against the same snapshot.
type Pipeline struct {
	src     tokeninfo.Source
	filters []Filter
	logger  *logrus.Logger
}

func NewPipeline(src tokeninfo.Source, logger *logrus.Logger, filters ...Filter) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{src: src, filters: filters, logger: logger}
}

func (p *Pipeline) Len() int { return len(p.filters) }

func (p *Pipeline) Names() []string {
	names := make([]string, len(p.filters))
	for i, f := range p.filters {
		names[i] = f.Name()
	}
	return names
}

// Evaluate runs one round. Filters run concurrently; every filter is
// evaluated even after another has failed. An empty pipeline passes.
func (p *Pipeline) Evaluate(ctx context.Context, pool *models.PoolRecord) Report {
	snap := tokeninfo.NewSnapshot(p.src, pool)
	results := make([]Result, len(p.filters))

	var wg sync.WaitGroup
	for i, f := range p.filters {
		wg.Add(1)
		go func(i int, f Filter) {
			defer wg.Done()
			res := f.Check(ctx, snap)
			res.Filter = f.Name()
			results[i] = res
		}(i, f)
	}
	wg.Wait()

	report := Report{Passed: true, Results: results}
	for _, res := range results {
		if res.Outcome != Pass {
			report.Passed = false
			p.logger.WithFields(logrus.Fields{
				"mint":    pool.Token(),
				"filter":  res.Filter,
				"outcome": res.Outcome.String(),
				"reason":  res.Reason,
			}).Trace("filter did not pass")
		}
	}
	return report
}

func pass() Result { return Result{Outcome: Pass} }

func fail(reason string) Result { return Result{Outcome: Fail, Reason: reason} }

func indeterminate(err error) Result {
	return Result{Outcome: Indeterminate, Reason: err.Error()}
}
