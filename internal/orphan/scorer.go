package orphan

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/relic-io/relic/internal/correlate"
	relicerrors "github.com/relic-io/relic/internal/errors"
	"github.com/relic-io/relic/internal/logger"
	"github.com/relic-io/relic/internal/terraform"
	"github.com/relic-io/relic/pkg/types"
)

// ActivitySignal is the outcome of probing a resource for recent use.
type ActivitySignal int

const (
	// ActivityNone means the probe found no recent use.
	ActivityNone ActivitySignal = iota
	// ActivityRecent means the resource was used inside the window.
	ActivityRecent
	// ActivityUnknown means the probe could not tell.
	ActivityUnknown
)

// Inventory lists live resources of one type in the configured region.
type Inventory interface {
	ListResources(ctx context.Context, resourceType string) ([]types.Resource, error)
}

// CostEstimator returns estimated monthly cost per resource id. Missing
// entries mean no cost data, not zero cost.
type CostEstimator interface {
	EstimateMonthlyCosts(ctx context.Context, resourceIDs []string) (map[string]float64, error)
}

// ActivityProbe reports whether a resource shows recent activity.
type ActivityProbe interface {
	RecentActivity(ctx context.Context, res types.Resource) (ActivitySignal, error)
}

// Options configures a scoring run.
type Options struct {
	Mode          terraform.Mode
	ExplicitPath  string
	ResourceTypes []string
	Region        string
	Workers       int
	// FailFast aborts the whole run on the first per-resource error.
	// Otherwise errors degrade that resource's signals to unknown and the
	// run produces a best-effort report.
	FailFast bool
}

// Report is the ranked orphan report.
type Report struct {
	Region           string                  `json:"region"`
	TotalOrphaned    int                     `json:"total_orphaned"`
	TotalMonthlyCost float64                 `json:"total_monthly_cost"`
	StatesChecked    int                     `json:"states_checked"`
	TypesScanned     []string                `json:"resource_types_scanned"`
	Candidates       []types.OrphanCandidate `json:"orphaned_resources"`
}

// Scorer computes confidence-graded removal recommendations for resources
// not owned by any discovered state document.
type Scorer struct {
	correlator *correlate.Correlator
	inventory  Inventory
	costs      CostEstimator
	activity   ActivityProbe
	log        logger.Logger
}

// NewScorer wires the scorer to its collaborators. costs and activity may
// be nil; their signals then degrade to "no data".
func NewScorer(c *correlate.Correlator, inv Inventory, costs CostEstimator, activity ActivityProbe, log logger.Logger) *Scorer {
	return &Scorer{correlator: c, inventory: inv, costs: costs, activity: activity, log: log}
}

// Score produces the orphan report. Discovery runs once; per-resource
// correlation and activity probes fan out across a bounded pool. The final
// candidate order is deterministic (descending monthly cost, id as the
// tie-break) regardless of completion order.
func (s *Scorer) Score(ctx context.Context, opts Options) (*Report, error) {
	if len(opts.ResourceTypes) == 0 {
		opts.ResourceTypes = []string{"ec2", "rds", "s3"}
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	discovered, err := s.correlator.Discover(ctx, opts.Mode, opts.ExplicitPath)
	if err != nil {
		return nil, err
	}

	var inventory []types.Resource
	for _, rt := range opts.ResourceTypes {
		resources, err := s.inventory.ListResources(ctx, rt)
		if err != nil {
			if opts.FailFast {
				return nil, relicerrors.Classify(err)
			}
			s.log.WithField("type", rt).Error("inventory listing failed, skipping type", err)
			continue
		}
		inventory = append(inventory, resources...)
	}

	candidates, err := s.scoreAll(ctx, discovered, inventory, opts)
	if err != nil {
		return nil, err
	}

	s.attachCosts(ctx, candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := costOf(candidates[i]), costOf(candidates[j])
		if ci != cj {
			return ci > cj
		}
		return candidates[i].ResourceID < candidates[j].ResourceID
	})

	report := &Report{
		Region:        opts.Region,
		TotalOrphaned: len(candidates),
		StatesChecked: len(discovered),
		TypesScanned:  opts.ResourceTypes,
		Candidates:    candidates,
	}
	for _, c := range candidates {
		report.TotalMonthlyCost += costOf(c)
	}
	return report, nil
}

// scoreAll fans per-resource scoring out across the worker pool.
func (s *Scorer) scoreAll(ctx context.Context, discovered []terraform.Discovered, inventory []types.Resource, opts Options) ([]types.OrphanCandidate, error) {
	results := make([]*types.OrphanCandidate, len(inventory))
	errs := make([]error, len(inventory))
	jobs := make(chan int)

	workers := opts.Workers
	if len(inventory) < workers {
		workers = len(inventory)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				candidate, err := s.scoreOne(runCtx, discovered, inventory[i], opts)
				results[i] = candidate
				errs[i] = err
				if err != nil && opts.FailFast {
					cancel()
					return
				}
			}
		}()
	}

dispatch:
	for i := range inventory {
		select {
		case jobs <- i:
		case <-runCtx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, relicerrors.Wrap(relicerrors.KindInternal, "scoring cancelled", err)
	}
	if opts.FailFast {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}

	var candidates []types.OrphanCandidate
	for _, r := range results {
		if r != nil {
			candidates = append(candidates, *r)
		}
	}
	return candidates, nil
}

// scoreOne correlates one resource and walks the confidence ladder.
// Returns nil for resources cleanly owned by state.
func (s *Scorer) scoreOne(ctx context.Context, discovered []terraform.Discovered, res types.Resource, opts Options) (*types.OrphanCandidate, error) {
	verdict := correlate.ResolveAgainst(discovered, res.ID)
	if verdict.Managed && !verdict.Conflicted() {
		return nil, nil
	}

	activity, activityErr := s.probeActivity(ctx, res)
	if activityErr != nil {
		if opts.FailFast {
			return nil, activityErr
		}
		s.log.WithField("resource", res.ID).Error("activity probe failed, treating as unknown", activityErr)
		activity = ActivityUnknown
	}

	candidate := &types.OrphanCandidate{
		ResourceID:   res.ID,
		ResourceType: res.Type,
		Name:         res.Name,
		Region:       res.Region,
		Conflicted:   verdict.Conflicted(),
	}

	if verdict.Conflicted() {
		candidate.Reasons = append(candidate.Reasons,
			fmt.Sprintf("claimed by %d conflicting state addresses, requires investigation", 1+len(verdict.Conflicts)))
	} else {
		candidate.Reasons = append(candidate.Reasons, "not found in any discovered state document")
	}

	candidate.Confidence = s.grade(res, activity, candidate)
	return candidate, nil
}

// grade applies the confidence ladder in order; the first matching rule
// determines the level and every applied rule leaves a reason behind.
func (s *Scorer) grade(res types.Resource, activity ActivitySignal, candidate *types.OrphanCandidate) types.Confidence {
	if len(res.Dependents) == 0 && activity == ActivityNone {
		candidate.Reasons = append(candidate.Reasons, "no dependent resources found")
		candidate.Reasons = append(candidate.Reasons, "no recent activity observed")
		return types.ConfidenceHigh
	}

	if len(res.Dependents) > 0 {
		candidate.Reasons = append(candidate.Reasons,
			fmt.Sprintf("%d dependent resources attached", len(res.Dependents)))
		return types.ConfidenceMedium
	}
	if activity == ActivityUnknown {
		candidate.Reasons = append(candidate.Reasons, "activity signal unavailable")
		return types.ConfidenceMedium
	}

	candidate.Reasons = append(candidate.Reasons, "activity observed in last 7 days")
	return types.ConfidenceLow
}

func (s *Scorer) probeActivity(ctx context.Context, res types.Resource) (ActivitySignal, error) {
	if s.activity == nil {
		return ActivityUnknown, nil
	}
	return s.activity.RecentActivity(ctx, res)
}

// attachCosts enriches candidates with monthly cost. Cost data is advisory:
// estimator failure leaves costs unset and adds a reason, never fails the run.
func (s *Scorer) attachCosts(ctx context.Context, candidates []types.OrphanCandidate) {
	if s.costs == nil || len(candidates) == 0 {
		return
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ResourceID
	}

	costs, err := s.costs.EstimateMonthlyCosts(ctx, ids)
	if err != nil {
		s.log.Error("cost estimation unavailable", err)
		return
	}

	for i := range candidates {
		if cost, ok := costs[candidates[i].ResourceID]; ok {
			c := cost
			candidates[i].MonthlyCost = &c
			if cost > 100 {
				candidates[i].Reasons = append(candidates[i].Reasons,
					fmt.Sprintf("high monthly cost: $%.2f", cost))
			}
		} else {
			candidates[i].Reasons = append(candidates[i].Reasons, "no recent cost data")
		}
	}
}

func costOf(c types.OrphanCandidate) float64 {
	if c.MonthlyCost == nil {
		return 0
	}
	return *c.MonthlyCost
}
