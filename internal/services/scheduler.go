package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"access-matrix-service/internal/domain"
	"access-matrix-service/internal/platform/obs"
	"access-matrix-service/internal/platform/progress"
	"access-matrix-service/internal/ports"
)

// StageRoutes is the pipeline metadata key for route computation runs.
const StageRoutes = "routes"

// ComputeScope selects the work for one scheduler invocation: one or all
// periods, one mode, an optional random origin sample and an optional cap on
// total queries.
type ComputeScope struct {
	Periods       []domain.TimePeriod
	Mode          domain.TransportMode
	SampleOrigins int // 0 = every origin zone
	MaxQueries    int // 0 = no cap
}

// ComputeResult aggregates one invocation's outcome tallies.
type ComputeResult struct {
	RunID            string
	Processed        int
	OK               int
	NoRoute          int
	Errors           int
	RemainingPending int
}

// RouteScheduler drives the trip planner over every PENDING cell of a scope
// under bounded concurrency and pacing, persisting results with bounded
// write amplification.
//
// Re-running the scheduler is always safe: it only ever touches PENDING
// cells, which is the pipeline's primary resilience mechanism.
type RouteScheduler struct {
	store    ports.MatrixStore
	catalog  ports.CatalogStore
	metadata ports.MetadataStore
	planner  ports.TripPlanner
	broker   *progress.Broker

	concurrency int
	paceDelay   time.Duration
	flushEvery  int

	rng *rand.Rand
}

func NewRouteScheduler(
	store ports.MatrixStore,
	catalog ports.CatalogStore,
	metadata ports.MetadataStore,
	planner ports.TripPlanner,
	broker *progress.Broker,
	concurrency int,
	paceDelay time.Duration,
	flushEvery int,
) *RouteScheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if flushEvery < 1 {
		flushEvery = 50
	}

	return &RouteScheduler{
		store:       store,
		catalog:     catalog,
		metadata:    metadata,
		planner:     planner,
		broker:      broker,
		concurrency: concurrency,
		paceDelay:   paceDelay,
		flushEvery:  flushEvery,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// task is one PENDING cell to compute.
type task struct {
	fromID string
	toID   string
	period domain.TimePeriod
}

// Run executes the scope to completion and reports aggregate counts. No
// single task failure aborts the batch; only a storage write failure does
// (already-flushed origins keep their progress).
func (s *RouteScheduler) Run(ctx context.Context, scope ComputeScope) (_ *ComputeResult, err error) {
	runID := uuid.New().String()
	ctx = obs.WithRunID(ctx, runID)
	defer obs.Time(ctx, "scheduler.Run")(&err)

	catalog, err := s.catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("run route computation: %w", err)
	}
	if len(catalog.Zones) == 0 {
		return nil, errors.New("run route computation: zone catalog is empty")
	}

	zones := make(map[string]domain.Zone, len(catalog.Zones))
	zoneIDs := make([]string, 0, len(catalog.Zones))
	for _, z := range catalog.Zones {
		zones[z.ID] = z
		zoneIDs = append(zoneIDs, z.ID)
	}

	periods := scope.Periods
	if len(periods) == 0 {
		periods = domain.AllPeriods()
	}

	tasks, err := s.resolveTasks(zoneIDs, periods, scope)
	if err != nil {
		return nil, err
	}

	result := &ComputeResult{RunID: runID}
	s.broker.Start(StageRoutes, len(tasks), fmt.Sprintf("computing %d pending cells (mode=%s)", len(tasks), scope.Mode))

	if len(tasks) > 0 {
		if err := s.executeTasks(ctx, tasks, zones, scope.Mode, result); err != nil {
			s.broker.Error(StageRoutes, err, "route computation aborted")
			return nil, err
		}
	}

	for _, period := range periods {
		counts, err := s.store.CountByStatus(zoneIDs, period, scope.Mode)
		if err != nil {
			return nil, fmt.Errorf("run route computation: %w", err)
		}
		result.RemainingPending += counts[domain.StatusPending]
	}

	meta := domain.StageMeta{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Counters: map[string]int{
			"processed":        result.Processed,
			"ok":               result.OK,
			"noRoute":          result.NoRoute,
			"errors":           result.Errors,
			"remainingPending": result.RemainingPending,
		},
	}
	if err := s.metadata.Record(StageRoutes, meta); err != nil {
		return nil, fmt.Errorf("run route computation: %w", err)
	}

	s.broker.Complete(StageRoutes,
		fmt.Sprintf("processed=%d ok=%d no_route=%d errors=%d pending=%d",
			result.Processed, result.OK, result.NoRoute, result.Errors, result.RemainingPending),
		map[string]any{"runId": runID})

	return result, nil
}

// resolveTasks enumerates PENDING cells for the scope, applying the origin
// sample and the total query cap.
func (s *RouteScheduler) resolveTasks(zoneIDs []string, periods []domain.TimePeriod, scope ComputeScope) ([]task, error) {
	origins := zoneIDs
	if scope.SampleOrigins > 0 && scope.SampleOrigins < len(origins) {
		sampled := make([]string, len(origins))
		copy(sampled, origins)
		s.rng.Shuffle(len(sampled), func(i, j int) { sampled[i], sampled[j] = sampled[j], sampled[i] })
		origins = sampled[:scope.SampleOrigins]
	}

	var tasks []task
	for _, period := range periods {
		for _, fromID := range origins {
			pending, err := s.store.PendingDestinations(fromID, period, scope.Mode)
			if err != nil {
				return nil, fmt.Errorf("resolve tasks: %w", err)
			}
			for _, toID := range pending {
				tasks = append(tasks, task{fromID: fromID, toID: toID, period: period})
			}
		}
	}

	if scope.MaxQueries > 0 && len(tasks) > scope.MaxQueries {
		s.rng.Shuffle(len(tasks), func(i, j int) { tasks[i], tasks[j] = tasks[j], tasks[i] })
		tasks = tasks[:scope.MaxQueries]
	}

	return tasks, nil
}

// executeTasks runs the task list through a bounded worker pool. Tallies,
// buffers and flushing are serialized under one mutex so progress counters
// stay consistent regardless of completion order; progress is cumulative
// across all periods of the invocation.
func (s *RouteScheduler) executeTasks(ctx context.Context, tasks []task, zones map[string]domain.Zone, mode domain.TransportMode, result *ComputeResult) error {
	total := len(tasks)

	var (
		mu       sync.Mutex
		buffers  = make(map[string]*cellBuffer)
		flushErr error
	)

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			sem <- struct{}{}
			defer wg.Done()
			defer func() { <-sem }()

			s.pace(ctx)

			cell := s.computeCell(ctx, t, zones, mode)

			mu.Lock()
			defer mu.Unlock()

			key := t.fromID + "|" + string(t.period)
			buf, ok := buffers[key]
			if !ok {
				buf = newCellBuffer(t.fromID, t.period, mode)
				buffers[key] = buf
			}
			buf.Stage(cell)

			result.Processed++
			switch cell.Status {
			case domain.StatusOK:
				result.OK++
			case domain.StatusNoRoute:
				result.NoRoute++
			default:
				result.Errors++
			}

			s.broker.Progress(StageRoutes, result.Processed, total,
				fmt.Sprintf("%s -> %s [%s] %s", t.fromID, t.toID, t.period, cell.Status),
				map[string]any{"ok": result.OK, "noRoute": result.NoRoute, "errors": result.Errors})

			// Stop touching the store after the first write failure; staged
			// results for other origins are recomputed on the next run.
			if flushErr == nil && buf.Len() >= s.flushEvery {
				if err := buf.Flush(s.store); err != nil {
					flushErr = err
				}
			}
		}(t)
	}

	wg.Wait()

	if flushErr != nil {
		return fmt.Errorf("execute tasks: flush results: %w", flushErr)
	}

	for _, buf := range buffers {
		if err := buf.Flush(s.store); err != nil {
			return fmt.Errorf("execute tasks: final flush: %w", err)
		}
	}

	return nil
}

// computeCell resolves one task to a terminal cell. A missing routing point
// is recorded as ERROR without a network call; planner cancellation is also
// folded into ERROR so the batch always runs to completion.
func (s *RouteScheduler) computeCell(ctx context.Context, t task, zones map[string]domain.Zone, mode domain.TransportMode) domain.Cell {
	from, okFrom := zones[t.fromID]
	to, okTo := zones[t.toID]

	if !okFrom || from.RoutingPoint == nil {
		return domain.Cell{
			DestinationID: t.toID,
			Status:        domain.StatusError,
			ErrorMessage:  fmt.Sprintf("zone %s has no routing point", t.fromID),
		}
	}
	if !okTo || to.RoutingPoint == nil {
		return domain.Cell{
			DestinationID: t.toID,
			Status:        domain.StatusError,
			ErrorMessage:  fmt.Sprintf("zone %s has no routing point", t.toID),
		}
	}

	result, err := s.planner.PlanTrip(ctx, ports.TripQuery{
		FromZoneID: t.fromID,
		ToZoneID:   t.toID,
		From:       *from.RoutingPoint,
		To:         *to.RoutingPoint,
		Period:     t.period,
		Mode:       mode,
	})
	if err != nil {
		return domain.Cell{
			DestinationID: t.toID,
			Status:        domain.StatusError,
			ErrorMessage:  fmt.Sprintf("plan trip: %v", err),
		}
	}

	return result.Cell(t.toID)
}

// pace sleeps a jittered delay between requests (politeness toward a shared
// planner instance), honoring context cancellation.
func (s *RouteScheduler) pace(ctx context.Context) {
	if s.paceDelay <= 0 {
		return
	}

	// Package-level rand: s.rng is not goroutine safe and pace runs on
	// worker goroutines.
	delay := s.paceDelay/2 + time.Duration(rand.Int63n(int64(s.paceDelay)))
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
