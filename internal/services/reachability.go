package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"access-matrix-service/internal/domain"
	"access-matrix-service/internal/platform/progress"
	"access-matrix-service/internal/ports"
)

// StageReachability is the pipeline metadata key for the reachability pass.
const StageReachability = "reachability"

const (
	reach15Seconds = 15 * 60
	reach30Seconds = 30 * 60
	reach45Seconds = 45 * 60
)

// ReachabilityOptions selects the reachability pass scope.
type ReachabilityOptions struct {
	Period domain.TimePeriod
	Mode   domain.TransportMode
	Force  bool
}

// ReachabilityEngine computes per-zone connectivity scores from the completed
// matrix and writes them back onto the zone catalog. Read-only over the
// matrix store; idempotent unless forced; recomputes every zone wholesale.
type ReachabilityEngine struct {
	store    ports.MatrixStore
	catalog  ports.CatalogStore
	metadata ports.MetadataStore
	broker   *progress.Broker
}

func NewReachabilityEngine(store ports.MatrixStore, catalog ports.CatalogStore, metadata ports.MetadataStore, broker *progress.Broker) *ReachabilityEngine {
	return &ReachabilityEngine{store: store, catalog: catalog, metadata: metadata, broker: broker}
}

type zoneStats struct {
	index  int // encounter order in the catalog
	score  float64
	c15    int
	c30    int
	c45    int
	median int
}

// Run scores every zone with at least one OK outgoing cell in the chosen
// period/mode:
//
//	score = 0.4*(c15/N) + 0.3*(c30/N) + 0.2*(c45/N) + 0.1*(1 - median/maxMedian)
//
// where N is the number of candidate destinations. Zones are ranked 1..K by
// descending score (ties keep catalog order); zones without data get score 0
// and distinct trailing ranks.
func (e *ReachabilityEngine) Run(ctx context.Context, opts ReachabilityOptions) (err error) {
	catalog, err := e.catalog.Load()
	if err != nil {
		return fmt.Errorf("reachability pass: %w", err)
	}
	if len(catalog.Zones) == 0 {
		return errors.New("reachability pass: zone catalog is empty")
	}
	if !opts.Force {
		for _, z := range catalog.Zones {
			if z.Reachability != nil {
				return errors.New("reachability pass: scores already calculated (use force to overwrite)")
			}
		}
	}

	if stale, err := StageStale(e.metadata, StageReachability); err != nil {
		return err
	} else if stale {
		log.Printf("stage=%s stale=true (routes updated since last calculation)", StageReachability)
	}

	e.broker.Start(StageReachability, len(catalog.Zones), "scoring zones")

	candidates := len(catalog.Zones) - 1
	if candidates < 1 {
		return errors.New("reachability pass: need at least two zones")
	}

	scored := make([]zoneStats, 0, len(catalog.Zones))
	withData := 0

	for i, zone := range catalog.Zones {
		file, err := e.store.Read(zone.ID, opts.Period, opts.Mode)
		if err != nil {
			return fmt.Errorf("reachability pass: %w", err)
		}

		stats := zoneStats{index: i, median: -1}
		if file != nil {
			var durations []int
			for _, cell := range file.Destinations {
				if cell.Status == domain.StatusOK && cell.DurationSeconds != nil {
					d := *cell.DurationSeconds
					durations = append(durations, d)
					if d <= reach15Seconds {
						stats.c15++
					}
					if d <= reach30Seconds {
						stats.c30++
					}
					if d <= reach45Seconds {
						stats.c45++
					}
				}
			}
			if len(durations) > 0 {
				stats.median = medianOf(durations)
				withData++
			}
		}

		scored = append(scored, stats)
		e.broker.Progress(StageReachability, i+1, len(catalog.Zones), zone.ID, nil)
	}

	if withData == 0 {
		return errors.New("reachability pass: no zone has OK cells for the requested period")
	}

	maxMedian := 0
	for _, s := range scored {
		if s.median > maxMedian {
			maxMedian = s.median
		}
	}

	n := float64(candidates)
	for i := range scored {
		s := &scored[i]
		if s.median < 0 {
			continue
		}
		s.score = 0.4*(float64(s.c15)/n) + 0.3*(float64(s.c30)/n) + 0.2*(float64(s.c45)/n)
		if maxMedian > 0 {
			s.score += 0.1 * (1 - float64(s.median)/float64(maxMedian))
		}
	}

	// Rank zones with data 1..K by descending score; stable sort keeps
	// catalog encounter order on ties. Data-less zones follow with distinct
	// trailing ranks in catalog order.
	order := make([]*zoneStats, 0, withData)
	for i := range scored {
		if scored[i].median >= 0 {
			order = append(order, &scored[i])
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].score > order[j].score })

	ranks := make(map[int]int, len(scored)) // catalog index -> rank
	for i, s := range order {
		ranks[s.index] = i + 1
	}
	next := withData + 1
	for i := range scored {
		if scored[i].median < 0 {
			ranks[scored[i].index] = next
			next++
		}
	}

	for i := range catalog.Zones {
		s := scored[i]
		r := &domain.ZoneReachability{
			Rank:             ranks[i],
			Score:            s.score,
			ZonesWithin15Min: s.c15,
			ZonesWithin30Min: s.c30,
			ZonesWithin45Min: s.c45,
		}
		if s.median >= 0 {
			r.MedianTimeSeconds = s.median
		}
		catalog.Zones[i].Reachability = r
	}

	catalog.Version++
	if err := e.catalog.Save(catalog); err != nil {
		return fmt.Errorf("reachability pass: %w", err)
	}

	meta := domain.StageMeta{
		Timestamp: time.Now().UTC(),
		Counters: map[string]int{
			"zones":     len(catalog.Zones),
			"withData":  withData,
			"maxMedian": maxMedian,
		},
	}
	if err := e.metadata.Record(StageReachability, meta); err != nil {
		return fmt.Errorf("reachability pass: %w", err)
	}

	e.broker.Complete(StageReachability,
		fmt.Sprintf("scored %d of %d zones", withData, len(catalog.Zones)), nil)

	return nil
}

// medianOf returns the median of an unsorted duration list (mean of the two
// middle values for even counts). The input is sorted in place.
func medianOf(durations []int) int {
	sort.Ints(durations)
	n := len(durations)
	if n%2 == 1 {
		return durations[n/2]
	}
	return (durations[n/2-1] + durations[n/2]) / 2
}
