package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"access-matrix-service/internal/domain"
	"access-matrix-service/internal/platform/progress"
	"access-matrix-service/internal/ports"
)

// StageHistogram is the pipeline metadata key for the histogram pass.
const StageHistogram = "histogram"

const (
	fixedBucketCount   = 6
	bucketWidthSeconds = 15 * 60
	decileCount        = 10
)

// Sequential green-to-red ramps, one per bucket-set variant.
var (
	fixedPalette = [fixedBucketCount]string{
		"#1a9850", "#a6d96a", "#fee08b", "#f46d43", "#d73027", "#67001f",
	}
	decilePalette = [decileCount]string{
		"#1a9850", "#66bd63", "#a6d96a", "#d9ef8b", "#fee08b",
		"#fdae61", "#f46d43", "#d73027", "#a50026", "#67001f",
	}
)

// HistogramOptions selects the histogram pass scope and variant.
type HistogramOptions struct {
	Periods []domain.TimePeriod // empty = all periods
	Mode    domain.TransportMode
	Deciles bool // equal-count deciles instead of fixed 15-minute buckets
	Force   bool // overwrite an existing bucket set
}

// HistogramEngine partitions completed-cell durations into heatmap buckets
// and writes the bucket set onto the zone catalog. Read-only over the matrix
// store; idempotent unless forced.
type HistogramEngine struct {
	store    ports.MatrixStore
	catalog  ports.CatalogStore
	metadata ports.MetadataStore
	broker   *progress.Broker
}

func NewHistogramEngine(store ports.MatrixStore, catalog ports.CatalogStore, metadata ports.MetadataStore, broker *progress.Broker) *HistogramEngine {
	return &HistogramEngine{store: store, catalog: catalog, metadata: metadata, broker: broker}
}

// Run computes the bucket set. Zero OK cells is a precondition failure; an
// existing bucket set is refused unless opts.Force.
func (e *HistogramEngine) Run(ctx context.Context, opts HistogramOptions) ([]domain.TimeBucket, error) {
	catalog, err := e.catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("histogram pass: %w", err)
	}
	if len(catalog.Zones) == 0 {
		return nil, errors.New("histogram pass: zone catalog is empty")
	}
	if len(catalog.TimeBuckets) > 0 && !opts.Force {
		return nil, errors.New("histogram pass: bucket set already calculated (use force to overwrite)")
	}

	if stale, err := StageStale(e.metadata, StageHistogram); err != nil {
		return nil, err
	} else if stale {
		log.Printf("stage=%s stale=true (routes updated since last calculation)", StageHistogram)
	}

	zoneIDs := make([]string, 0, len(catalog.Zones))
	for _, z := range catalog.Zones {
		zoneIDs = append(zoneIDs, z.ID)
	}

	periods := opts.Periods
	if len(periods) == 0 {
		periods = domain.AllPeriods()
	}

	var durations []int
	for _, period := range periods {
		ds, err := e.store.AllDurations(zoneIDs, period, opts.Mode)
		if err != nil {
			return nil, fmt.Errorf("histogram pass: %w", err)
		}
		durations = append(durations, ds...)
	}
	if len(durations) == 0 {
		return nil, errors.New("histogram pass: no OK cells to partition")
	}

	e.broker.Start(StageHistogram, len(durations), "partitioning durations")

	var buckets []domain.TimeBucket
	if opts.Deciles {
		buckets = decileBuckets(durations)
	} else {
		buckets = fixedBuckets()
	}

	catalog.TimeBuckets = buckets
	catalog.Version++
	if err := e.catalog.Save(catalog); err != nil {
		return nil, fmt.Errorf("histogram pass: %w", err)
	}

	meta := domain.StageMeta{
		Timestamp: time.Now().UTC(),
		Counters: map[string]int{
			"durations": len(durations),
			"buckets":   len(buckets),
		},
	}
	if err := e.metadata.Record(StageHistogram, meta); err != nil {
		return nil, fmt.Errorf("histogram pass: %w", err)
	}

	e.broker.Complete(StageHistogram,
		fmt.Sprintf("partitioned %d durations into %d buckets", len(durations), len(buckets)), nil)

	return buckets, nil
}

// fixedBuckets returns six contiguous 15-minute buckets, the last open-ended.
func fixedBuckets() []domain.TimeBucket {
	buckets := make([]domain.TimeBucket, 0, fixedBucketCount)
	for i := 0; i < fixedBucketCount; i++ {
		min := i * bucketWidthSeconds
		max := (i + 1) * bucketWidthSeconds
		if i == fixedBucketCount-1 {
			max = -1
		}
		buckets = append(buckets, domain.TimeBucket{
			Number:             i + 1,
			MinDurationSeconds: min,
			MaxDurationSeconds: max,
			Color:              fixedPalette[i],
			Label:              domain.BucketLabel(min, max),
		})
	}
	return buckets
}

// decileBuckets partitions sorted durations into ten equal-count quantiles.
// The remainder (N mod 10) goes to the earliest deciles; boundaries are
// non-decreasing and the last decile is open-ended.
func decileBuckets(sorted []int) []domain.TimeBucket {
	n := len(sorted)
	base := n / decileCount
	remainder := n % decileCount

	buckets := make([]domain.TimeBucket, 0, decileCount)
	index := 0
	min := 0

	for i := 0; i < decileCount; i++ {
		size := base
		if i < remainder {
			size++
		}
		index += size

		max := min
		if index > 0 && index <= n {
			max = sorted[index-1]
		}
		if max < min {
			max = min
		}
		if i == decileCount-1 {
			max = -1
		}

		buckets = append(buckets, domain.TimeBucket{
			Number:             i + 1,
			MinDurationSeconds: min,
			MaxDurationSeconds: max,
			Color:              decilePalette[i],
			Label:              domain.BucketLabel(min, max),
		})

		if max >= 0 {
			min = max
		}
	}

	return buckets
}
