package domain

import (
	"fmt"
	"strconv"
	"time"
)

// TimeBucket is a labeled duration range used for heatmap coloring.
// MaxDurationSeconds == -1 marks the open-ended last bucket. A bucket set
// partitions [0, inf) contiguously in ascending order.
type TimeBucket struct {
	Number             int    `json:"number"`
	MinDurationSeconds int    `json:"minDuration"`
	MaxDurationSeconds int    `json:"maxDuration"`
	Color              string `json:"color"`
	Label              string `json:"label"`
}

// ZoneReachability is the per-zone connectivity summary derived from the
// completed matrix. It is recomputed wholesale each analytics run.
type ZoneReachability struct {
	Rank              int     `json:"rank"`
	Score             float64 `json:"score"`
	ZonesWithin15Min  int     `json:"zones15min"`
	ZonesWithin30Min  int     `json:"zones30min"`
	ZonesWithin45Min  int     `json:"zones45min"`
	MedianTimeSeconds int     `json:"medianTime"`
}

// StageMeta records one pipeline stage run: when it happened and its
// counters. Used only for staleness detection, never for control flow.
type StageMeta struct {
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"runId,omitempty"`
	Counters  map[string]int `json:"counters,omitempty"`
}

// BucketLabel renders a human label for a duration range in whole minutes,
// e.g. "15-30 min" or "75+ min" for the open-ended bucket.
func BucketLabel(minSeconds, maxSeconds int) string {
	minMin := minSeconds / 60
	if maxSeconds < 0 {
		return strconv.Itoa(minMin) + "+ min"
	}
	return fmt.Sprintf("%d-%d min", minMin, maxSeconds/60)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
