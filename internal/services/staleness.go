package services

import (
	"fmt"

	"access-matrix-service/internal/ports"
)

// StageStale reports whether a derived stage's output predates the routes
// stage it summarizes. A stage that never ran is stale. The signal is
// informational: callers log it, they never branch the pipeline on it.
func StageStale(metadata ports.MetadataStore, stage string) (bool, error) {
	routesMeta, routesOK, err := metadata.Stage(StageRoutes)
	if err != nil {
		return false, fmt.Errorf("staleness check: %w", err)
	}
	if !routesOK {
		return false, nil
	}

	stageMeta, ok, err := metadata.Stage(stage)
	if err != nil {
		return false, fmt.Errorf("staleness check: %w", err)
	}
	if !ok {
		return true, nil
	}

	return stageMeta.Timestamp.Before(routesMeta.Timestamp), nil
}
