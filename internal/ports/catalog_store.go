package ports

import "access-matrix-service/internal/domain"

// Port: persistence of the zone catalog (zone list plus derived bucket and
// reachability blocks).
type CatalogStore interface {
	// Load returns the current catalog, or an error when none exists.
	Load() (*domain.ZoneCatalog, error)

	// Save atomically replaces the catalog.
	Save(catalog *domain.ZoneCatalog) error
}

// Port: the per-stage pipeline metadata document. Informational only.
type MetadataStore interface {
	// Stage returns the recorded metadata for a stage name; ok is false when
	// the stage has never run.
	Stage(name string) (meta domain.StageMeta, ok bool, err error)

	// Record upserts one stage entry.
	Record(name string, meta domain.StageMeta) error
}
