package store

import (
	"fmt"
	"os"

	"access-matrix-service/internal/domain"
)

// FileCatalogStore persists the zone catalog as a single JSON document.
type FileCatalogStore struct {
	path string
}

func NewFileCatalogStore(path string) *FileCatalogStore {
	return &FileCatalogStore{path: path}
}

func (s *FileCatalogStore) Load() (*domain.ZoneCatalog, error) {
	var catalog domain.ZoneCatalog
	err := readJSON(s.path, &catalog)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("load catalog: %q does not exist (run zone ingestion first)", s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return &catalog, nil
}

func (s *FileCatalogStore) Save(catalog *domain.ZoneCatalog) error {
	if err := writeJSONAtomic(s.path, catalog); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}
