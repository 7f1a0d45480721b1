package store

import (
	"fmt"
	"os"

	"access-matrix-service/internal/domain"
)

// FileMetadataStore persists per-stage pipeline metadata as a single JSON
// document keyed by stage name. The document is informational: it feeds
// staleness checks, never control flow.
type FileMetadataStore struct {
	path string
}

func NewFileMetadataStore(path string) *FileMetadataStore {
	return &FileMetadataStore{path: path}
}

func (s *FileMetadataStore) load() (map[string]domain.StageMeta, error) {
	stages := make(map[string]domain.StageMeta)
	err := readJSON(s.path, &stages)
	if os.IsNotExist(err) {
		return stages, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pipeline metadata: %w", err)
	}
	return stages, nil
}

func (s *FileMetadataStore) Stage(name string) (domain.StageMeta, bool, error) {
	stages, err := s.load()
	if err != nil {
		return domain.StageMeta{}, false, err
	}
	meta, ok := stages[name]
	return meta, ok, nil
}

func (s *FileMetadataStore) Record(name string, meta domain.StageMeta) error {
	stages, err := s.load()
	if err != nil {
		return fmt.Errorf("record stage %q: %w", name, err)
	}

	stages[name] = meta

	if err := writeJSONAtomic(s.path, stages); err != nil {
		return fmt.Errorf("record stage %q: %w", name, err)
	}
	return nil
}
