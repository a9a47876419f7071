package model

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Store loads model artifacts by identifier from a directory and caches them
type Store struct {
	dir    string
	logger *slog.Logger

	artifacts map[string]*Artifact
	mu        sync.RWMutex
}

// NewStore creates a store rooted at dir
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{
		dir:       dir,
		logger:    logger,
		artifacts: make(map[string]*Artifact),
	}
}

// Path returns the file backing the given model
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Load returns the artifact for id, reading it from disk on first use
func (s *Store) Load(id string) (*Artifact, error) {
	s.mu.RLock()
	a, ok := s.artifacts[id]
	s.mu.RUnlock()
	if ok {
		return a, nil
	}

	a, err := LoadArtifact(s.Path(id))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if cached, ok := s.artifacts[id]; ok {
		a = cached
	} else {
		s.artifacts[id] = a
	}
	s.mu.Unlock()

	s.logger.Info("Loaded model",
		slog.String("model", id),
		slog.String("kind", a.Kind),
		slog.Int("features", len(a.FeatureNames)),
	)
	return a, nil
}

// Classifier loads id and returns the classifier variant its artifact describes
func (s *Store) Classifier(id string) (Classifier, error) {
	a, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	c, err := a.Classifier()
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", id, err)
	}
	return c, nil
}

// Regressor loads id as a point-estimate predictor
func (s *Store) Regressor(id string) (Predictor, error) {
	a, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	r, err := a.Regressor()
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", id, err)
	}
	return r, nil
}

// Preload reads every listed artifact concurrently and reports the first failure
func (s *Store) Preload(ctx context.Context, ids ...string) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := s.Load(id)
			return err
		})
	}

	return g.Wait()
}

// Loaded returns the identifiers currently cached
func (s *Store) Loaded() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.artifacts))
	for id := range s.artifacts {
		ids = append(ids, id)
	}
	return ids
}
