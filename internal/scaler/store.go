package scaler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aryan23f3001987/Parkinson-Project/internal/features"
)

// Store loads, caches and persists scalers keyed by identifier
type Store struct {
	dir    string
	logger *slog.Logger

	scalers map[string]*StandardScaler
	onFit   func(id string)
	mu      sync.Mutex
}

// NewStore creates a store rooted at dir
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{
		dir:     dir,
		logger:  logger,
		scalers: make(map[string]*StandardScaler),
	}
}

// OnFit registers fn to be called whenever a missing scaler is fitted
func (s *Store) OnFit(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFit = fn
}

// Path returns the file backing the given scaler
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Scale standardizes v with the scaler stored under id, fitting and persisting
// a new one on v when none exists yet
func (s *Store) Scale(v features.Vector, id string) (features.Vector, error) {
	sc, err := s.get(id, v)
	if err != nil {
		return features.Vector{}, err
	}

	out, err := sc.Transform(v)
	if err != nil {
		return features.Vector{}, fmt.Errorf("scaler %s: %w", id, err)
	}
	return out, nil
}

// get returns the cached scaler, loading or fitting it under the store lock
func (s *Store) get(id string, sample features.Vector) (*StandardScaler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc, ok := s.scalers[id]; ok {
		return sc, nil
	}

	path := s.Path(id)
	sc, err := Load(path)
	switch {
	case err == nil:
		s.logger.Info("Loaded scaler", slog.String("scaler", id), slog.String("path", path))
	case errors.Is(err, os.ErrNotExist):
		s.logger.Warn("Scaler not found, fitting and saving a new one",
			slog.String("scaler", id),
			slog.String("path", path),
		)
		sc, err = Fit(sample)
		if err != nil {
			return nil, fmt.Errorf("failed to fit scaler %s: %w", id, err)
		}
		if err := Save(path, sc); err != nil {
			return nil, err
		}
		if s.onFit != nil {
			s.onFit(id)
		}
	default:
		return nil, err
	}

	s.scalers[id] = sc
	return sc, nil
}

// Load reads a scaler from a JSON file
func Load(path string) (*StandardScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc StandardScaler
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scaler %s: %w", path, err)
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scaler %s: %w", path, err)
	}

	return &sc, nil
}

// Save writes a scaler to path, replacing any previous file atomically
func Save(path string, sc *StandardScaler) error {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scaler: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create scaler directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write scaler %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close scaler %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save scaler %s: %w", path, err)
	}
	return nil
}
