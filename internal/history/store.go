package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aryan23f3001987/Parkinson-Project/internal/assessment"
	_ "modernc.org/sqlite"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

var (
	//go:embed sql/*
	f embed.FS

	// ErrNotFound is returned when no assessment has the requested id
	ErrNotFound = errors.New("assessment not found")

	errDBNotInitialized = errors.New("database not initialized")
)

const (
	insertAssessment = `INSERT INTO assessment (
		id, created_at, age, sex, test_time, status, probability, motor_updrs, total_updrs,
		bundle, classification_features, regression_features, warnings
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectColumns = `SELECT id, created_at, age, sex, test_time, status, probability,
		motor_updrs, total_updrs, bundle, classification_features, regression_features, warnings
		FROM assessment`

	selectAssessment = selectColumns + ` WHERE id = ?`

	listAssessments = selectColumns + ` ORDER BY created_at DESC, id LIMIT ?`

	countAssessments = `SELECT status, COUNT(*) FROM assessment GROUP BY status`
)

// Record is one stored assessment
type Record struct {
	ID                     string             `json:"id"`
	CreatedAt              time.Time          `json:"created_at"`
	Age                    float64            `json:"age"`
	Sex                    float64            `json:"sex"`
	TestTime               float64            `json:"test_time"`
	Status                 string             `json:"status"`
	Probability            float64            `json:"probability"`
	MotorUPDRS             float64            `json:"motor_updrs"`
	TotalUPDRS             float64            `json:"total_updrs"`
	Bundle                 assessment.Bundle  `json:"bundle"`
	ClassificationFeatures map[string]float64 `json:"classification_features"`
	RegressionFeatures     map[string]float64 `json:"regression_features"`
	Warnings               []string           `json:"warnings"`
}

// Recorder is the write side used by the pipeline
type Recorder interface {
	Save(ctx context.Context, r *Record) error
}

// Store is a SQLite-backed assessment history
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path not specified")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	b, err := f.ReadFile("sql/ddl.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read the schema creation file: %w", err)
	}

	if _, err := db.Exec(string(b)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create database schema in %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts a record
func (s *Store) Save(ctx context.Context, r *Record) error {
	if s == nil || s.db == nil {
		return errDBNotInitialized
	}

	if r == nil || r.ID == "" {
		return errors.New("record with an id is required")
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	bundle, err := json.Marshal(r.Bundle)
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}

	classification, err := json.Marshal(nonNilMap(r.ClassificationFeatures))
	if err != nil {
		return fmt.Errorf("failed to encode classification features: %w", err)
	}

	regression, err := json.Marshal(nonNilMap(r.RegressionFeatures))
	if err != nil {
		return fmt.Errorf("failed to encode regression features: %w", err)
	}

	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertAssessment,
		r.ID, r.CreatedAt.UnixMilli(), r.Age, r.Sex, r.TestTime, r.Status, r.Probability,
		r.MotorUPDRS, r.TotalUPDRS, string(bundle), string(classification), string(regression),
		string(warningsJSON))
	if err != nil {
		return fmt.Errorf("failed to insert assessment %s: %w", r.ID, err)
	}

	return nil
}

// Get returns the record with the given id
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}

	row := s.db.QueryRowContext(ctx, selectAssessment, id)
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return r, nil
}

// List returns the most recent records, newest first
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.db.QueryContext(ctx, listAssessments, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	list := make([]*Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assessments: %w", err)
	}

	return list, nil
}

// CountByStatus returns the number of stored assessments per status
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := s.db.QueryContext(ctx, countAssessments)
	if err != nil {
		return nil, fmt.Errorf("failed to count assessments: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		r                          Record
		createdAt                  int64
		bundle, cls, reg, warnings string
	)

	err := row.Scan(&r.ID, &createdAt, &r.Age, &r.Sex, &r.TestTime, &r.Status, &r.Probability,
		&r.MotorUPDRS, &r.TotalUPDRS, &bundle, &cls, &reg, &warnings)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	r.CreatedAt = time.UnixMilli(createdAt).UTC()

	if err := json.Unmarshal([]byte(bundle), &r.Bundle); err != nil {
		return nil, fmt.Errorf("failed to decode bundle of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(cls), &r.ClassificationFeatures); err != nil {
		return nil, fmt.Errorf("failed to decode classification features of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(reg), &r.RegressionFeatures); err != nil {
		return nil, fmt.Errorf("failed to decode regression features of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(warnings), &r.Warnings); err != nil {
		return nil, fmt.Errorf("failed to decode warnings of %s: %w", r.ID, err)
	}

	return &r, nil
}

func nonNilMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
