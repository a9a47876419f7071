package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aryan23f3001987/Parkinson-Project/internal/assessment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(id string, at time.Time, status string) *Record {
	return &Record{
		ID:          id,
		CreatedAt:   at,
		Age:         70,
		Sex:         1,
		TestTime:    4.21,
		Status:      status,
		Probability: 0.712,
		MotorUPDRS:  10,
		TotalUPDRS:  12.5,
		Bundle: assessment.Bundle{
			Probability:     0.7123,
			MotorWithAge:    10,
			MotorWithoutAge: 10,
			TotalWithAge:    12,
			TotalWithoutAge: 12.77,
		},
		ClassificationFeatures: map[string]float64{"HNR": 21.3, "NHR": 0.007},
		RegressionFeatures:     map[string]float64{"age": 70, "RPDE": 0},
		Warnings:               []string{"audio too short (0.80s), try recording longer"},
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), testRecord("a", time.Now(), "Healthy")))
	require.NoError(t, s.Close())

	// Schema creation is idempotent and data survives
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "Healthy", got.Status)
}

func TestSaveAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	want := testRecord("rec-1", at, string(assessment.StatusModerate))
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, at.Equal(got.CreatedAt))
	assert.Equal(t, want.Bundle, got.Bundle)
	assert.Equal(t, want.ClassificationFeatures, got.ClassificationFeatures)
	assert.Equal(t, want.RegressionFeatures, got.RegressionFeatures)
	assert.Equal(t, want.Warnings, got.Warnings)
	assert.Equal(t, 12.5, got.TotalUPDRS)
}

func TestSave_Invalid(t *testing.T) {
	s := setupTestStore(t)
	assert.Error(t, s.Save(context.Background(), nil))
	assert.Error(t, s.Save(context.Background(), &Record{}))

	r := testRecord("dup", time.Now(), "Healthy")
	require.NoError(t, s.Save(context.Background(), r))
	assert.Error(t, s.Save(context.Background(), r), "duplicate id")
}

func TestSave_DefaultsCreatedAtAndEmptyCollections(t *testing.T) {
	s := setupTestStore(t)
	r := &Record{ID: "bare", Status: "Healthy"}
	require.NoError(t, s.Save(context.Background(), r))
	assert.False(t, r.CreatedAt.IsZero())

	got, err := s.Get(context.Background(), "bare")
	require.NoError(t, err)
	assert.Empty(t, got.Warnings)
	assert.NotNil(t, got.ClassificationFeatures)
}

func TestGet_NotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestList(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		status := "Healthy"
		if i%2 == 1 {
			status = "Severe Parkinson"
		}
		require.NoError(t, s.Save(ctx, testRecord(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Minute), status)))
	}

	list, err := s.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "r4", list[0].ID)
	assert.Equal(t, "r2", list[2].ID)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["Healthy"])
	assert.Equal(t, int64(2), counts["Severe Parkinson"])
}

func TestList_Empty(t *testing.T) {
	s := setupTestStore(t)
	list, err := s.List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestSave_Concurrent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Save(ctx, testRecord(fmt.Sprintf("c%d", i), time.Now(), "Healthy"))
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	list, err := s.List(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}

func TestNilStore(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Close())
	assert.Error(t, s.Save(context.Background(), testRecord("x", time.Now(), "Healthy")))
	_, err := s.List(context.Background(), 1)
	assert.Error(t, err)
}
