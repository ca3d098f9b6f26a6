package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonewatch/zonereport/pkg/upstream"
)

// TestNewWindowRejectsInvertedRange tests window validation
func TestNewWindowRejectsInvertedRange(t *testing.T) {
	since := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewWindow(since, until, "")
	require.Error(t, err)

	_, err = NewWindow(since, since, "")
	require.Error(t, err)
}

// TestClassifyWindowBoundary tests the shape switch at the fine-window limit
func TestClassifyWindowBoundary(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Exactly at the limit stays fine-grained
	exact := Window{Since: since, Until: since.Add(FineWindowMax)}
	assert.Equal(t, upstream.ShapeGrouped, ClassifyWindow(exact))

	// One second over switches to buckets
	over := Window{Since: since, Until: since.Add(FineWindowMax + time.Second)}
	assert.Equal(t, upstream.ShapeBucketed, ClassifyWindow(over))

	day := Window{Since: since, Until: since.Add(24 * time.Hour)}
	assert.Equal(t, upstream.ShapeGrouped, ClassifyWindow(day))

	week := Window{Since: since, Until: since.Add(7 * 24 * time.Hour)}
	assert.Equal(t, upstream.ShapeBucketed, ClassifyWindow(week))
}
