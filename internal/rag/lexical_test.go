package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestIndex returns an in-memory Bleve index pre-loaded with docs.
func openTestIndex(t *testing.T, docs []Document) *BleveIndex {
	t.Helper()

	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	if len(docs) > 0 {
		require.NoError(t, idx.Index(context.Background(), docs))
	}
	return idx
}

func TestBleveIndex_SearchFindsKeywordMatch(t *testing.T) {
	idx := openTestIndex(t, []Document{
		{ID: "1", Content: "Torque the motor arm bolts to 1.2 Nm using a calibrated driver.", Source: "assembly.pdf", Page: 4},
		{ID: "2", Content: "Calibrate each ESC before the first flight of the airframe.", Source: "calibration.pdf", Page: 2},
		{ID: "3", Content: "Store LiPo batteries at 3.8V per cell in a fireproof container.", Source: "safety.pdf", Page: 9},
	})

	results, err := idx.Search(context.Background(), "torque bolts", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "1", top.ID)
	assert.Equal(t, "assembly.pdf", top.Source)
	assert.Equal(t, 4, top.Page)
	assert.Contains(t, top.Content, "Torque")
	assert.Greater(t, top.Score, float32(0))
}

func TestBleveIndex_EnglishAnalyzerStemsQueryTerms(t *testing.T) {
	idx := openTestIndex(t, []Document{
		{ID: "1", Content: "Calibrate each ESC before the first flight of the airframe.", Source: "calibration.pdf", Page: 2},
	})

	// "calibrating" only matches "Calibrate" if the English analyzer is
	// wired into the content field mapping.
	results, err := idx.Search(context.Background(), "calibrating", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "1", results[0].ID)
}

func TestBleveIndex_EmptyQueryReturnsNoResults(t *testing.T) {
	idx := openTestIndex(t, []Document{
		{ID: "1", Content: "ESC calibration procedure.", Source: "calibration.pdf", Page: 1},
	})

	for _, q := range []string{"", "   ", "\t\n"} {
		results, err := idx.Search(context.Background(), q, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
}

func TestBleveIndex_TopKLimit(t *testing.T) {
	docs := []Document{
		{ID: "1", Content: "propeller balance check", Source: "s.pdf", Page: 1},
		{ID: "2", Content: "propeller installation torque", Source: "s.pdf", Page: 2},
		{ID: "3", Content: "propeller replacement interval", Source: "s.pdf", Page: 3},
	}
	idx := openTestIndex(t, docs)

	results, err := idx.Search(context.Background(), "propeller", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestBleveIndex_Reset(t *testing.T) {
	idx := openTestIndex(t, []Document{
		{ID: "1", Content: "flight controller firmware update steps", Source: "fw.pdf", Page: 1},
	})

	require.NoError(t, idx.Reset(context.Background()))

	results, err := idx.Search(context.Background(), "firmware", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	// Index is usable again after reset.
	require.NoError(t, idx.Index(context.Background(), []Document{
		{ID: "2", Content: "firmware rollback procedure", Source: "fw.pdf", Page: 2},
	}))
	results, err = idx.Search(context.Background(), "firmware", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestBleveIndex_ClosedIndexErrors(t *testing.T) {
	idx := openTestIndex(t, nil)
	require.NoError(t, idx.Close())

	err := idx.Index(context.Background(), []Document{{ID: "1", Content: "x"}})
	assert.Error(t, err)

	_, err = idx.Search(context.Background(), "x", 1)
	assert.Error(t, err)
}
