package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trainwatch-go/internal/datastore"
	"github.com/tphakala/trainwatch-go/internal/viaggiatreno"
)

func TestDetectFirstObservationIsChange(t *testing.T) {
	store := newFakeStore()
	d := NewDetector(store, testLogger())
	route := &datastore.Route{ID: 1}

	changed, err := d.Detect(route, "4659", viaggiatreno.StatusOnTime, 0)
	require.NoError(t, err)
	assert.True(t, changed, "first observation for a train should count as a change")
	assert.Equal(t, 1, store.statusCount())
}

func TestDetectNoChangeAppendsNothing(t *testing.T) {
	store := newFakeStore()
	d := NewDetector(store, testLogger())
	route := &datastore.Route{ID: 1}

	_, err := d.Detect(route, "4659", viaggiatreno.StatusDelayed, 12)
	require.NoError(t, err)

	changed, err := d.Detect(route, "4659", viaggiatreno.StatusDelayed, 12)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, store.statusCount(), "unchanged status must not grow history")
}

func TestDetectDelayShrinkIsStillChange(t *testing.T) {
	store := newFakeStore()
	d := NewDetector(store, testLogger())
	route := &datastore.Route{ID: 1}

	_, err := d.Detect(route, "4659", viaggiatreno.StatusDelayed, 12)
	require.NoError(t, err)

	changed, err := d.Detect(route, "4659", viaggiatreno.StatusDelayed, 8)
	require.NoError(t, err)
	assert.True(t, changed, "delay change within the same status is a change")
	assert.Equal(t, 2, store.statusCount())
}

func TestDetectTrainsTrackedIndependently(t *testing.T) {
	store := newFakeStore()
	d := NewDetector(store, testLogger())
	route := &datastore.Route{ID: 1}

	_, err := d.Detect(route, "4659", viaggiatreno.StatusDelayed, 5)
	require.NoError(t, err)

	changed, err := d.Detect(route, "4661", viaggiatreno.StatusDelayed, 5)
	require.NoError(t, err)
	assert.True(t, changed, "a different train has its own history")
}

func TestDetectStoreErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.statusErr = assert.AnError
	d := NewDetector(store, testLogger())

	changed, err := d.Detect(&datastore.Route{ID: 1}, "4659", viaggiatreno.StatusOnTime, 0)
	require.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, store.statusCount())
}
