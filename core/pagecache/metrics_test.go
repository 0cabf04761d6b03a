package pagecache

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewMetrics_RegistersAllInstruments(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	require.NotNil(t, metrics.FetchesCounter)
	require.NotNil(t, metrics.HitsCounter)
	require.NotNil(t, metrics.EvictionsCounter)
	require.NotNil(t, metrics.DiscardsCounter)
	require.NotNil(t, metrics.ResidentUpDown)
}

// TestEngine_RecordsThroughAttachedMetrics drives every measurement
// path with a bundle attached; the engine counters stay authoritative.
func TestEngine_RecordsThroughAttachedMetrics(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	engine, err := NewCacheEngine(4096, 0, LRU, WithMetrics(metrics))
	require.NoError(t, err)
	engine.SetMaxPages(2)

	touch(t, engine, 1) // create + unpin
	touch(t, engine, 2)
	fetchPinned(t, engine, 1)         // hit
	fetchPinned(t, engine, 3)         // eviction (reuses 2)
	engine.Unpin(fetchPinned(t, engine, 3), true) // discard
	engine.Truncate(0)
	engine.Close()

	require.EqualValues(t, 5, engine.NumFetches())
	require.EqualValues(t, 2, engine.NumHits())
}
