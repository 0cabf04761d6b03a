package pagecache

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments a CacheEngine reports through.
// One bundle can be shared by every engine in the process; engines tag
// their measurements with their own cache.id and cache.policy
// attributes. The engine's own fetch and hit counters stay
// authoritative; the instruments are an export surface.
type Metrics struct {
	FetchesCounter   metric.Int64Counter
	HitsCounter      metric.Int64Counter
	EvictionsCounter metric.Int64Counter
	DiscardsCounter  metric.Int64Counter
	ResidentUpDown   metric.Int64UpDownCounter
}

// NewMetrics creates and registers all the instruments for the page
// cache.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	fetchesCounter, err := meter.Int64Counter(
		"pagecache.fetches_total",
		metric.WithDescription("Total number of page fetches."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	hitsCounter, err := meter.Int64Counter(
		"pagecache.hits_total",
		metric.WithDescription("Total number of page fetches served from the directory."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	evictionsCounter, err := meter.Int64Counter(
		"pagecache.evictions_total",
		metric.WithDescription("Total number of victim pages reused in place."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	discardsCounter, err := meter.Int64Counter(
		"pagecache.discards_total",
		metric.WithDescription("Total number of pages destroyed, by reason."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	residentUpDown, err := meter.Int64UpDownCounter(
		"pagecache.resident_pages",
		metric.WithDescription("Number of resident pages, pinned and unpinned."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		FetchesCounter:   fetchesCounter,
		HitsCounter:      hitsCounter,
		EvictionsCounter: evictionsCounter,
		DiscardsCounter:  discardsCounter,
		ResidentUpDown:   residentUpDown,
	}, nil
}

func (c *CacheEngine) recordFetch(hit bool) {
	if c.metrics == nil {
		return
	}
	c.metrics.FetchesCounter.Add(context.Background(), 1, c.attrs)
	if hit {
		c.metrics.HitsCounter.Add(context.Background(), 1, c.attrs)
	}
}

func (c *CacheEngine) recordEviction() {
	if c.metrics == nil {
		return
	}
	c.metrics.EvictionsCounter.Add(context.Background(), 1, c.attrs)
}

func (c *CacheEngine) recordCreate() {
	if c.metrics == nil {
		return
	}
	c.metrics.ResidentUpDown.Add(context.Background(), 1, c.attrs)
}

func (c *CacheEngine) recordDiscard(reason string) {
	if c.metrics == nil {
		return
	}
	c.metrics.DiscardsCounter.Add(context.Background(), 1, c.attrs,
		metric.WithAttributes(attribute.String("reason", reason)))
	c.metrics.ResidentUpDown.Add(context.Background(), -1, c.attrs)
}
