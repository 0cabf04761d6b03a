package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quokkadb/pagecache/core/pagecache"
	"github.com/quokkadb/pagecache/pkg/logger"
	"github.com/quokkadb/pagecache/pkg/telemetry"
)

var (
	policyName  = flag.String("policy", "lru2", "Replacement policy: lru or lru2")
	pageSize    = flag.Int("page-size", 4096, "Page size in bytes (power of two)")
	extraSize   = flag.Int("extra-size", 8, "Extra buffer size in bytes (0-250)")
	maxPages    = flag.Int("max-pages", 1024, "Maximum number of resident pages")
	numOps      = flag.Int("ops", 1_000_000, "Number of fetch operations to replay")
	keyspace    = flag.Int("keyspace", 16384, "Number of distinct page ids in the workload")
	hotFraction = flag.Float64("hot-fraction", 0.1, "Fraction of the keyspace that is hot")
	hotRate     = flag.Float64("hot-rate", 0.9, "Fraction of fetches aimed at the hot set")
	pinDepth    = flag.Int("pin-depth", 16, "Number of pages held pinned at once")
	opsPerSec   = flag.Int("rate", 0, "Throttle in operations per second (0 = unthrottled)")
	seed        = flag.Int64("seed", 1, "Workload RNG seed")
	metricsPort = flag.Int("metrics-port", 0, "Prometheus /metrics port (0 = telemetry off)")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	zlogger, err := logger.New(logger.Config{Level: *logLevel, Format: "console"})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zlogger.Sync()

	variant, err := pagecache.ParseVariant(*policyName)
	if err != nil {
		zlogger.Fatal("invalid -policy", zap.Error(err))
	}

	tel, shutdown, err := telemetry.New(telemetry.Config{
		Enabled:        *metricsPort > 0,
		ServiceName:    "pagecache_bench",
		PrometheusPort: *metricsPort,
	})
	if err != nil {
		zlogger.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			zlogger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	opts := []pagecache.Option{pagecache.WithLogger(zlogger)}
	if *metricsPort > 0 {
		metrics, err := tel.CacheMetrics()
		if err != nil {
			zlogger.Fatal("failed to create cache metrics", zap.Error(err))
		}
		opts = append(opts, pagecache.WithMetrics(metrics))
	}

	engine, err := pagecache.NewCacheEngine(*pageSize, *extraSize, variant, opts...)
	if err != nil {
		zlogger.Fatal("failed to create cache engine", zap.Error(err))
	}
	engine.SetMaxPages(*maxPages)
	defer engine.Close()

	zlogger.Info("starting workload",
		zap.Stringer("policy", variant),
		zap.Int("max_pages", *maxPages),
		zap.Int("ops", *numOps),
		zap.Int("keyspace", *keyspace),
		zap.Float64("hot_fraction", *hotFraction),
		zap.Float64("hot_rate", *hotRate),
		zap.Int("pin_depth", *pinDepth),
		zap.Int("rate", *opsPerSec),
	)

	elapsed := replay(engine, zlogger)

	fetches, hits := engine.NumFetches(), engine.NumHits()
	ratio := 0.0
	if fetches > 0 {
		ratio = float64(hits) / float64(fetches)
	}
	zlogger.Info("workload complete",
		zap.Uint64("fetches", fetches),
		zap.Uint64("hits", hits),
		zap.Float64("hit_ratio", ratio),
		zap.Int("resident_pages", engine.NumPages()),
		zap.Duration("elapsed", elapsed),
		zap.Float64("ops_per_sec", float64(fetches)/elapsed.Seconds()),
	)
}

// replay drives the engine with a hot/cold fetch mix, keeping at most
// pin-depth pages pinned at a time the way a host holds a working set
// of pages during a query.
func replay(engine *pagecache.CacheEngine, zlogger *zap.Logger) time.Duration {
	rng := rand.New(rand.NewSource(*seed))

	var limiter *rate.Limiter
	if *opsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(*opsPerSec), *opsPerSec)
	}

	hotSpan := int(float64(*keyspace) * *hotFraction)
	if hotSpan < 1 {
		hotSpan = 1
	}

	// FIFO of outstanding pins. A pin is a boolean claim, not a count:
	// a page already held is never queued twice, so one unpin per entry
	// releases exactly what the replay holds.
	held := make([]*pagecache.Page, 0, *pinDepth)
	heldIDs := make(map[pagecache.PageID]bool, *pinDepth)
	stalls := 0

	start := time.Now()
	for op := 0; op < *numOps; op++ {
		if limiter != nil {
			if err := limiter.Wait(context.Background()); err != nil {
				zlogger.Warn("rate limiter error", zap.Error(err))
				break
			}
		}

		var id pagecache.PageID
		if rng.Float64() < *hotRate {
			id = pagecache.PageID(rng.Intn(hotSpan) + 1)
		} else {
			id = pagecache.PageID(rng.Intn(*keyspace) + 1)
		}

		if heldIDs[id] {
			// Refreshing the pin on a page already held leaves one
			// outstanding claim; the queue entry stays where it is.
			engine.Fetch(id, true)
			continue
		}

		p := engine.Fetch(id, true)
		if p == nil {
			// Every resident page is pinned: release the oldest pin and
			// retry once, the way the host reacts to the capacity signal.
			stalls++
			if len(held) == 0 {
				zlogger.Fatal("fetch returned nil with no pins outstanding",
					zap.Uint32("page_id", uint32(id)))
			}
			release(engine, held[0], heldIDs)
			held = held[1:]
			p = engine.Fetch(id, true)
			if p == nil {
				zlogger.Fatal("fetch returned nil after releasing a pin",
					zap.Uint32("page_id", uint32(id)))
			}
		}
		held = append(held, p)
		heldIDs[p.ID()] = true

		if len(held) >= *pinDepth {
			release(engine, held[0], heldIDs)
			held = held[1:]
		}
	}
	for _, p := range held {
		release(engine, p, heldIDs)
	}
	elapsed := time.Since(start)

	if stalls > 0 {
		zlogger.Debug("capacity stalls during replay", zap.Int("stalls", stalls))
	}
	return elapsed
}

func release(engine *pagecache.CacheEngine, p *pagecache.Page, heldIDs map[pagecache.PageID]bool) {
	delete(heldIDs, p.ID())
	engine.Unpin(p, false)
}
