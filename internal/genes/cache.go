package genes

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Snapshot is an immutable view of the gene reference set. Readers always
// see a complete snapshot; refreshes build a new one and swap it in.
type Snapshot struct {
	symbols  map[string]struct{}
	ordered  []string
	version  uint64
	loadedAt time.Time
}

func newSnapshot(symbols []string, version uint64) *Snapshot {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}
	ordered := make([]string, 0, len(set))
	for s := range set {
		ordered = append(ordered, s)
	}
	sort.Strings(ordered)

	return &Snapshot{
		symbols:  set,
		ordered:  ordered,
		version:  version,
		loadedAt: time.Now().UTC(),
	}
}

// Contains reports whether the normalized symbol is in the reference set.
func (s *Snapshot) Contains(symbol string) bool {
	_, ok := s.symbols[symbol]
	return ok
}

// Symbols returns the reference set in sorted order. Callers must not
// modify the returned slice.
func (s *Snapshot) Symbols() []string { return s.ordered }

// Len returns the number of symbols in the snapshot.
func (s *Snapshot) Len() int { return len(s.ordered) }

// Version returns the monotonically increasing snapshot version.
func (s *Snapshot) Version() uint64 { return s.version }

// ReferenceCache holds the authoritative gene symbol set with an explicit
// Init/Refresh lifecycle. Reads are lock-free; refreshes replace the
// snapshot atomically so in-flight validations never observe a partially
// updated set.
type ReferenceCache struct {
	source          SymbolSource
	refreshInterval time.Duration
	missThreshold   int64

	current    atomic.Pointer[Snapshot]
	nextVer    atomic.Uint64
	misses     atomic.Int64
	refreshing atomic.Bool

	logger *logrus.Logger
}

// CacheConfig configures the reference cache lifecycle.
type CacheConfig struct {
	RefreshInterval      time.Duration
	MissRefreshThreshold int
}

// NewReferenceCache creates a reference cache backed by the given source.
func NewReferenceCache(source SymbolSource, config CacheConfig, logger *logrus.Logger) *ReferenceCache {
	if config.RefreshInterval == 0 {
		config.RefreshInterval = 24 * time.Hour
	}
	if config.MissRefreshThreshold == 0 {
		config.MissRefreshThreshold = 50
	}

	c := &ReferenceCache{
		source:          source,
		refreshInterval: config.RefreshInterval,
		missThreshold:   int64(config.MissRefreshThreshold),
		logger:          logger,
	}
	// Empty snapshot until Init succeeds, so Current never returns nil.
	c.current.Store(newSnapshot(nil, 0))
	return c
}

// Init populates the cache at startup. If the registry is unreachable the
// built-in fallback gene list is installed instead so validation stays
// functional.
func (c *ReferenceCache) Init(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		c.logger.WithError(err).Warn("Gene registry unreachable at startup, installing fallback gene list")
		c.install(FallbackSymbols)
		return err
	}
	return nil
}

// Refresh fetches the listing and atomically swaps in a new snapshot.
func (c *ReferenceCache) Refresh(ctx context.Context) error {
	symbols, err := c.source.FetchSymbols(ctx)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		c.logger.Warn("Gene registry returned an empty listing, keeping current snapshot")
		return nil
	}
	c.install(symbols)
	return nil
}

func (c *ReferenceCache) install(symbols []string) {
	snap := newSnapshot(symbols, c.nextVer.Add(1))
	c.current.Store(snap)
	c.misses.Store(0)
	c.logger.WithFields(logrus.Fields{
		"genes":   snap.Len(),
		"version": snap.Version(),
	}).Info("Gene reference snapshot installed")
}

// Current returns the active snapshot. Never nil.
func (c *ReferenceCache) Current() *Snapshot {
	return c.current.Load()
}

// Start launches the periodic background refresh. It returns immediately;
// the goroutine stops when ctx is cancelled.
func (c *ReferenceCache) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.refreshGuarded(ctx); err != nil {
					c.logger.WithError(err).Warn("Scheduled gene reference refresh failed")
				}
			}
		}
	}()
}

// NoteMiss records a validation miss. Crossing the miss threshold triggers
// one asynchronous refresh; validation itself never blocks on the network.
func (c *ReferenceCache) NoteMiss(ctx context.Context) {
	if c.misses.Add(1) < c.missThreshold {
		return
	}
	c.misses.Store(0)
	go func() {
		if err := c.refreshGuarded(ctx); err != nil {
			c.logger.WithError(err).Warn("Miss-triggered gene reference refresh failed")
		}
	}()
}

// refreshGuarded ensures only one refresh runs at a time.
func (c *ReferenceCache) refreshGuarded(ctx context.Context) error {
	if !c.refreshing.CompareAndSwap(false, true) {
		return nil
	}
	defer c.refreshing.Store(false)
	return c.Refresh(ctx)
}
