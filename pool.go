package ernie

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Asset is a leased worker handle. Exactly one in-flight task owns an asset
// between Lease and Return.
type Asset interface {
	Close() error
}

// Factory creates a new asset for a worker address.
type Factory func(addr string) (Asset, error)

// PoolManager hands out worker assets per pool. Lease is non-blocking: ok is
// false when the pool is unknown or has no idle asset. Backpressure is the
// dispatcher's queue, not the pool.
type PoolManager interface {
	Lease(poolID string) (Asset, bool)
	Return(poolID string, a Asset)
	IdleCount() int
	Reload() error
}

// assetPool is one pool of worker assets with a fixed capacity of one asset
// per configured worker address.
type assetPool struct {
	id     string
	queue  chan Asset
	logger zerolog.Logger
}

// close drains and closes every idle asset.
func (p *assetPool) close() {
	for {
		select {
		case a := <-p.queue:
			if err := a.Close(); err != nil {
				p.logger.Warn().Err(err).Str("pool", p.id).Msg("closing asset")
			}
		default:
			return
		}
	}
}

// poolSet implements PoolManager over a fixed set of pools built from pool
// configs. Reload rebuilds every pool from the factory.
type poolSet struct {
	mu      sync.RWMutex
	pools   map[string]*assetPool
	configs []PoolConfig
	factory Factory
	logger  zerolog.Logger
}

// NewPoolSet builds a PoolManager with one asset per configured worker
// address. Asset creation failures are startup errors; partially built
// pools are torn down.
func NewPoolSet(configs []PoolConfig, f Factory, logger zerolog.Logger) (PoolManager, error) {
	ps := &poolSet{
		configs: configs,
		factory: f,
		logger:  logger.With().Str("component", "pools").Logger(),
	}

	pools, err := ps.build()
	if err != nil {
		return nil, err
	}
	ps.pools = pools

	return ps, nil
}

func (ps *poolSet) build() (map[string]*assetPool, error) {
	pools := make(map[string]*assetPool, len(ps.configs))

	fail := func(err error) (map[string]*assetPool, error) {
		for _, built := range pools {
			built.close()
		}
		return nil, err
	}

	for _, cfg := range ps.configs {
		if cfg.ID == "" {
			return fail(fmt.Errorf("pool with empty id"))
		}
		if _, dup := pools[cfg.ID]; dup {
			return fail(fmt.Errorf("duplicate pool id %q", cfg.ID))
		}

		p := &assetPool{
			id:     cfg.ID,
			queue:  make(chan Asset, len(cfg.Workers)),
			logger: ps.logger,
		}
		pools[cfg.ID] = p

		for _, addr := range cfg.Workers {
			a, err := ps.factory(addr)
			if err != nil {
				return fail(fmt.Errorf("pool %s: creating asset for %s: %w", cfg.ID, addr, err))
			}
			p.queue <- a
		}
	}

	return pools, nil
}

// Lease takes an idle asset from the pool without blocking.
func (ps *poolSet) Lease(poolID string) (Asset, bool) {
	ps.mu.RLock()
	p, ok := ps.pools[poolID]
	ps.mu.RUnlock()
	if !ok {
		return nil, false
	}

	select {
	case a := <-p.queue:
		return a, true
	default:
		return nil, false
	}
}

// Return puts a leased asset back into its pool.
func (ps *poolSet) Return(poolID string, a Asset) {
	if a == nil {
		return
	}

	ps.mu.RLock()
	p, ok := ps.pools[poolID]
	ps.mu.RUnlock()
	if !ok {
		_ = a.Close()
		return
	}

	select {
	case p.queue <- a:
	default:
		// The pool was rebuilt underneath us by Reload; drop the stale asset.
		_ = a.Close()
	}
}

// IdleCount reports the total number of idle assets across all pools.
func (ps *poolSet) IdleCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	total := 0
	for _, p := range ps.pools {
		total += len(p.queue)
	}

	return total
}

// Reload tears down every pool and rebuilds assets from the factory.
// Leased assets are not recalled; they are closed on Return.
func (ps *poolSet) Reload() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	next, err := ps.build()
	if err != nil {
		return err
	}

	for _, p := range ps.pools {
		p.close()
	}
	ps.pools = next
	ps.logger.Info().Int("pools", len(next)).Msg("worker pools reloaded")

	return nil
}
