package launchbase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// DurableFactory builds the durable backend for a configuration. The
// selector probes what it returns before using it.
type DurableFactory func(ctx context.Context, cfg Config, logger Logger, metrics Metrics) (Storage, error)

// newDynamoStorage is the default DurableFactory.
func (s *Selector) newDynamoStorage(ctx context.Context, cfg Config, logger Logger, metrics Metrics) (Storage, error) {
	var opts []DynamoOption
	if s.profiler != nil {
		opts = append(opts, WithQueryProfiler(s.profiler))
	}
	b, err := NewDynamoBackendFromConfig(ctx, cfg, logger, metrics, opts...)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Selector picks the Storage implementation for the process. Resolution
// happens once; every later call returns the same backend.
//
//	storage := launchbase.NewSelector(cfg, launchbase.WithSelectorLogger(logger)).Resolve(ctx)
type Selector struct {
	cfg        Config
	logger     Logger
	metrics    Metrics
	durable    DurableFactory
	memoryOpts []MemoryOption
	profiler   *QueryProfiler

	openSnapshots func(ctx context.Context, uri string, cfg Config, logger Logger, metrics Metrics) (*SnapshotStore, error)

	once     sync.Once
	storage  Storage
	resolved atomic.Bool
	probes   atomic.Int64
}

// SelectorOption configures NewSelector
type SelectorOption func(*Selector)

func WithSelectorLogger(l Logger) SelectorOption {
	return func(s *Selector) { s.logger = orNoOpLogger(l) }
}

func WithSelectorMetrics(m Metrics) SelectorOption {
	return func(s *Selector) { s.metrics = orNoOpMetrics(m) }
}

// WithDurableFactory replaces the DynamoDB constructor.
func WithDurableFactory(f DurableFactory) SelectorOption {
	return func(s *Selector) { s.durable = f }
}

// WithSelectorProfiler records the queries of the durable backend. The
// memory backend is not profiled.
func WithSelectorProfiler(p *QueryProfiler) SelectorOption {
	return func(s *Selector) { s.profiler = p }
}

func withSnapshotOpener(open func(ctx context.Context, uri string, cfg Config, logger Logger, metrics Metrics) (*SnapshotStore, error)) SelectorOption {
	return func(s *Selector) { s.openSnapshots = open }
}

// WithMemoryOptions are applied when the selector builds the ephemeral backend.
func WithMemoryOptions(opts ...MemoryOption) SelectorOption {
	return func(s *Selector) { s.memoryOpts = append(s.memoryOpts, opts...) }
}

func NewSelector(cfg Config, opts ...SelectorOption) *Selector {
	s := &Selector{
		cfg:           cfg,
		logger:        &NoOpLogger{},
		metrics:       &NoOpMetrics{},
		openSnapshots: OpenSnapshotStore,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.durable == nil {
		s.durable = s.newDynamoStorage
	}
	if s.cfg.ProbeTimeout <= 0 {
		s.cfg.ProbeTimeout = DefaultProbeTimeout
	}
	return s
}

// Resolve returns the process backend, choosing it on the first call.
// Concurrent first callers wait for a single probe. The choice does not
// depend on ctx being live: resolution is bounded by the probe timeout.
func (s *Selector) Resolve(ctx context.Context) Storage {
	s.once.Do(func() {
		s.storage = s.resolve(context.WithoutCancel(ctx))
		s.resolved.Store(true)
	})
	return s.storage
}

// Probes reports how many durable probes have run.
func (s *Selector) Probes() int64 {
	return s.probes.Load()
}

// Close releases the resolved backend. It does nothing before Resolve.
func (s *Selector) Close() error {
	if !s.resolved.Load() {
		return nil
	}
	return s.storage.Close()
}

func (s *Selector) resolve(ctx context.Context) Storage {
	if !s.cfg.AWS.HasCredentials() {
		s.logger.Info("no durable credentials configured, using memory backend")
		return s.memory(ctx, "no_credentials")
	}

	durable, err := s.durable(ctx, s.cfg, s.logger, s.metrics)
	if err == nil {
		err = s.probe(ctx, durable)
		if err == nil {
			s.logger.Info("durable backend selected",
				"backend", string(durable.Kind()),
				"region", s.cfg.AWS.Region,
				"endpoint", s.cfg.AWS.DynamoEndpoint,
			)
			s.metrics.Increment(MetricSelectorResolutions, "backend", string(durable.Kind()))
			return durable
		}
		if cerr := durable.Close(); cerr != nil {
			s.logger.Debug("closing durable backend failed", "error", cerr)
		}
	}

	s.logger.Warn("durable backend unavailable, falling back to memory",
		"error", fmt.Errorf("%w: %w", ErrBackendUnavailable, err),
	)
	return s.memory(ctx, "fallback")
}

func (s *Selector) probe(ctx context.Context, durable Storage) error {
	s.probes.Add(1)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()
	return durable.Ping(ctx)
}

func (s *Selector) memory(ctx context.Context, reason string) Storage {
	opts := []MemoryOption{
		WithMemoryLogger(s.logger),
		WithMemoryMetrics(s.metrics),
	}
	if !s.cfg.Seed {
		opts = append(opts, WithoutSeed())
	}
	if s.cfg.SeedSnapshot != "" {
		if snap, err := s.latestSnapshot(ctx); err != nil {
			s.logger.Warn("seed snapshot unavailable", "location", s.cfg.SeedSnapshot, "error", err)
		} else {
			opts = append(opts, WithSnapshot(snap))
		}
	}

	s.metrics.Increment(MetricSelectorResolutions, "backend", string(KindMemory))
	s.logger.Info("memory backend selected", "reason", reason)
	return NewMemoryBackend(append(opts, s.memoryOpts...)...)
}

// latestSnapshot shares the probe timeout so a slow bucket cannot stall
// resolution.
func (s *Selector) latestSnapshot(ctx context.Context) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()

	store, err := s.openSnapshots(ctx, s.cfg.SeedSnapshot, s.cfg, s.logger, s.metrics)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Latest(ctx)
}
