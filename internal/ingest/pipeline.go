package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/alexivanou/citybrowser/internal/config"
	"github.com/alexivanou/citybrowser/internal/events"
	"github.com/alexivanou/citybrowser/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// TopicProgress is the broker topic carrying model.Progress updates.
const TopicProgress = "ingest.progress"

// Store is the part of the record store the pipeline writes to.
type Store interface {
	TotalCount(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	UpsertMany(ctx context.Context, cities []model.City) error
}

// ProgressFunc receives progress updates of a single run.
type ProgressFunc func(model.Progress)

// Pipeline populates the store from a dataset source once. The store's own
// row count is the only "already loaded" signal.
type Pipeline struct {
	store  Store
	source Source
	cfg    config.IngestConfig
	logger *zap.Logger
	broker *events.Broker

	runMu      sync.Mutex
	running    atomic.Bool
	background atomic.Bool

	mu       sync.Mutex
	progress model.Progress
}

// NewPipeline creates a pipeline. broker may be nil.
func NewPipeline(store Store, source Source, cfg config.IngestConfig, logger *zap.Logger, broker *events.Broker) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 2000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 1
	}
	return &Pipeline{
		store:    store,
		source:   source,
		cfg:      cfg,
		logger:   logger,
		broker:   broker,
		progress: model.Idle(),
	}
}

// Progress returns the latest published progress.
func (p *Pipeline) Progress() model.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Running reports whether a run is in flight or queued by Start.
func (p *Pipeline) Running() bool {
	return p.running.Load() || p.background.Load()
}

// Prepare loads the dataset unless the store already holds records.
// Concurrent calls are serialized; the second one sees a populated store.
// report may be nil.
func (p *Pipeline) Prepare(ctx context.Context, report ProgressFunc) error {
	return p.run(ctx, report, false)
}

// Reload clears the store and loads the dataset again.
func (p *Pipeline) Reload(ctx context.Context, report ProgressFunc) error {
	return p.run(ctx, report, true)
}

// Start runs Prepare in the background. It returns false if a background
// run is already in progress.
func (p *Pipeline) Start(ctx context.Context) bool {
	if !p.background.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer p.background.Store(false)
		// Failures are already logged and published as progress.
		_ = p.Prepare(ctx, nil)
	}()
	return true
}

func (p *Pipeline) run(ctx context.Context, report ProgressFunc, force bool) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	p.running.Store(true)
	defer p.running.Store(false)

	r := &reporter{pipeline: p, report: report}

	if !force {
		count, err := p.store.TotalCount(ctx)
		if err != nil {
			return r.fail(fmt.Errorf("%w: failed to count cities: %v", model.ErrStoreFailure, err))
		}
		if count > 0 {
			p.logger.Info("Store already populated, skipping ingestion", zap.Int("cities", count))
			r.emit(model.Completed())
			return nil
		}
	}

	return p.load(ctx, r)
}

func (p *Pipeline) load(ctx context.Context, r *reporter) error {
	r.emit(model.Downloading())
	p.logger.Info("Downloading dataset")

	raw, err := p.source.Fetch(ctx)
	if err != nil {
		return r.fail(err)
	}

	chunks := chunk(raw, p.cfg.ChunkSize)
	total := len(chunks)
	p.logger.Info("Dataset downloaded",
		zap.Int("records", len(raw)),
		zap.Int("chunks", total),
	)

	r.emit(model.Processing(total, 0))
	records, err := p.process(ctx, r, chunks)
	if err != nil {
		return r.fail(err)
	}

	if err := p.store.Clear(ctx); err != nil {
		return r.fail(fmt.Errorf("%w: failed to clear store: %v", model.ErrStoreFailure, err))
	}

	r.emit(model.Saving(total, 0))
	if err := p.save(ctx, r, records); err != nil {
		return r.fail(err)
	}
	r.emit(model.Saving(total, total))

	count, err := p.store.TotalCount(ctx)
	if err != nil {
		return r.fail(fmt.Errorf("%w: failed to count cities: %v", model.ErrStoreFailure, err))
	}
	if count == 0 {
		p.logger.Warn("Dataset was empty, store remains unpopulated")
	}

	r.emit(model.Completed())
	p.logger.Info("Data import completed successfully!", zap.Int("cities", count))
	return nil
}

// process converts raw chunks into records on a bounded worker pool.
func (p *Pipeline) process(ctx context.Context, r *reporter, chunks [][]model.RawCity) ([][]model.City, error) {
	total := len(chunks)
	records := make([][]model.City, total)

	var done atomic.Int64
	every := rate.Sometimes{Every: p.cfg.ProgressEvery}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := make([]model.City, len(c))
			for j, raw := range c {
				out[j] = raw.ToCity()
			}
			records[i] = out

			done.Add(1)
			every.Do(func() {
				r.emit(model.Processing(total, int(done.Load())))
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// save commits one transaction per chunk. Chunks are disjoint id sets, so
// commits may run in parallel; Wait joins every commit before returning.
func (p *Pipeline) save(ctx context.Context, r *reporter, records [][]model.City) error {
	total := len(records)

	var done atomic.Int64
	every := rate.Sometimes{Every: p.cfg.ProgressEvery}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, batch := range records {
		g.Go(func() error {
			if err := p.store.UpsertMany(gctx, batch); err != nil {
				return fmt.Errorf("%w: failed to save chunk %d: %v", model.ErrStoreFailure, i, err)
			}

			n := done.Add(1)
			p.logger.Debug("Chunk saved", zap.Int("chunk", i), zap.Int64("saved", n), zap.Int("total", total))
			every.Do(func() {
				r.emit(model.Saving(total, int(done.Load())))
			})
			return nil
		})
	}

	return g.Wait()
}

func (p *Pipeline) setProgress(progress model.Progress) {
	p.mu.Lock()
	p.progress = progress
	p.mu.Unlock()

	if p.broker != nil {
		p.broker.Publish(TopicProgress, progress)
	}
}

// reporter delivers the progress of one run, dropping repeats.
type reporter struct {
	pipeline *Pipeline
	report   ProgressFunc

	mu   sync.Mutex
	last *model.Progress
}

func (r *reporter) emit(progress model.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.last != nil && *r.last == progress {
		return
	}
	r.last = &progress

	r.pipeline.setProgress(progress)
	if r.report != nil {
		r.report(progress)
	}
}

func (r *reporter) fail(err error) error {
	r.pipeline.logger.Error("Ingestion failed", zap.Error(err))
	r.emit(model.Failed(err.Error()))
	return err
}

func chunk(raw []model.RawCity, size int) [][]model.RawCity {
	chunks := make([][]model.RawCity, 0, (len(raw)+size-1)/size)
	for start := 0; start < len(raw); start += size {
		end := min(start+size, len(raw))
		chunks = append(chunks, raw[start:end])
	}
	return chunks
}
