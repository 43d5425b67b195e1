package controller

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/alexivanou/citybrowser/internal/config"
	"github.com/alexivanou/citybrowser/internal/events"
	"github.com/alexivanou/citybrowser/internal/ingest"
	"github.com/alexivanou/citybrowser/internal/model"
	"go.uber.org/zap"
)

// TopicState is the broker topic carrying State snapshots.
const TopicState = "controller.state"

// Searcher runs paged searches and favorite toggles.
type Searcher interface {
	Search(ctx context.Context, query model.SearchQuery) (model.SearchResult, error)
	ToggleFavorite(ctx context.Context, id int) (bool, error)
}

// Preparer populates the store before the first query.
type Preparer interface {
	Prepare(ctx context.Context, report ingest.ProgressFunc) error
}

// State is a snapshot of the controller as seen by a presentation layer.
type State struct {
	SearchText    string
	OnlyFavorites bool
	CurrentPage   int
	HasMorePages  bool
	Items         []model.City
	IsLoading     bool
	ErrorMessage  string
	DataProgress  model.Progress
}

type settledQuery struct {
	text          string
	onlyFavorites bool
}

// Controller owns the search input and a growing, paginated result list.
//
// Input changes are debounced; only the settled input triggers a reload.
// Every reset bumps a generation counter and a page load whose generation is
// no longer current when it returns is dropped, so a reset always wins over
// an in-flight stale load.
type Controller struct {
	searcher Searcher
	preparer Preparer
	logger   *zap.Logger
	broker   *events.Broker
	pageSize int
	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	query      settledQuery
	generation uint64
	timer      *time.Timer
	timerSeq   uint64
	prepared   bool
	closed     bool
}

// NewController creates a controller. preparer and broker may be nil.
func NewController(searcher Searcher, preparer Preparer, cfg config.SearchConfig, logger *zap.Logger, broker *events.Broker) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if broker == nil {
		broker = events.NewBroker()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		searcher: searcher,
		preparer: preparer,
		logger:   logger,
		broker:   broker,
		pageSize: cfg.PageSize,
		debounce: cfg.Debounce,
		ctx:      ctx,
		cancel:   cancel,
		state: State{
			HasMorePages: true,
			Items:        []model.City{},
			DataProgress: model.Idle(),
		},
	}
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel receiving the latest State after every change.
func (c *Controller) Subscribe() <-chan events.Event {
	return c.broker.Subscribe(TopicState)
}

// Unsubscribe releases a channel returned by Subscribe.
func (c *Controller) Unsubscribe(sub <-chan events.Event) {
	c.broker.Unsubscribe(TopicState, sub)
}

// SetSearchText updates the search text and schedules a debounced reload.
func (c *Controller) SetSearchText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.SearchText == text {
		return
	}
	c.state.SearchText = text
	c.scheduleLocked()
	c.publishLocked()
}

// SetOnlyFavorites updates the favorites filter and schedules a debounced reload.
func (c *Controller) SetOnlyFavorites(only bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.OnlyFavorites == only {
		return
	}
	c.state.OnlyFavorites = only
	c.scheduleLocked()
	c.publishLocked()
}

// scheduleLocked replaces any pending reload with a new one.
func (c *Controller) scheduleLocked() {
	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerSeq++
	seq := c.timerSeq
	c.timer = time.AfterFunc(c.debounce, func() {
		c.fire(seq)
	})
}

func (c *Controller) fire(seq uint64) {
	c.mu.Lock()
	// A timer whose Stop lost the race still runs; the sequence check drops it.
	if c.closed || seq != c.timerSeq {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	c.ResetAndLoadFirstPage(c.ctx)
}

// ResetAndLoadFirstPage discards the current pagination, including any
// in-flight load, and loads page 0 of the current input.
func (c *Controller) ResetAndLoadFirstPage(ctx context.Context) {
	c.mu.Lock()
	c.generation++
	c.query = settledQuery{text: c.state.SearchText, onlyFavorites: c.state.OnlyFavorites}
	c.state.CurrentPage = 0
	c.state.HasMorePages = true
	c.state.IsLoading = false
	c.publishLocked()
	c.mu.Unlock()

	c.LoadNextPage(ctx)
}

// LoadNextPage appends the next page. It is a no-op while a load is in
// flight or after a short page.
func (c *Controller) LoadNextPage(ctx context.Context) {
	c.mu.Lock()
	if !c.state.HasMorePages || c.state.IsLoading {
		c.mu.Unlock()
		return
	}
	gen := c.generation
	query := model.SearchQuery{
		Prefix:        c.query.text,
		OnlyFavorites: c.query.onlyFavorites,
		Page:          c.state.CurrentPage,
		PageSize:      c.pageSize,
	}
	c.state.IsLoading = true
	c.publishLocked()
	c.mu.Unlock()

	result, err := c.searcher.Search(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug("Discarding stale page",
			zap.String("query", query.Prefix),
			zap.Int("page", query.Page),
		)
		return
	}

	c.state.IsLoading = false
	if err != nil {
		// The failed page stays current so the next call retries it.
		c.logger.Error("Failed to load page", zap.Int("page", query.Page), zap.Error(err))
		c.state.ErrorMessage = err.Error()
		c.publishLocked()
		return
	}

	c.state.ErrorMessage = ""
	if query.Page > 0 {
		c.state.Items = append(c.state.Items, result.Items...)
	} else {
		c.state.Items = slices.Clone(result.Items)
		if c.state.Items == nil {
			c.state.Items = []model.City{}
		}
	}
	c.state.HasMorePages = len(result.Items) == c.pageSize
	c.state.CurrentPage++
	c.publishLocked()
}

// ToggleFavorite flips a city's favorite flag and reloads from page 0, since
// the flip may change membership under the favorites filter. On failure the
// current results are kept and the error is reported in State.
func (c *Controller) ToggleFavorite(ctx context.Context, id int) error {
	if _, err := c.searcher.ToggleFavorite(ctx, id); err != nil {
		c.logger.Error("Failed to toggle favorite", zap.Int("id", id), zap.Error(err))
		c.mu.Lock()
		c.state.ErrorMessage = err.Error()
		c.publishLocked()
		c.mu.Unlock()
		return err
	}

	c.ResetAndLoadFirstPage(ctx)
	return nil
}

// LoadInitialDataIfNeeded prepares the store once per controller and then
// loads the first page. A failed preparation may be retried.
func (c *Controller) LoadInitialDataIfNeeded(ctx context.Context) error {
	c.mu.Lock()
	if c.prepared {
		c.mu.Unlock()
		return nil
	}
	c.prepared = true
	c.mu.Unlock()

	if c.preparer != nil {
		err := c.preparer.Prepare(ctx, func(p model.Progress) {
			c.mu.Lock()
			c.state.DataProgress = p
			c.publishLocked()
			c.mu.Unlock()
		})
		if err != nil {
			c.mu.Lock()
			c.prepared = false
			c.state.ErrorMessage = err.Error()
			c.publishLocked()
			c.mu.Unlock()
			return err
		}
	}

	c.ResetAndLoadFirstPage(ctx)
	return nil
}

// Close stops any pending reload. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.cancel()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Items = slices.Clone(c.state.Items)
	if s.Items == nil {
		s.Items = []model.City{}
	}
	return s
}

func (c *Controller) publishLocked() {
	c.broker.Publish(TopicState, c.snapshotLocked())
}
