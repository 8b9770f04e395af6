package pdf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrQueueFull is returned when every page is busy and the wait queue is full
	ErrQueueFull = errors.New("pdf renderer queue is full")
	// ErrRenderTimeout is returned when a render misses its deadline or is cancelled
	ErrRenderTimeout = errors.New("pdf render timed out")
	// ErrRendererClosed is returned by Render after Close
	ErrRendererClosed = errors.New("pdf renderer is closed")
)

// Renderer turns a laid-out HTML page into PDF bytes
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// Options configures RodRenderer
type Options struct {
	PoolSize   int
	QueueSize  int
	Timeout    time.Duration
	BrowserBin string
}

// admission bounds concurrent renders to the pool size and waiting renders to the queue size
type admission struct {
	slots   *semaphore.Weighted
	workers *semaphore.Weighted
}

func newAdmission(pool, queue int) *admission {
	if pool < 1 {
		pool = 1
	}
	if queue < 0 {
		queue = 0
	}
	return &admission{
		slots:   semaphore.NewWeighted(int64(pool + queue)),
		workers: semaphore.NewWeighted(int64(pool)),
	}
}

// enter admits one render. The returned release must be called exactly once.
func (a *admission) enter(ctx context.Context) (func(), error) {
	if !a.slots.TryAcquire(1) {
		return nil, ErrQueueFull
	}
	if err := a.workers.Acquire(ctx, 1); err != nil {
		a.slots.Release(1)
		return nil, ErrRenderTimeout
	}
	return func() {
		a.workers.Release(1)
		a.slots.Release(1)
	}, nil
}

// RodRenderer renders with one headless Chrome and a bounded pool of pages.
type RodRenderer struct {
	opts   Options
	logger *zap.Logger
	gate   *admission
	pool   rod.Pool[pooledPage]
	launch launchFunc

	mu      sync.Mutex
	browser browser
	gen     uint64
	closed  bool
}

// pooledPage remembers which browser launch opened it
type pooledPage struct {
	page page
	gen  uint64
}

// NewRodRenderer prepares a renderer. The browser is launched on first use.
func NewRodRenderer(opts Options, logger *zap.Logger) *RodRenderer {
	return newRenderer(opts, logger, launchRod)
}

func newRenderer(opts Options, logger *zap.Logger, launch launchFunc) *RodRenderer {
	if opts.PoolSize < 1 {
		opts.PoolSize = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RodRenderer{
		opts:   opts,
		logger: logger,
		gate:   newAdmission(opts.PoolSize, opts.QueueSize),
		pool:   rod.NewPool[pooledPage](opts.PoolSize),
		launch: launch,
	}
}

var _ Renderer = (*RodRenderer)(nil)

// Render prints html to an A3 landscape PDF.
func (r *RodRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	release, err := r.gate.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	slot, err := r.acquire()
	if err != nil {
		return nil, err
	}

	out, err := slot.page.PrintPDF(ctx, html)
	if err != nil {
		// Errored pages are closed and their slot is refilled lazily
		_ = slot.page.Close()
		r.pool.Put(nil)
		r.dropIfDead(slot.gen)
		if ctx.Err() != nil {
			return nil, ErrRenderTimeout
		}
		return nil, fmt.Errorf("print: %w", err)
	}

	r.release(slot)
	return out, nil
}

// release returns a page to the pool, or closes it when the renderer shut down mid-render
func (r *RodRenderer) release(slot *pooledPage) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		_ = slot.page.Close()
		r.pool.Put(nil)
		return
	}
	r.pool.Put(slot)
}

// acquire checks the browser, then takes a page from the pool. Pages left over
// from an earlier browser launch are replaced before use.
func (r *RodRenderer) acquire() (*pooledPage, error) {
	b, gen, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	// A worker slot guarantees a free pool entry, so Get does not block
	slot, err := r.pool.Get(func() (*pooledPage, error) { return r.open(b, gen) })
	if err != nil {
		r.pool.Put(nil)
		return nil, err
	}
	if slot.gen != gen {
		_ = slot.page.Close()
		if slot, err = r.open(b, gen); err != nil {
			r.pool.Put(nil)
			return nil, err
		}
	}
	return slot, nil
}

func (r *RodRenderer) open(b browser, gen uint64) (*pooledPage, error) {
	p, err := b.NewPage()
	if err != nil {
		r.dropIfDead(gen)
		return nil, fmt.Errorf("open page: %w", err)
	}
	return &pooledPage{page: p, gen: gen}, nil
}

// ensureBrowser returns a live browser and its launch generation, relaunching when the connection is gone
func (r *RodRenderer) ensureBrowser() (browser, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, 0, ErrRendererClosed
	}
	if r.browser != nil {
		if r.browser.Alive() {
			return r.browser, r.gen, nil
		}
		r.logger.Warn("Stale browser connection detected, relaunching")
		r.closeBrowserLocked()
	}

	b, err := r.launch(r.opts)
	if err != nil {
		return nil, 0, err
	}
	r.browser = b
	r.gen++
	r.logger.Info("Headless browser started", zap.Int("pool_size", r.opts.PoolSize), zap.Uint64("launch", r.gen))
	return b, r.gen, nil
}

// dropIfDead discards the browser of launch gen when it no longer answers
func (r *RodRenderer) dropIfDead(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil && r.gen == gen && !r.browser.Alive() {
		r.logger.Warn("Browser connection lost")
		r.closeBrowserLocked()
	}
}

func (r *RodRenderer) closeBrowserLocked() {
	if r.browser != nil {
		_ = r.browser.Close()
		r.browser = nil
	}
}

// Close closes idle pooled pages and stops the browser. Later renders fail with ErrRendererClosed.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	// Drained slots go back as nil so renders already past admission never block on Get
	drained := 0
	for i := 0; i < cap(r.pool); i++ {
		select {
		case slot := <-r.pool:
			if slot != nil {
				_ = slot.page.Close()
			}
			drained++
		default:
		}
	}
	for i := 0; i < drained; i++ {
		r.pool.Put(nil)
	}

	r.closeBrowserLocked()
	return nil
}
