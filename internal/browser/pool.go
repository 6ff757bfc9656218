// Package browser manages headless Chromium instances and adapts rod pages
// to the capability surface the login engine drives.
package browser

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/oklog/ulid/v2"

	"github.com/pagesnap/pagesnap/internal/config"
)

var (
	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("browser pool is closed")
)

// Instance wraps a rod.Browser with management metadata.
type Instance struct {
	ID           string
	Browser      *rod.Browser
	InUse        bool
	CreatedAt    time.Time
	LastUsedAt   time.Time
	RequestCount int
}

// Pool manages a bounded set of browser instances. Acquire blocks when every
// instance is in use and the pool is at capacity.
type Pool struct {
	mu       sync.RWMutex
	browsers map[string]*Instance
	waiting  []chan *Instance
	cfg      *config.Config
	logger   *slog.Logger
	closed   bool

	chromePath string
	headless   bool

	ready     bool
	readyChan chan struct{}
}

// NewPool creates a browser pool.
func NewPool(cfg *config.Config, logger *slog.Logger) *Pool {
	return &Pool{
		browsers:   make(map[string]*Instance),
		waiting:    make([]chan *Instance, 0),
		cfg:        cfg,
		logger:     logger,
		chromePath: cfg.ChromePath,
		headless:   true,
		readyChan:  make(chan struct{}),
	}
}

// Ready reports whether warmup has completed.
func (p *Pool) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// WaitReady blocks until the pool is ready or the context is cancelled.
func (p *Pool) WaitReady(ctx context.Context) error {
	select {
	case <-p.readyChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Warmup ensures Chromium is present and optionally pre-creates instances so
// the first capture request does not pay the download cost.
func (p *Pool) Warmup(ctx context.Context, preCreate int) error {
	p.logger.Info("warming up browser pool...")

	if p.chromePath != "" {
		p.logger.Info("using custom Chrome path", "path", p.chromePath)
	} else {
		// rod downloads Chromium on demand; force it now.
		browserPath, err := launcher.NewBrowser().Get()
		if err != nil {
			return err
		}
		p.logger.Info("Chromium ready", "path", browserPath)
	}

	if preCreate > 0 {
		if preCreate > p.cfg.BrowserPoolSize {
			preCreate = p.cfg.BrowserPoolSize
		}
		p.logger.Info("pre-creating browsers", "count", preCreate)

		for i := 0; i < preCreate; i++ {
			inst, err := p.createBrowser(ctx)
			if err != nil {
				p.logger.Error("failed to pre-create browser", "error", err)
				return err
			}
			inst.InUse = false
			p.mu.Lock()
			p.browsers[inst.ID] = inst
			p.mu.Unlock()
		}
	}

	p.mu.Lock()
	p.ready = true
	close(p.readyChan)
	p.mu.Unlock()

	return nil
}

// Acquire gets a browser from the pool, creating one if capacity allows and
// waiting otherwise.
func (p *Pool) Acquire(ctx context.Context) (*Instance, error) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	for _, b := range p.browsers {
		if !b.InUse && p.isHealthy(b) {
			b.InUse = true
			b.LastUsedAt = time.Now()
			p.mu.Unlock()
			return b, nil
		}
	}

	if len(p.browsers) < p.cfg.BrowserPoolSize {
		inst, err := p.createBrowser(ctx)
		if err != nil {
			p.mu.Unlock()
			return nil, err
		}
		p.browsers[inst.ID] = inst
		p.mu.Unlock()
		return inst, nil
	}

	waitChan := make(chan *Instance, 1)
	p.waiting = append(p.waiting, waitChan)
	p.mu.Unlock()

	select {
	case inst := <-waitChan:
		if inst == nil {
			return nil, ErrPoolClosed
		}
		return inst, nil
	case <-ctx.Done():
		p.mu.Lock()
		for i, ch := range p.waiting {
			if ch == waitChan {
				p.waiting = append(p.waiting[:i], p.waiting[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Release returns a browser to the pool.
func (p *Pool) Release(inst *Instance) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.closeBrowser(inst)
		return
	}

	inst.InUse = false
	inst.RequestCount++
	inst.LastUsedAt = time.Now()

	if p.needsRecycle(inst) {
		p.recycleBrowser(inst)
		return
	}

	if len(p.waiting) > 0 {
		waitChan := p.waiting[0]
		p.waiting = p.waiting[1:]
		inst.InUse = true
		inst.LastUsedAt = time.Now()
		waitChan <- inst
	}
}

// Close shuts down every browser and closes the pool.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	for _, inst := range p.browsers {
		p.closeBrowser(inst)
	}
	p.browsers = make(map[string]*Instance)

	for _, ch := range p.waiting {
		close(ch)
	}
	p.waiting = nil
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := PoolStats{
		Total:   len(p.browsers),
		MaxSize: p.cfg.BrowserPoolSize,
		Waiting: len(p.waiting),
		Ready:   p.ready,
	}
	for _, b := range p.browsers {
		if b.InUse {
			stats.InUse++
		} else {
			stats.Available++
		}
	}
	return stats
}

// PoolStats contains pool statistics.
type PoolStats struct {
	Total     int  `json:"total"`
	InUse     int  `json:"inUse"`
	Available int  `json:"available"`
	MaxSize   int  `json:"maxSize"`
	Waiting   int  `json:"waiting"`
	Ready     bool `json:"ready"`
}

// createBrowser launches a new Chromium instance.
func (p *Pool) createBrowser(ctx context.Context) (*Instance, error) {
	l := launcher.New()

	if p.chromePath != "" {
		l = l.Bin(p.chromePath)
	}

	// Flags tuned for headless capture work: fixed viewport for stable
	// screenshots, background throttling off so login flows keep running.
	l = l.
		Headless(p.headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-infobars").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("window-size", "1920,1080").
		Set("lang", "en-US,en")

	u, err := l.Launch()
	if err != nil {
		return nil, err
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, err
	}

	id := ulid.Make().String()
	p.logger.Info("browser created", "id", id)

	return &Instance{
		ID:         id,
		Browser:    b,
		InUse:      true,
		CreatedAt:  time.Now(),
		LastUsedAt: time.Now(),
	}, nil
}

// isHealthy checks whether a browser can take another request.
func (p *Pool) isHealthy(b *Instance) bool {
	if time.Since(b.CreatedAt) > p.cfg.BrowserMaxAge {
		return false
	}
	if b.RequestCount >= p.cfg.BrowserMaxRequests {
		return false
	}
	if !b.InUse && time.Since(b.LastUsedAt) > p.cfg.BrowserIdleTimeout {
		return false
	}

	defer func() {
		recover()
	}()
	_, err := b.Browser.Pages()
	return err == nil
}

// needsRecycle checks whether a browser has aged out.
func (p *Pool) needsRecycle(b *Instance) bool {
	if time.Since(b.CreatedAt) > p.cfg.BrowserMaxAge {
		return true
	}
	return b.RequestCount >= p.cfg.BrowserMaxRequests
}

// recycleBrowser closes an aged browser and replaces it in the background.
func (p *Pool) recycleBrowser(b *Instance) {
	p.logger.Info("recycling browser", "id", b.ID, "age", time.Since(b.CreatedAt), "requests", b.RequestCount)

	p.closeBrowser(b)
	delete(p.browsers, b.ID)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		replacement, err := p.createBrowser(ctx)
		if err != nil {
			p.logger.Error("failed to create replacement browser", "error", err)
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()

		if p.closed {
			p.closeBrowser(replacement)
			return
		}

		replacement.InUse = false
		p.browsers[replacement.ID] = replacement

		if len(p.waiting) > 0 {
			waitChan := p.waiting[0]
			p.waiting = p.waiting[1:]
			replacement.InUse = true
			replacement.LastUsedAt = time.Now()
			waitChan <- replacement
		}
	}()
}

// closeBrowser closes a browser, logging instead of failing.
func (p *Pool) closeBrowser(b *Instance) {
	if b.Browser != nil {
		if err := b.Browser.Close(); err != nil {
			p.logger.Warn("error closing browser", "id", b.ID, "error", err)
		}
	}
	p.logger.Info("browser closed", "id", b.ID)
}

// StartCleanup periodically drops browsers that have been idle too long.
// Blocks until ctx is cancelled; run it in a goroutine.
func (p *Pool) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cleanupIdleBrowsers()
		}
	}
}

func (p *Pool) cleanupIdleBrowsers() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	var toRemove []string
	for id, b := range p.browsers {
		if !b.InUse && time.Since(b.LastUsedAt) > p.cfg.BrowserIdleTimeout {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		b := p.browsers[id]
		p.logger.Info("cleaning up idle browser", "id", id, "idle_time", time.Since(b.LastUsedAt))
		p.closeBrowser(b)
		delete(p.browsers, id)
	}
}
