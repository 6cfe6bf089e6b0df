// Package browser provides the page-loading backends behind the harvest
// engine. The chromedp backend drives headless Chrome for sites that build
// their listings with JavaScript; the static backend fetches plain HTML.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ekaval/estate-harvester/internal/harvest"
)

// Options configures a page-loading backend.
type Options struct {
	// UserAgent is sent with every navigation.
	UserAgent string
	// LoadTimeout bounds how long a page may take to become ready. A page
	// that misses the deadline surfaces as harvest.ErrLoadTimeout.
	LoadTimeout time.Duration
	// DomainQPS caps requests per second per host. Zero disables the cap;
	// the politeness pauses in the engine remain in force either way.
	DomainQPS float64
	// Selectors describe when a page counts as ready.
	Selectors ReadinessSelectors
}

// ReadinessSelectors maps each readiness condition to the CSS selector whose
// presence marks the page as loaded.
type ReadinessSelectors struct {
	List   string
	Detail string
}

// DefaultReadinessSelectors returns the selectors for the supported portal
// markup.
func DefaultReadinessSelectors() ReadinessSelectors {
	return ReadinessSelectors{
		List:   "div.list-view-content",
		Detail: "ul.adv-info-list li.spec-item",
	}
}

// For resolves a readiness condition to its selector.
func (s ReadinessSelectors) For(readiness harvest.Readiness) (string, error) {
	switch readiness {
	case harvest.ReadinessList:
		return s.List, nil
	case harvest.ReadinessDetail:
		return s.Detail, nil
	default:
		return "", fmt.Errorf("unknown readiness condition %q", readiness)
	}
}

// Chromedp loads pages through a shared headless Chrome instance. Each Load
// opens a fresh tab, navigates, waits for the readiness selector, and returns
// the rendered DOM.
type Chromedp struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	opts            Options
	domainLimiters  sync.Map
}

var _ harvest.Browser = (*Chromedp)(nil)

// NewChromedp starts headless Chrome and warms up a browser context.
func NewChromedp(opts Options, logger *zap.Logger) (*Chromedp, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LoadTimeout <= 0 {
		return nil, errors.New("chromedp backend requires a load timeout")
	}

	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(opts.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Chromedp{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		opts:            opts,
	}, nil
}

// Load navigates to rawURL in a new tab and blocks until the readiness
// selector appears or the load timeout elapses.
func (b *Chromedp) Load(ctx context.Context, rawURL string, readiness harvest.Readiness) (harvest.Page, error) {
	selector, err := b.opts.Selectors.For(readiness)
	if err != nil {
		return harvest.Page{}, err
	}
	if err := b.waitDomainBudget(ctx, rawURL); err != nil {
		return harvest.Page{}, fmt.Errorf("domain rate limit: %w", err)
	}

	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, b.opts.LoadTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(b.opts.UserAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		if errors.Is(taskCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			b.logger.Warn("page load timed out",
				zap.String("url", rawURL),
				zap.String("readiness", string(readiness)),
				zap.Duration("timeout", b.opts.LoadTimeout))
			return harvest.Page{}, harvest.ErrLoadTimeout
		}
		return harvest.Page{}, fmt.Errorf("chromedp run: %w", err)
	}

	return harvest.Page{URL: rawURL, HTML: html}, nil
}

// Close shuts the browser down gracefully, waiting for Chrome to exit. If
// ctx expires first the contexts are cancelled outright and ctx's error is
// returned.
func (b *Chromedp) Close(ctx context.Context) error {
	if b == nil {
		return nil
	}
	defer b.allocatorCancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(b.browserCtx) }()
	if err := awaitShutdown(ctx, done); err != nil {
		b.browserCancel()
		return err
	}
	return nil
}

func awaitShutdown(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("chromedp shutdown: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Chromedp) waitDomainBudget(ctx context.Context, rawURL string) error {
	if b.opts.DomainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := b.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(b.opts.DomainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
