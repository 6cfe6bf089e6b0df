package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/ekaval/estate-harvester/internal/harvest"
)

// Static loads pages over plain HTTP using a Colly collector. It serves
// portals whose listing markup arrives fully server-rendered; readiness is
// judged by probing the fetched document for the readiness selector.
type Static struct {
	opts      Options
	logger    *zap.Logger
	collector *colly.Collector
}

var _ harvest.Browser = (*Static)(nil)

// NewStatic builds the static backend.
func NewStatic(opts Options, logger *zap.Logger) (*Static, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LoadTimeout <= 0 {
		return nil, errors.New("static backend requires a load timeout")
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = false
	if opts.UserAgent != "" {
		c.UserAgent = opts.UserAgent
	}
	c.SetRequestTimeout(opts.LoadTimeout)
	c.WithTransport(newHTTPTransport())

	return &Static{opts: opts, logger: logger, collector: c}, nil
}

// Load fetches rawURL and checks that the readiness selector is present in
// the response body. A missing selector or a request timeout both surface as
// harvest.ErrLoadTimeout so the engine can retry.
func (s *Static) Load(ctx context.Context, rawURL string, readiness harvest.Readiness) (harvest.Page, error) {
	selector, err := s.opts.Selectors.For(readiness)
	if err != nil {
		return harvest.Page{}, err
	}
	if err := ctx.Err(); err != nil {
		return harvest.Page{}, err
	}

	var body []byte
	var fetchErr error
	collector := s.collector.Clone()
	collector.UserAgent = s.collector.UserAgent
	collector.SetRequestTimeout(s.opts.LoadTimeout)
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(rawURL); err != nil {
		return harvest.Page{}, fmt.Errorf("visit %s: %w", rawURL, err)
	}
	collector.Wait()
	if fetchErr != nil {
		var netErr net.Error
		if errors.As(fetchErr, &netErr) && netErr.Timeout() {
			return harvest.Page{}, harvest.ErrLoadTimeout
		}
		return harvest.Page{}, fmt.Errorf("fetch %s: %w", rawURL, fetchErr)
	}

	html := string(body)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return harvest.Page{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	if doc.Find(selector).Length() == 0 {
		s.logger.Warn("readiness selector absent",
			zap.String("url", rawURL),
			zap.String("selector", selector))
		return harvest.Page{}, harvest.ErrLoadTimeout
	}

	return harvest.Page{URL: rawURL, HTML: html}, nil
}

// Close is a no-op; the collector holds no long-lived resources.
func (s *Static) Close(context.Context) error {
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
