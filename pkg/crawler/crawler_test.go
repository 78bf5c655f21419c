package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djskncxm/DuckSoup/internal/setting"
	"github.com/djskncxm/DuckSoup/pkg/httpc"
	"github.com/djskncxm/DuckSoup/pkg/middleware"
	"github.com/djskncxm/DuckSoup/pkg/spider"
)

// site 三个页面互相链接，另有一个坏链接
func site(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/":  `<a href="/a">a</a><a href="/b">b</a>`,
		"/a": `<a href="/">home</a><a href="/b">b</a>`,
		"/b": `<a href="/missing">gone</a>`,
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><head><title>%s|%s</title></head><body>%s</body></html>",
			r.URL.Path, r.Header.Get("X-Crawler"), body)
	}))
}

func newCrawler(t *testing.T, worker int) *Crawler {
	t.Helper()
	cfg := &setting.Setting{}
	cfg.Log.LogLevel = "panic"
	cfg.Crawler.Worker = worker
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

type collector struct {
	mu     sync.Mutex
	titles []string
	errs   []error
}

func (c *collector) spider(seed string) spider.Spider {
	return spider.Spider{
		SpiderName: "site",
		URL:        seed,
		Callback: func(res *httpc.Response) []*httpc.Request {
			doc, err := res.Parse()
			if err != nil {
				return nil
			}
			c.mu.Lock()
			c.titles = append(c.titles, doc.Title())
			c.mu.Unlock()

			var next []*httpc.Request
			links, _ := doc.XPath("//a")
			for _, a := range links {
				next = append(next, spider.Follow(res, htmlquery.SelectAttr(a, "href")))
			}
			return next
		},
		Errback: func(_ *httpc.Request, err error) {
			c.mu.Lock()
			c.errs = append(c.errs, err)
			c.mu.Unlock()
		},
	}
}

func (c *collector) sortedTitles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]string(nil), c.titles...)
	sort.Strings(out)
	return out
}

func TestCrawler_CrawlsSiteOnce(t *testing.T) {
	server := site(t)
	defer server.Close()

	c := newCrawler(t, 3)
	col := &collector{}
	c.RegisterSpider(col.spider(server.URL + "/"))
	require.NoError(t, c.Use(middleware.DefaultHeaders{"X-Crawler": "duck"}))

	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, []string{"/a|duck", "/b|duck", "/|duck"}, col.sortedTitles())
	require.Len(t, col.errs, 1)
	assert.ErrorIs(t, col.errs[0], httpc.ErrHTTPStatus)

	crawled, _ := c.Logger.Stats.GetInt("crawled")
	assert.Equal(t, 3, crawled)
	dropped, _ := c.Logger.Stats.GetInt("dropped_duplicate")
	assert.Equal(t, 2, dropped)
}

func TestCrawler_ExceptionMiddlewareSwallowsErrors(t *testing.T) {
	server := site(t)
	defer server.Close()

	c := newCrawler(t, 1)
	col := &collector{}
	c.RegisterSpider(col.spider(server.URL + "/"))
	require.NoError(t, c.Use(middleware.IgnoreStatus{http.StatusNotFound}))

	require.NoError(t, c.Run(context.Background()))
	assert.Len(t, col.sortedTitles(), 3)
	assert.Empty(t, col.errs)
}

func TestCrawler_TransportOverride(t *testing.T) {
	var hits int
	var mu sync.Mutex
	stub := httpc.TransportFunc(func(req *http.Request, _ bool) (*http.Response, error) {
		mu.Lock()
		hits++
		mu.Unlock()
		return nil, fmt.Errorf("offline")
	})

	c := newCrawler(t, 2).Transport(stub)
	col := &collector{}
	sp := col.spider("http://example.com/")
	sp.URLs = []string{"http://example.com/1", "http://example.com/2"}
	c.RegisterSpider(sp)

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 3, hits)
	assert.Len(t, col.errs, 3)
	for _, err := range col.errs {
		assert.ErrorIs(t, err, httpc.ErrTransport)
	}
}

func TestCrawler_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := &setting.Setting{}
	cfg.Log.LogLevel = "panic"
	timeout := 0
	cfg.Connection.Timeout = &timeout
	c, err := New(cfg)
	require.NoError(t, err)
	c.RegisterSpider(spider.Spider{SpiderName: "slow", URLs: []string{server.URL + "/1", server.URL + "/2"}})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err = c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCrawler_RateLimitAndDelay(t *testing.T) {
	server := site(t)
	defer server.Close()

	cfg := &setting.Setting{}
	cfg.Log.LogLevel = "panic"
	cfg.Crawler.Worker = 2
	cfg.Crawler.RateLimit = 50
	cfg.Crawler.Delay = 10
	c, err := New(cfg)
	require.NoError(t, err)

	col := &collector{}
	c.RegisterSpider(col.spider(server.URL + "/"))
	require.NoError(t, c.Run(context.Background()))
	assert.Len(t, col.sortedTitles(), 3)
	assert.Equal(t, 2, c.Config.GetInt("Crawler.Worker", 0))
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Log:\n  LogLevel: panic\nCrawler:\n  Worker: 4\n"), 0o644))

	c, err := NewFromFile(path)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, 4, c.Config.GetInt("Crawler.Worker", 0))

	_, err = NewFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNew_InvalidConnectionConfig(t *testing.T) {
	cfg := &setting.Setting{}
	cfg.Connection.Parser = "json"
	_, err := New(cfg)
	assert.Error(t, err)

	// 日志文件已配置时同样返回错误，并释放日志文件
	cfg.Log.LogFile = filepath.Join(t.TempDir(), "crawl.log")
	c, err := New(cfg)
	assert.Nil(t, c)
	assert.ErrorContains(t, err, "invalid connection config")
}
