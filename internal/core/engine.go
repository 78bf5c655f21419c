package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/djskncxm/DuckSoup/internal/setting"
	"github.com/djskncxm/DuckSoup/pkg/httpc"
	"github.com/djskncxm/DuckSoup/pkg/logger"
	"github.com/djskncxm/DuckSoup/pkg/middleware"
	"github.com/djskncxm/DuckSoup/pkg/spider"
)

// Engine 调度任务，由多个 worker 各自用独立的 Connection 执行
type Engine struct {
	spiders    []spider.SpiderIns
	transport  httpc.Transport
	scheduler  *Scheduler
	proto      *httpc.Request
	limiter    *rate.Limiter
	Config     *setting.SettingsManager
	Middleware *middleware.MiddlewareManager
	Logger     *logger.Logger
	mu         sync.Mutex
}

func InitEngine(config *setting.SettingsManager, proto *httpc.Request, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if proto == nil {
		proto = httpc.NewRequest()
	}

	limit := rate.Inf
	if rps := config.GetFloat("Crawler.RateLimit", 0); rps > 0 {
		limit = rate.Limit(rps)
	}

	return &Engine{
		transport:  httpc.DefaultTransport,
		scheduler:  NewScheduler(),
		proto:      proto,
		limiter:    rate.NewLimiter(limit, 1),
		Config:     config,
		Middleware: middleware.NewMiddlewareManager(),
		Logger:     log,
	}
}

func (e *Engine) AddSpider(sp spider.SpiderIns) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spiders = append(e.spiders, sp)
}

// SetTransport 替换所有 worker 使用的传输层
func (e *Engine) SetTransport(t httpc.Transport) {
	if t == nil {
		t = httpc.DefaultTransport
	}
	e.transport = t
}

// StartSpider 投放种子请求并阻塞到所有任务完成或 ctx 结束
func (e *Engine) StartSpider(ctx context.Context) error {
	e.Logger.Debug("框架启动")
	concurrency := e.Config.GetInt("Crawler.Worker", 3)
	if concurrency < 1 {
		concurrency = 1
	}
	e.Logger.WithField("worker", concurrency).Info("crawler start")

	e.mu.Lock()
	spiders := append([]spider.SpiderIns(nil), e.spiders...)
	e.mu.Unlock()
	for _, sp := range spiders {
		for _, req := range sp.Start(e.proto) {
			e.EnRequest(&Task{Request: req, Spider: sp})
		}
	}

	// 所有任务完成后 stop 让监听协程退出
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			e.scheduler.Close()
		case <-stop:
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx)
		}()
	}
	wg.Wait()
	close(stop)

	e.Logger.Debug("框架关闭")
	return ctx.Err()
}

func (e *Engine) worker(ctx context.Context) {
	delay := time.Duration(e.Config.GetInt("Crawler.Delay", 0)) * time.Millisecond
	for {
		task := e.scheduler.NextRequest()
		if task == nil {
			return
		}
		e.process(ctx, task)
		e.scheduler.Done()

		if delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}
}

// process 执行一个任务：请求中间件、限速、执行、异常/响应中间件、回调
func (e *Engine) process(ctx context.Context, task *Task) {
	req := task.Request
	log := e.Logger.WithField("spider", task.Spider.Name())

	if err := e.Middleware.ProcessRequest(req); err != nil {
		e.fail(task, err)
		return
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return
	}

	conn := httpc.NewConnection().
		Transport(e.transport).
		Logger(e.Logger).
		SetRequest(req)
	res, err := conn.Execute(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		if err = e.Middleware.ProcessException(req, err); err != nil {
			e.fail(task, err)
		}
		return
	}
	e.Logger.Count("crawled")

	if err := e.Middleware.ProcessResponse(res); err != nil {
		e.fail(task, err)
		return
	}

	for _, next := range task.Spider.Handle(res) {
		if next == nil {
			continue
		}
		if err := next.Err(); err != nil {
			log.WithError(err).Warn("drop invalid request")
			continue
		}
		if !e.EnRequest(&Task{Request: next, Spider: task.Spider, Depth: task.Depth + 1}) {
			e.Logger.Count("dropped_duplicate")
		}
	}
}

func (e *Engine) fail(task *Task, err error) {
	e.Logger.Count("spider_errors")
	e.Logger.WithField("spider", task.Spider.Name()).WithError(err).Warn("request failed")
	task.Spider.HandleError(task.Request, err)
}

func (e *Engine) EnRequest(task *Task) bool {
	return e.scheduler.EnqueueRequest(task)
}
