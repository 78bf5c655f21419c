package crawler

import (
	"context"
	"fmt"

	"github.com/djskncxm/DuckSoup/internal/core"
	"github.com/djskncxm/DuckSoup/internal/setting"
	"github.com/djskncxm/DuckSoup/pkg/httpc"
	"github.com/djskncxm/DuckSoup/pkg/logger"
	"github.com/djskncxm/DuckSoup/pkg/middleware"
	"github.com/djskncxm/DuckSoup/pkg/spider"
)

const DefaultConfigPath = "config/config.yaml"

type Crawler struct {
	Engine *core.Engine
	Config *setting.SettingsManager
	Logger *logger.Logger
}

// New 按配置创建爬虫，cfg 为空时使用默认配置
func New(cfg *setting.Setting) (*Crawler, error) {
	if cfg == nil {
		cfg = &setting.Setting{}
	}

	log, err := logger.NewLogger(cfg.LogConfig())
	if err != nil {
		return nil, fmt.Errorf("日志系统初始化错误: %w", err)
	}
	proto, err := cfg.Prototype()
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}

	sm := setting.NewSettingsManager()
	sm.LoadFromSetting(cfg)

	return &Crawler{
		Engine: core.InitEngine(sm, proto, log),
		Config: sm,
		Logger: log,
	}, nil
}

// NewFromFile 读取 YAML 配置文件创建爬虫
func NewFromFile(path string) (*Crawler, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	cfg, err := setting.Load(path)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

func (c *Crawler) RegisterSpider(spiders ...spider.SpiderIns) {
	for _, sp := range spiders {
		c.Engine.AddSpider(sp)
	}
}

// Use 注册中间件
func (c *Crawler) Use(mw interface{}, config ...middleware.MiddlewareConfig) error {
	return c.Engine.Middleware.Register(mw, config...)
}

// Transport 替换传输层
func (c *Crawler) Transport(t httpc.Transport) *Crawler {
	c.Engine.SetTransport(t)
	return c
}

// Run 阻塞到所有任务完成，ctx 取消时提前返回
func (c *Crawler) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.Engine.StartSpider(ctx)
}

func (c *Crawler) Close() error {
	return c.Logger.Close()
}
