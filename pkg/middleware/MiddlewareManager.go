package middleware

import (
	"fmt"
	"sort"
	"sync"

	"github.com/djskncxm/DuckSoup/pkg/httpc"
)

// 中间件接口定义
type RequestProcessor interface {
	ProcessRequest(*httpc.Request) error
}

type ResponseProcessor interface {
	ProcessResponse(*httpc.Response) error
}

// ExceptionProcessor handled 为 true 时用 newErr 代替原错误，newErr 为 nil 表示吞掉错误
type ExceptionProcessor interface {
	ProcessException(req *httpc.Request, err error) (handled bool, newErr error)
}

type MiddlewarePriority int

const (
	PriorityFirst  MiddlewarePriority = 100
	PriorityHigh   MiddlewarePriority = 50
	PriorityNormal MiddlewarePriority = 0
	PriorityLow    MiddlewarePriority = -50
	PriorityLast   MiddlewarePriority = -100
)

// MiddlewareConfig 零值即启用
type MiddlewareConfig struct {
	Name     string
	Priority MiddlewarePriority
	Disabled bool
	Group    string
}

type DecoratedMiddleware struct {
	ID         string
	Config     MiddlewareConfig
	Middleware interface{}
}

type MiddlewareManager struct {
	mu             sync.RWMutex
	requestChain   []DecoratedMiddleware
	responseChain  []DecoratedMiddleware
	exceptionChain []DecoratedMiddleware

	// 中间件查找和禁用功能
	middlewareMap  map[string]DecoratedMiddleware
	disabledGroups map[string]bool
}

func NewMiddlewareManager() *MiddlewareManager {
	return &MiddlewareManager{
		middlewareMap:  make(map[string]DecoratedMiddleware),
		disabledGroups: make(map[string]bool),
	}
}

// Register 智能注册，自动检测接口类型
func (mm *MiddlewareManager) Register(middleware interface{}, config ...MiddlewareConfig) error {
	cfg := MiddlewareConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("%T", middleware)
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()

	id := generateID(cfg.Name)
	if _, ok := mm.middlewareMap[id]; ok {
		return fmt.Errorf("middleware %s already registered", cfg.Name)
	}

	dm := DecoratedMiddleware{
		ID:         id,
		Config:     cfg,
		Middleware: middleware,
	}

	matched := false
	if _, ok := middleware.(RequestProcessor); ok {
		mm.requestChain = append(mm.requestChain, dm)
		sortRequestChain(mm.requestChain)
		matched = true
	}
	if _, ok := middleware.(ResponseProcessor); ok {
		mm.responseChain = append(mm.responseChain, dm)
		sortResponseChain(mm.responseChain)
		matched = true
	}
	if _, ok := middleware.(ExceptionProcessor); ok {
		mm.exceptionChain = append(mm.exceptionChain, dm)
		sortRequestChain(mm.exceptionChain)
		matched = true
	}
	if !matched {
		return fmt.Errorf("%w: %T implements no middleware interface", httpc.ErrInvalidArgument, middleware)
	}

	mm.middlewareMap[id] = dm
	return nil
}

// ProcessRequest 按优先级从高到低处理请求
func (mm *MiddlewareManager) ProcessRequest(req *httpc.Request) error {
	for _, dm := range mm.getEnabledMiddlewares(mm.requestChain) {
		if err := dm.Middleware.(RequestProcessor).ProcessRequest(req); err != nil {
			return fmt.Errorf("middleware %s failed: %w", dm.Config.Name, err)
		}
	}
	return nil
}

// ProcessResponse 按优先级从低到高处理响应
func (mm *MiddlewareManager) ProcessResponse(resp *httpc.Response) error {
	for _, dm := range mm.getEnabledMiddlewares(mm.responseChain) {
		if err := dm.Middleware.(ResponseProcessor).ProcessResponse(resp); err != nil {
			return fmt.Errorf("middleware %s failed: %w", dm.Config.Name, err)
		}
	}
	return nil
}

// ProcessException 第一个处理了错误的中间件决定结果
func (mm *MiddlewareManager) ProcessException(req *httpc.Request, err error) error {
	for _, dm := range mm.getEnabledMiddlewares(mm.exceptionChain) {
		if handled, newErr := dm.Middleware.(ExceptionProcessor).ProcessException(req, err); handled {
			return newErr
		}
	}
	return err
}

func (mm *MiddlewareManager) Get(name string) (interface{}, bool) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	dm, ok := mm.middlewareMap[generateID(name)]
	return dm.Middleware, ok
}

// 辅助方法
func (mm *MiddlewareManager) getEnabledMiddlewares(chain []DecoratedMiddleware) []DecoratedMiddleware {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	result := make([]DecoratedMiddleware, 0, len(chain))
	for _, dm := range chain {
		if !dm.Config.Disabled && !mm.disabledGroups[dm.Config.Group] {
			result = append(result, dm)
		}
	}
	return result
}

func (mm *MiddlewareManager) EnableGroup(group string) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	delete(mm.disabledGroups, group)
}

func (mm *MiddlewareManager) DisableGroup(group string) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.disabledGroups[group] = true
}

// 排序函数，稳定排序保证同优先级按注册顺序
func sortRequestChain(chain []DecoratedMiddleware) {
	sort.SliceStable(chain, func(i, j int) bool {
		return chain[i].Config.Priority > chain[j].Config.Priority
	})
}

func sortResponseChain(chain []DecoratedMiddleware) {
	sort.SliceStable(chain, func(i, j int) bool {
		return chain[i].Config.Priority < chain[j].Config.Priority
	})
}

func generateID(name string) string {
	return fmt.Sprintf("mw-%s", name)
}
