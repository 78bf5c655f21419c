package spider

import (
	"strings"

	"github.com/djskncxm/DuckSoup/pkg/httpc"
)

type SpiderIns interface {
	Name() string
	Start(proto *httpc.Request) []*httpc.Request
	Handle(*httpc.Response) []*httpc.Request
	HandleError(*httpc.Request, error)
}

// Spider 种子地址加回调。Callback 返回的请求会继续被抓取
type Spider struct {
	SpiderName string
	URL        string
	URLs       []string
	Callback   func(*httpc.Response) []*httpc.Request
	Errback    func(*httpc.Request, error)
}

func (s Spider) Name() string {
	return s.SpiderName
}

// Start 以原型请求为模板生成种子请求，原型为空时使用默认请求
func (s Spider) Start(proto *httpc.Request) []*httpc.Request {
	if proto == nil {
		proto = httpc.NewRequest()
	}
	res := make([]*httpc.Request, 0, len(s.URLs)+1)

	if s.URL != "" {
		res = append(res, proto.Clone().WithRawURL(s.URL))
	}
	for _, u := range s.URLs {
		res = append(res, proto.Clone().WithRawURL(u))
	}
	return res
}

func (s Spider) Handle(response *httpc.Response) []*httpc.Request {
	if s.Callback != nil {
		return s.Callback(response)
	}
	return nil
}

func (s Spider) HandleError(req *httpc.Request, err error) {
	if s.Errback != nil {
		s.Errback(req, err)
	}
}

// Follow 以响应的请求为模板，对 href 发起 GET，相对地址按响应地址解析
func Follow(res *httpc.Response, href string) *httpc.Request {
	req := res.Request().Clone().WithMethod(httpc.MethodGet).ClearData()
	target, err := res.URL().Parse(strings.TrimSpace(href))
	if err != nil {
		return req.WithRawURL(href)
	}
	return req.WithURL(target)
}
