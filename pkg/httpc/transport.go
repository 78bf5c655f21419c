package httpc

import (
	"net/http"

	"github.com/djskncxm/DuckSoup/internal/download"
)

// Transport 执行单跳 HTTP 请求，不能自己跟随重定向
//
// 超时和取消通过 req.Context() 传递。
type Transport interface {
	RoundTrip(req *http.Request, validateTLS bool) (*http.Response, error)
}

// TransportFunc 函数适配为 Transport
type TransportFunc func(req *http.Request, validateTLS bool) (*http.Response, error)

func (f TransportFunc) RoundTrip(req *http.Request, validateTLS bool) (*http.Response, error) {
	return f(req, validateTLS)
}

// DefaultTransport 所有连接默认共用的传输层
var DefaultTransport Transport = download.InitDownload()
