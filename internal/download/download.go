package download

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Download 默认传输层：每次只发一跳，不跟随重定向，不自动解压
//
// 校验证书和不校验证书的连接分别使用各自的 http.Transport，连接池互不混用。
type Download struct {
	mu       sync.Mutex
	clients  map[bool]*http.Client
	Dialer   *net.Dialer
	ProxyURL func(*http.Request) (*url.URL, error)
}

func InitDownload() *Download {
	return &Download{
		clients: make(map[bool]*http.Client),
		Dialer: &net.Dialer{
			KeepAlive: 30 * time.Second,
		},
		ProxyURL: http.ProxyFromEnvironment,
	}
}

// RoundTrip 执行请求，超时由 req 的 context 控制
func (d *Download) RoundTrip(req *http.Request, validateTLS bool) (*http.Response, error) {
	return d.client(validateTLS).Do(req)
}

func (d *Download) client(validateTLS bool) *http.Client {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.clients[validateTLS]; ok {
		return c
	}

	transport := &http.Transport{
		Proxy:               d.ProxyURL,
		DialContext:         d.Dialer.DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		// 由调用方根据 Content-Encoding 解压
		DisableCompression: true,
	}
	if !validateTLS {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	c := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	d.clients[validateTLS] = c
	return c
}

// Close 关闭空闲连接
func (d *Download) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.clients {
		c.CloseIdleConnections()
	}
}
