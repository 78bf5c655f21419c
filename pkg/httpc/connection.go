package httpc

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/djskncxm/DuckSoup/pkg/logger"
	"github.com/djskncxm/DuckSoup/pkg/parser"
)

// Connection 一次请求/响应周期：持有一个 Request，执行后持有一个 Response
//
// 设置方法都转发给 Request，可以链式调用；参数错误在执行时返回。
// 一个 Connection 同一时间只能执行一次交换，多个 Connection 之间互不影响。
type Connection struct {
	req       *Request
	res       *Response
	transport Transport
	log       *logger.Logger
}

func NewConnection() *Connection {
	return &Connection{
		req:       NewRequest(),
		transport: DefaultTransport,
		log:       logger.GetDefaultLogger(),
	}
}

// Connect 以 URL 创建连接
func Connect(rawURL string) *Connection {
	return NewConnection().URL(rawURL)
}

func (c *Connection) URL(rawURL string) *Connection {
	c.req.WithRawURL(rawURL)
	return c
}

func (c *Connection) UserAgent(userAgent string) *Connection {
	c.req.WithHeader("User-Agent", userAgent)
	return c
}

func (c *Connection) Timeout(timeout time.Duration) *Connection {
	c.req.WithTimeout(timeout)
	return c
}

func (c *Connection) MaxBodySize(bytes int) *Connection {
	c.req.WithMaxBodySize(bytes)
	return c
}

func (c *Connection) Referrer(referrer string) *Connection {
	c.req.WithHeader("Referer", referrer)
	return c
}

func (c *Connection) FollowRedirects(follow bool) *Connection {
	c.req.WithFollowRedirects(follow)
	return c
}

func (c *Connection) MaxRedirects(max int) *Connection {
	c.req.WithMaxRedirects(max)
	return c
}

func (c *Connection) Method(method Method) *Connection {
	c.req.WithMethod(method)
	return c
}

func (c *Connection) IgnoreHTTPErrors(ignore bool) *Connection {
	c.req.WithIgnoreHTTPErrors(ignore)
	return c
}

func (c *Connection) IgnoreContentType(ignore bool) *Connection {
	c.req.WithIgnoreContentType(ignore)
	return c
}

func (c *Connection) ValidateTLSCertificates(validate bool) *Connection {
	c.req.WithValidateTLSCertificates(validate)
	return c
}

// Data 添加一个普通值参数
func (c *Connection) Data(key, value string) *Connection {
	kv, err := NewKeyVal(key, value)
	if err != nil {
		c.req.fail(err)
		return c
	}
	c.req.AddData(kv)
	return c
}

// DataStream 添加一个文件上传参数，会强制使用 multipart/form-data
func (c *Connection) DataStream(key, filename string, stream io.Reader) *Connection {
	kv, err := NewStreamKeyVal(key, filename, stream)
	if err != nil {
		c.req.fail(err)
		return c
	}
	c.req.AddData(kv)
	return c
}

func (c *Connection) DataKeyVals(kvs ...*KeyVal) *Connection {
	for _, kv := range kvs {
		c.req.AddData(kv)
	}
	return c
}

// DataMap 按键名排序后添加，保证编码结果稳定
func (c *Connection) DataMap(data map[string]string) *Connection {
	for _, k := range SortedKeys(data) {
		c.Data(k, data[k])
	}
	return c
}

// DataPairs 交替的键和值: "k1", "v1", "k2", "v2"
func (c *Connection) DataPairs(keyvals ...string) *Connection {
	if len(keyvals)%2 != 0 {
		c.req.fail(fmt.Errorf("%w: must supply an even number of key value pairs", ErrInvalidArgument))
		return c
	}
	for i := 0; i < len(keyvals); i += 2 {
		c.Data(keyvals[i], keyvals[i+1])
	}
	return c
}

func (c *Connection) Header(name, value string) *Connection {
	c.req.WithHeader(name, value)
	return c
}

func (c *Connection) Cookie(name, value string) *Connection {
	c.req.WithCookie(name, value)
	return c
}

// Cookies 按名称排序后添加，Cookie 头的顺序因此稳定
func (c *Connection) Cookies(cookies map[string]string) *Connection {
	for _, name := range SortedKeys(cookies) {
		c.req.WithCookie(name, cookies[name])
	}
	return c
}

func (c *Connection) Parser(p parser.Parser) *Connection {
	c.req.WithParser(p)
	return c
}

func (c *Connection) PostDataCharset(name string) *Connection {
	c.req.WithPostDataCharset(name)
	return c
}

// Transport 替换传输层，nil 表示使用默认
func (c *Connection) Transport(t Transport) *Connection {
	if t == nil {
		t = DefaultTransport
	}
	c.transport = t
	return c
}

func (c *Connection) Logger(l *logger.Logger) *Connection {
	if l == nil {
		l = logger.GetDefaultLogger()
	}
	c.log = l
	return c
}

func (c *Connection) Request() *Request {
	return c.req
}

// SetRequest 换一个请求，同一个 Connection 可以用来发起下一次交换
func (c *Connection) SetRequest(req *Request) *Connection {
	if req == nil {
		req = NewRequest()
	}
	c.req = req
	return c
}

func (c *Connection) Response() *Response {
	return c.res
}

func (c *Connection) SetResponse(res *Response) *Connection {
	c.res = res
	return c
}

// Execute 执行请求并返回响应
//
// 持有的 Request 不会被修改；出错时不会设置 Response，
// HTTPStatusError 和 UnsupportedMimeTypeError 携带已读取的响应。
func (c *Connection) Execute(ctx context.Context) (*Response, error) {
	ex := newExchange(c.req, c.transport, c.log)
	if err := c.req.Err(); err != nil {
		ex.release()
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := ex.run(ctx)
	if err != nil {
		c.log.Count("errors")
		c.log.WithError(err).Debug("execute failed")
		return nil, err
	}
	c.res = res
	return res, nil
}

// Get 以 GET 执行并解析响应
func (c *Connection) Get(ctx context.Context) (*parser.Document, error) {
	c.req.WithMethod(MethodGet)
	return c.fetchDocument(ctx)
}

// Post 以 POST 执行并解析响应
func (c *Connection) Post(ctx context.Context) (*parser.Document, error) {
	c.req.WithMethod(MethodPost)
	return c.fetchDocument(ctx)
}

func (c *Connection) fetchDocument(ctx context.Context) (*parser.Document, error) {
	res, err := c.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return res.Parse()
}

// String 便于日志输出
func (c *Connection) String() string {
	u := "<no url>"
	if c.req.URL() != nil {
		u = (&url.URL{Scheme: c.req.URL().Scheme, Host: c.req.URL().Host, Path: c.req.URL().Path}).String()
	}
	return fmt.Sprintf("%s %s", c.req.Method(), u)
}
