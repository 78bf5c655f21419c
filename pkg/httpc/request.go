package httpc

import (
	"fmt"
	"net/url"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/djskncxm/DuckSoup/pkg/parser"
)

const (
	DefaultTimeout         = 3 * time.Second
	DefaultMaxBodySize     = 1024 * 1024
	DefaultMaxRedirects    = 20
	DefaultPostDataCharset = "UTF-8"
)

// Request 一次请求的完整配置
//
// 设置方法可以链式调用。参数不合法时记录第一个错误 (字段保持不变)，由 Err 返回，
// 执行时直接失败。
type Request struct {
	Base

	timeout           time.Duration
	maxBodySize       int
	followRedirects   bool
	maxRedirects      int
	ignoreHTTPErrors  bool
	ignoreContentType bool
	validateTLS       bool
	data              []*KeyVal
	parser            parser.Parser
	postDataCharset   string

	err error
}

func NewRequest() *Request {
	return &Request{
		Base:            newBase(),
		timeout:         DefaultTimeout,
		maxBodySize:     DefaultMaxBodySize,
		followRedirects: true,
		maxRedirects:    DefaultMaxRedirects,
		validateTLS:     true,
		parser:          parser.HTML,
		postDataCharset: DefaultPostDataCharset,
	}
}

// New 以 URL 字符串创建请求
func New(rawURL string) *Request {
	return NewRequest().WithRawURL(rawURL)
}

// Err 第一个配置错误
func (r *Request) Err() error {
	return r.err
}

func (r *Request) fail(err error) *Request {
	if err != nil && r.err == nil {
		r.err = err
	}
	return r
}

func (r *Request) WithURL(u *url.URL) *Request {
	if u == nil {
		return r.fail(fmt.Errorf("%w: URL must not be nil", ErrInvalidArgument))
	}
	r.url = u
	return r
}

func (r *Request) WithRawURL(rawURL string) *Request {
	if rawURL == "" {
		return r.fail(fmt.Errorf("%w: URL must not be empty", ErrInvalidArgument))
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return r.fail(fmt.Errorf("%w: %s: %w", ErrMalformedURL, rawURL, err))
	}
	return r.WithURL(u)
}

func (r *Request) WithMethod(method Method) *Request {
	if !method.Valid() {
		return r.fail(fmt.Errorf("%w: unsupported method %q", ErrInvalidArgument, method))
	}
	r.method = method
	return r
}

func (r *Request) WithHeader(name, value string) *Request {
	return r.fail(r.SetHeader(name, value))
}

func (r *Request) WithCookie(name, value string) *Request {
	return r.fail(r.SetCookie(name, value))
}

func (r *Request) Timeout() time.Duration {
	return r.timeout
}

// WithTimeout 连接和读取的超时时间，0 表示不限制
func (r *Request) WithTimeout(timeout time.Duration) *Request {
	if timeout < 0 {
		return r.fail(fmt.Errorf("%w: timeout must be >= 0", ErrInvalidArgument))
	}
	r.timeout = timeout
	return r
}

func (r *Request) MaxBodySize() int {
	return r.maxBodySize
}

// WithMaxBodySize 响应体最大读取字节数，0 表示不限制
func (r *Request) WithMaxBodySize(bytes int) *Request {
	if bytes < 0 {
		return r.fail(fmt.Errorf("%w: max size must be >= 0", ErrInvalidArgument))
	}
	r.maxBodySize = bytes
	return r
}

func (r *Request) FollowRedirects() bool {
	return r.followRedirects
}

func (r *Request) WithFollowRedirects(follow bool) *Request {
	r.followRedirects = follow
	return r
}

func (r *Request) MaxRedirects() int {
	return r.maxRedirects
}

func (r *Request) WithMaxRedirects(max int) *Request {
	if max < 0 {
		return r.fail(fmt.Errorf("%w: max redirects must be >= 0", ErrInvalidArgument))
	}
	r.maxRedirects = max
	return r
}

func (r *Request) IgnoreHTTPErrors() bool {
	return r.ignoreHTTPErrors
}

func (r *Request) WithIgnoreHTTPErrors(ignore bool) *Request {
	r.ignoreHTTPErrors = ignore
	return r
}

func (r *Request) IgnoreContentType() bool {
	return r.ignoreContentType
}

func (r *Request) WithIgnoreContentType(ignore bool) *Request {
	r.ignoreContentType = ignore
	return r
}

func (r *Request) ValidateTLSCertificates() bool {
	return r.validateTLS
}

func (r *Request) WithValidateTLSCertificates(validate bool) *Request {
	r.validateTLS = validate
	return r
}

// AddData 追加数据参数，保持插入顺序，同名参数可重复
func (r *Request) AddData(kv *KeyVal) *Request {
	if kv == nil {
		return r.fail(fmt.Errorf("%w: key val must not be nil", ErrInvalidArgument))
	}
	r.data = append(r.data, kv)
	return r
}

func (r *Request) Data() []*KeyVal {
	return r.data
}

// ClearData 清空数据参数，从已有请求派生新请求时使用
func (r *Request) ClearData() *Request {
	r.data = nil
	return r
}

func (r *Request) Parser() parser.Parser {
	return r.parser
}

func (r *Request) WithParser(p parser.Parser) *Request {
	if p == nil {
		return r.fail(fmt.Errorf("%w: parser must not be nil", ErrInvalidArgument))
	}
	r.parser = p
	return r
}

func (r *Request) PostDataCharset() string {
	return r.postDataCharset
}

// WithPostDataCharset 编码数据参数使用的字符集
func (r *Request) WithPostDataCharset(name string) *Request {
	if name == "" {
		return r.fail(fmt.Errorf("%w: charset must not be empty", ErrInvalidArgument))
	}
	if enc, _ := charset.Lookup(name); enc == nil {
		return r.fail(fmt.Errorf("%w: unsupported charset %q", ErrInvalidArgument, name))
	}
	r.postDataCharset = name
	return r
}

// Clone 深拷贝，原型请求可以被多次执行而互不影响
//
// KeyVal 本身被复制，但流参数共享同一个 io.Reader。
func (r *Request) Clone() *Request {
	c := *r
	c.Base = r.Base.clone()
	c.data = make([]*KeyVal, len(r.data))
	for i, kv := range r.data {
		cp := *kv
		c.data[i] = &cp
	}
	return &c
}
