package httpc

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/djskncxm/DuckSoup/pkg/parser"
)

// Response 一次交换的结果
//
// 执行完成后不可变，只有解码后的文本和解析后的文档会在第一次使用时计算并缓存。
type Response struct {
	Base

	statusCode    int
	statusMessage string
	charset       string
	contentType   string
	body          []byte
	numRedirects  int
	req           *Request

	// 内部状态
	textOnce sync.Once
	text     string
	docOnce  sync.Once
	doc      *parser.Document
	docErr   error
}

// newResponse 由服务器的响应头构建，不含响应体
func newResponse(resp *http.Response, req *Request, numRedirects int) *Response {
	res := &Response{
		Base:          newBase(),
		statusCode:    resp.StatusCode,
		statusMessage: statusMessage(resp),
		numRedirects:  numRedirects,
		req:           req,
	}
	res.url = req.URL()
	res.method = req.Method()

	for name, values := range resp.Header {
		if len(values) == 0 {
			continue
		}
		if name == "Set-Cookie" {
			// Set-Cookie 的 Expires 里有逗号，不能合并
			_ = res.SetHeader(name, values[0])
			continue
		}
		_ = res.SetHeader(name, strings.Join(values, ", "))
	}
	// 简化的 Cookie 模型，忽略 path、domain、expires
	for _, c := range resp.Cookies() {
		_ = res.SetCookie(c.Name, c.Value)
	}
	return res
}

func statusMessage(resp *http.Response) string {
	msg := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}

func (r *Response) StatusCode() int {
	return r.statusCode
}

func (r *Response) StatusMessage() string {
	return r.statusMessage
}

// Charset 解析出的字符集
func (r *Response) Charset() string {
	return r.charset
}

func (r *Response) ContentType() string {
	return r.contentType
}

// NumRedirects 跟随的重定向次数
func (r *Response) NumRedirects() int {
	return r.numRedirects
}

// Request 实际发出最后一跳的请求（执行时的副本，不是调用方的原型）
func (r *Response) Request() *Request {
	return r.req
}

// Body 按字符集解码后的响应体，第一次调用后缓存
func (r *Response) Body() string {
	r.textOnce.Do(func() {
		r.text = parser.Decode(r.body, r.charset)
	})
	return r.text
}

// BodyAsBytes 原始的（已截断的）响应体
func (r *Response) BodyAsBytes() []byte {
	return r.body
}

// Parse 交给文档解析器，结果缓存
//
// Content-Type 为 XML 时使用 XML 解析器，否则使用请求配置的解析器。
func (r *Response) Parse() (*parser.Document, error) {
	r.docOnce.Do(func() {
		p := parser.HTML
		if r.req != nil && r.req.Parser() != nil {
			p = r.req.Parser()
		}
		if isXMLType(r.contentType) {
			p = parser.XML
		}
		baseURI := ""
		if r.url != nil {
			baseURI = r.url.String()
		}
		r.doc, r.docErr = parser.Parse(r.body, r.charset, baseURI, p)
	})
	return r.doc, r.docErr
}

// IsSuccess 2xx
func (r *Response) IsSuccess() bool {
	return r.statusCode >= 200 && r.statusCode < 300
}
