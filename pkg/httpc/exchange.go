package httpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/djskncxm/DuckSoup/pkg/logger"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36 DuckSoup/1.0"
	DefaultAcceptEncoding = "gzip, deflate, br, zstd"
)

// exchange 一次完整的请求/响应过程，可能包含多跳重定向，只操作请求的副本
type exchange struct {
	req       *Request
	transport Transport
	log       *logger.Logger
	payload   *payload
	streams   []*KeyVal
	carried   [][2]string
}

func newExchange(proto *Request, transport Transport, log *logger.Logger) *exchange {
	req := proto.Clone()
	streams := make([]*KeyVal, 0)
	for _, kv := range req.Data() {
		if kv.HasStream() {
			streams = append(streams, kv)
		}
	}
	return &exchange{req: req, transport: transport, log: log, streams: streams}
}

// release 关闭调用方交给我们的上传流，任何退出路径都要调用
func (ex *exchange) release() {
	for _, kv := range ex.streams {
		if err := kv.close(); err != nil {
			ex.log.WithField("key", kv.Key()).Warnf("close data stream: %v", err)
		}
	}
	ex.streams = nil
}

func (ex *exchange) run(ctx context.Context) (*Response, error) {
	defer ex.release()

	var res *Response
	for redirects := 0; ; redirects++ {
		current, next, err := ex.hop(ctx, redirects)
		if err != nil {
			return nil, err
		}
		if next == nil {
			res = current
			break
		}
		if redirects >= ex.req.MaxRedirects() {
			return nil, fmt.Errorf("%w: stopped after %d redirects, next location %s",
				ErrTooManyRedirects, redirects, next.String())
		}
		ex.log.Count("redirects")
		ex.redirect(current, next)
	}

	// 重定向过程中设置的 Cookie 也放进最终响应，最后一跳优先
	for i := len(ex.carried) - 1; i >= 0; i-- {
		if c := ex.carried[i]; !res.HasCookie(c[0]) {
			_ = res.SetCookie(c[0], c[1])
		}
	}

	if !res.IsSuccess() && !ex.req.IgnoreHTTPErrors() {
		return nil, &HTTPStatusError{
			Message:    ErrHTTPStatus.Error(),
			StatusCode: res.StatusCode(),
			URL:        res.URL().String(),
			Response:   res,
		}
	}

	declared, _ := res.Header("Content-Type")
	if declared != "" && !isTextual(declared) && !ex.req.IgnoreContentType() {
		return nil, &UnsupportedMimeTypeError{
			MimeType: declared,
			URL:      res.URL().String(),
			Response: res,
		}
	}
	return res, nil
}

// hop 发出一次请求。需要跟随重定向时返回下一跳地址，此时不读取响应体
func (ex *exchange) hop(ctx context.Context, redirects int) (*Response, *url.URL, error) {
	hctx, cancel := ex.hopContext(ctx)
	defer cancel()

	httpReq, err := ex.build(hctx)
	if err != nil {
		return nil, nil, err
	}
	target := httpReq.URL.String()
	log := ex.log.WithFields(map[string]interface{}{
		"method": httpReq.Method,
		"url":    target,
	})
	ex.log.Count("requests")

	resp, err := ex.transport.RoundTrip(httpReq, ex.req.ValidateTLSCertificates())
	if err != nil {
		return nil, nil, ex.hopError(ctx, hctx, err, target)
	}
	defer resp.Body.Close()
	log.Debugf("status %d", resp.StatusCode)

	res := newResponse(resp, ex.req, redirects)
	if ex.req.FollowRedirects() && isRedirect(resp.StatusCode) {
		if location, ok := res.Header("Location"); ok && location != "" {
			next, err := httpReq.URL.Parse(strings.TrimSpace(location))
			if err != nil {
				return nil, nil, fmt.Errorf("%w: bad redirect location %q: %w", ErrMalformedURL, location, err)
			}
			return res, next, nil
		}
	}

	body, err := decodedBody(resp)
	if err != nil {
		return nil, nil, ex.hopError(ctx, hctx, err, target)
	}
	defer body.Close()
	res.body, err = readBody(body, ex.req.MaxBodySize())
	if err != nil {
		return nil, nil, ex.hopError(ctx, hctx, err, target)
	}
	if stats := ex.log.Stats; stats != nil {
		stats.AddInt("bytes_read", len(res.body))
	}

	contentType := resp.Header.Get("Content-Type")
	res.contentType = contentType
	if contentType == "" {
		res.contentType = sniffContentType(res.body)
	}
	res.charset = resolveCharset(contentType, res.body)
	return res, nil, nil
}

func (ex *exchange) hopContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := ex.req.Timeout(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// hopError 本跳的超时归为 ErrTimeout，调用方取消不算超时
func (ex *exchange) hopError(ctx, hctx context.Context, err error, target string) error {
	if ctx.Err() == nil && errors.Is(hctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s: %w", ErrTimeout, target, ex.req.Timeout(), err)
	}
	return classify(err, target)
}

// build 构建本跳的 *http.Request：编码数据、写入请求头和 Cookie
func (ex *exchange) build(ctx context.Context) (*http.Request, error) {
	req := ex.req
	target, err := validateURL(req.URL())
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Method().HasBody() {
		if ex.payload == nil {
			ex.payload, err = encodeBody(req.Data(), req.PostDataCharset())
			// 请求体已经缓存，上传流可以释放了
			ex.release()
			if err != nil {
				return nil, err
			}
		}
		body = bytes.NewReader(ex.payload.body)
	} else {
		target, err = appendQuery(target, req.Data(), req.PostDataCharset())
		if err != nil {
			return nil, err
		}
	}
	req.url = target

	httpReq, err := http.NewRequestWithContext(ctx, req.Method().String(), target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedURL, target, err)
	}

	// 保留调用方设置的大小写
	req.eachHeader(func(name, value string) {
		if strings.EqualFold(name, "Host") {
			httpReq.Host = value
			return
		}
		httpReq.Header[name] = []string{value}
	})
	if !req.HasHeader("User-Agent") {
		httpReq.Header.Set("User-Agent", DefaultUserAgent)
	}
	if !req.HasHeader("Accept-Encoding") {
		httpReq.Header.Set("Accept-Encoding", DefaultAcceptEncoding)
	}
	if ex.payload != nil && body != nil {
		switch {
		case ex.payload.multipart:
			deleteHeader(httpReq.Header, "Content-Type")
			httpReq.Header.Set("Content-Type", ex.payload.contentType)
		case !req.HasHeader("Content-Type"):
			httpReq.Header.Set("Content-Type", ex.payload.contentType)
		}
	}
	if cookies := req.cookieString(); cookies != "" {
		if existing, ok := req.Header("Cookie"); ok && existing != "" {
			cookies = existing + "; " + cookies
		}
		deleteHeader(httpReq.Header, "Cookie")
		httpReq.Header.Set("Cookie", cookies)
	}
	return httpReq, nil
}

// redirect 按浏览器兼容的语义准备下一跳:
// 303 一律改为无请求体的 GET；301/302 对带请求体的方法改为 GET；307/308 保留方法和请求体
func (ex *exchange) redirect(res *Response, next *url.URL) {
	req := ex.req
	switch code := res.StatusCode(); {
	case code == http.StatusSeeOther:
		ex.downgrade()
	case (code == http.StatusMovedPermanently || code == http.StatusFound) && req.Method().HasBody():
		ex.downgrade()
	}
	if !req.Method().HasBody() {
		// 参数已经在第一跳的 URL 里，以服务器给出的地址为准
		req.data = nil
	}
	req.url = next

	res.eachCookie(func(name, value string) {
		_ = req.SetCookie(name, value)
		ex.carried = append(ex.carried, [2]string{name, value})
	})
	ex.log.WithFields(map[string]interface{}{
		"status":   res.StatusCode(),
		"location": next.String(),
	}).Debug("following redirect")
}

func (ex *exchange) downgrade() {
	ex.req.method = MethodGet
	ex.req.data = nil
	ex.payload = nil
	_ = ex.req.RemoveHeader("Content-Type")
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// validateURL 只允许 http/https，国际化域名转换为 punycode，去掉片段
func validateURL(u *url.URL) (*url.URL, error) {
	if u == nil {
		return nil, fmt.Errorf("%w: URL must be set", ErrMalformedURL)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: only http & https protocols supported: %s", ErrMalformedURL, u.String())
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: URL must have a host: %s", ErrMalformedURL, u.String())
	}

	out := *u
	out.Scheme = scheme
	out.Fragment = ""
	out.RawFragment = ""

	hostname := u.Hostname()
	if net.ParseIP(hostname) == nil && !isASCII(hostname) {
		ascii, err := idna.Lookup.ToASCII(hostname)
		if err != nil {
			return nil, fmt.Errorf("%w: bad host %q: %w", ErrMalformedURL, hostname, err)
		}
		if ascii != hostname {
			out.Host = ascii
			if port := u.Port(); port != "" {
				out.Host = net.JoinHostPort(ascii, port)
			}
		}
	}
	return &out, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func deleteHeader(h http.Header, name string) {
	for k := range h {
		if strings.EqualFold(k, name) {
			delete(h, k)
		}
	}
}
