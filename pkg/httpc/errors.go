package httpc

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrMalformedURL        = errors.New("malformed URL")
	ErrTimeout             = errors.New("timeout")
	ErrTooManyRedirects    = errors.New("too many redirects")
	ErrHTTPStatus          = errors.New("HTTP error fetching URL")
	ErrUnsupportedMimeType = errors.New("unhandled content type")
	ErrTransport           = errors.New("transport error")
)

// HTTPStatusError 非 2xx 响应，且未开启 IgnoreHTTPErrors
//
// Response 已经读完响应体，可以用来查看错误页
type HTTPStatusError struct {
	Message    string
	StatusCode int
	URL        string
	Response   *Response
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s. Status=%d, URL=%s", e.Message, e.StatusCode, e.URL)
}

func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// UnsupportedMimeTypeError 响应的 Content-Type 不是文本或标记语言
type UnsupportedMimeTypeError struct {
	MimeType string
	URL      string
	Response *Response
}

func (e *UnsupportedMimeTypeError) Error() string {
	return fmt.Sprintf("%s. Mimetype=%s, URL=%s", ErrUnsupportedMimeType.Error(), e.MimeType, e.URL)
}

func (e *UnsupportedMimeTypeError) Is(target error) bool {
	return target == ErrUnsupportedMimeType
}

// classify 把传输层错误归类为 ErrTimeout 或 ErrTransport，保留原始错误
func classify(err error, rawURL string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransport) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, rawURL, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, rawURL, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrTransport, rawURL, err)
}
