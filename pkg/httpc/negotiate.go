package httpc

import (
	"bufio"
	"errors"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/djskncxm/DuckSoup/pkg/parser"
)

const defaultCharset = "UTF-8"

var xmlContentType = regexp.MustCompile(`^(application|text)/([\w.+-]*\+)?xml$`)

// mediaType Content-Type 去掉参数后的小写类型
func mediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func isXMLType(contentType string) bool {
	return xmlContentType.MatchString(mediaType(contentType))
}

// isTextual 可以交给文档解析器的类型
func isTextual(contentType string) bool {
	return strings.HasPrefix(mediaType(contentType), "text/") || isXMLType(contentType)
}

// resolveCharset Content-Type 的 charset 参数优先，其次内容嗅探，最后 UTF-8
func resolveCharset(contentType string, body []byte) string {
	if cs := parser.CharsetFromContentType(contentType); cs != "" {
		return cs
	}
	if contentType == "" || isTextual(contentType) {
		if cs := parser.SniffCharset(body); cs != "" {
			return cs
		}
	}
	return defaultCharset
}

// sniffContentType 服务器没有声明类型时根据内容猜测，只用于展示和解析器选择
func sniffContentType(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	return mimetype.Detect(body).String()
}

// decodedBody 按 Content-Encoding 解压响应体
func decodedBody(resp *http.Response) (io.ReadCloser, error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(resp.Body)
		if errors.Is(err, io.EOF) {
			return io.NopCloser(strings.NewReader("")), nil
		}
		if err != nil {
			return nil, err
		}
		return r, nil
	case "deflate":
		return inflate(resp.Body)
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	case "zstd":
		d, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}

// inflate deflate 应当是 zlib 格式，但也有服务器发送裸 deflate 流
func inflate(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if errors.Is(err, io.EOF) && len(head) == 0 {
		return io.NopCloser(strings.NewReader("")), nil
	}
	if len(head) == 2 && head[0]&0x0f == 8 && (uint16(head[0])<<8|uint16(head[1]))%31 == 0 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

// readBody 读取到 max 字节为止，max 为 0 时不限制；超出部分直接丢弃
func readBody(r io.Reader, max int) ([]byte, error) {
	if max > 0 {
		r = io.LimitReader(r, int64(max))
	}
	return io.ReadAll(r)
}
