package httpc

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html/charset"
)

const (
	formContentType = "application/x-www-form-urlencoded"
	boundaryPrefix  = "DuckSoupBoundary"
)

// payload 编码后的请求体，整个交换过程只编码一次，保留方法的重定向会重发
type payload struct {
	body        []byte
	contentType string
	multipart   bool
}

// needsMultipart 只要有一个流参数就用 multipart/form-data
func needsMultipart(data []*KeyVal) bool {
	for _, kv := range data {
		if kv.HasStream() {
			return true
		}
	}
	return false
}

// encodeForm 按插入顺序编码为 k=v&k=v，空格编码为 +
func encodeForm(data []*KeyVal, charsetName string) (string, error) {
	escape, err := formEscaper(charsetName)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, kv := range data {
		k, err := escape(kv.Key())
		if err != nil {
			return "", err
		}
		v, err := escape(kv.Value())
		if err != nil {
			return "", err
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v)
	}
	return sb.String(), nil
}

func formEscaper(charsetName string) (func(string) (string, error), error) {
	enc, _ := charset.Lookup(charsetName)
	if enc == nil {
		return nil, fmt.Errorf("%w: unsupported charset %q", ErrInvalidArgument, charsetName)
	}
	return func(s string) (string, error) {
		raw, err := enc.NewEncoder().String(s)
		if err != nil {
			return "", fmt.Errorf("%w: cannot encode %q as %s: %w", ErrInvalidArgument, s, charsetName, err)
		}
		return url.QueryEscape(raw), nil
	}, nil
}

// appendQuery 把参数追加到 URL 已有的查询串之后
func appendQuery(u *url.URL, data []*KeyVal, charsetName string) (*url.URL, error) {
	if len(data) == 0 {
		return u, nil
	}
	query, err := encodeForm(data, charsetName)
	if err != nil {
		return nil, err
	}
	out := *u
	if out.RawQuery != "" {
		out.RawQuery += "&" + query
	} else {
		out.RawQuery = query
	}
	out.ForceQuery = false
	return &out, nil
}

// encodeBody 有请求体的方法：全部普通值编码为表单，否则为 multipart
func encodeBody(data []*KeyVal, charsetName string) (*payload, error) {
	if needsMultipart(data) {
		return encodeMultipart(data)
	}
	form, err := encodeForm(data, charsetName)
	if err != nil {
		return nil, err
	}
	return &payload{
		body:        []byte(form),
		contentType: formContentType + "; charset=" + charsetName,
	}, nil
}

type part struct {
	kv      *KeyVal
	content []byte
}

func encodeMultipart(data []*KeyVal) (*payload, error) {
	parts := make([]part, 0, len(data))
	for _, kv := range data {
		p := part{kv: kv}
		if kv.HasStream() {
			content, err := io.ReadAll(kv.Stream())
			if err != nil {
				return nil, fmt.Errorf("read data stream %q: %w", kv.Key(), err)
			}
			p.content = content
		} else {
			p.content = []byte(kv.Value())
		}
		parts = append(parts, p)
	}

	boundary := newBoundary(parts)
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.SetBoundary(boundary); err != nil {
		return nil, err
	}

	for _, p := range parts {
		if p.kv.HasStream() {
			w, err := writer.CreateFormFile(p.kv.Key(), p.kv.Filename())
			if err != nil {
				return nil, err
			}
			if _, err := w.Write(p.content); err != nil {
				return nil, err
			}
			continue
		}
		if err := writer.WriteField(p.kv.Key(), p.kv.Value()); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	return &payload{
		body:        body.Bytes(),
		contentType: writer.FormDataContentType(),
		multipart:   true,
	}, nil
}

// newBoundary 生成不出现在任何 part 内容中的分隔符
func newBoundary(parts []part) string {
	for {
		boundary := boundaryPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
		marker := []byte("--" + boundary)
		collides := false
		for _, p := range parts {
			if bytes.Contains(p.content, marker) {
				collides = true
				break
			}
		}
		if !collides {
			return boundary
		}
	}
}
