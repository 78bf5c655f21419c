package parser

import (
	"bytes"
	"mime"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html/charset"
)

// 只在文档开头寻找字符集声明
const sniffLimit = 5000

var (
	charsetParam = regexp.MustCompile(`(?i)\bcharset=\s*["']?([^\s,;"']*)`)
	xmlEncoding  = regexp.MustCompile(`^\s*<\?xml[^>]*\bencoding\s*=\s*["']([^"']+)["']`)
)

// CharsetFromContentType 取 Content-Type 中的 charset 参数，不支持的字符集返回空串
func CharsetFromContentType(contentType string) string {
	var name string
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		name = params["charset"]
	} else if m := charsetParam.FindStringSubmatch(contentType); m != nil {
		name = m[1]
	}
	return normalizeCharset(name)
}

// SniffCharset 从 BOM、<meta charset>、http-equiv 或 XML 声明推断字符集，找不到返回空串
func SniffCharset(body []byte) string {
	switch {
	case bytes.HasPrefix(body, utf8BOM):
		return "UTF-8"
	case bytes.HasPrefix(body, []byte{0xFE, 0xFF}):
		return "UTF-16BE"
	case bytes.HasPrefix(body, []byte{0xFF, 0xFE}):
		return "UTF-16LE"
	}

	head := body
	if len(head) > sniffLimit {
		head = head[:sniffLimit]
	}
	if m := xmlEncoding.FindSubmatch(head); m != nil {
		return normalizeCharset(string(m[1]))
	}

	root, err := htmlquery.Parse(bytes.NewReader(head))
	if err != nil {
		return ""
	}
	for _, meta := range htmlquery.Find(root, "//meta") {
		if cs := htmlquery.SelectAttr(meta, "charset"); cs != "" {
			if name := normalizeCharset(cs); name != "" {
				return name
			}
			continue
		}
		if strings.EqualFold(htmlquery.SelectAttr(meta, "http-equiv"), "content-type") {
			if name := CharsetFromContentType(htmlquery.SelectAttr(meta, "content")); name != "" {
				return name
			}
		}
	}
	return ""
}

func normalizeCharset(name string) string {
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	if name == "" {
		return ""
	}
	if enc, _ := charset.Lookup(name); enc == nil {
		return ""
	}
	return strings.ToUpper(name)
}
