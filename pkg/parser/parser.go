// Package parser 文档解析的边界：把响应字节、字符集和来源 URL 交给 HTML 或 XML 解析器，
// 得到可以用 XPath、CSS 选择器查询的文档树。
package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// Parser 把 UTF-8 文本解析为文档树
type Parser interface {
	Name() string
	Parse(r io.Reader, baseURI string) (*Document, error)
}

var (
	HTML Parser = htmlParser{}
	XML  Parser = xmlParser{}
)

// Lookup 按名字查找解析器: html 或 xml
func Lookup(name string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "html":
		return HTML, nil
	case "xml":
		return XML, nil
	default:
		return nil, fmt.Errorf("unknown parser %q", name)
	}
}

type htmlParser struct{}

func (htmlParser) Name() string { return "html" }

func (htmlParser) Parse(r io.Reader, baseURI string) (*Document, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, err
	}
	return newDocument(root, baseURI, HTML), nil
}

// Parse 按字符集解码字节后解析
func Parse(body []byte, charsetName, baseURI string, p Parser) (*Document, error) {
	if p == nil {
		p = HTML
	}
	doc, err := p.Parse(strings.NewReader(Decode(body, charsetName)), baseURI)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", baseURI, err)
	}
	doc.Charset = charsetName
	return doc, nil
}

// ParseBodyFragment 把 HTML 片段当作 body 的内容解析
func ParseBodyFragment(bodyHTML, baseURI string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(""))
	if err != nil {
		return nil, err
	}
	body := htmlquery.FindOne(root, "//body")
	nodes, err := html.ParseFragment(strings.NewReader(bodyHTML), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return newDocument(root, baseURI, HTML), nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode 用给定字符集把字节解码为字符串，未知字符集按 UTF-8 处理
func Decode(body []byte, charsetName string) string {
	enc, name := charset.Lookup(charsetName)
	if enc == nil || name == "utf-8" {
		return string(bytes.TrimPrefix(body, utf8BOM))
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
