// Package soup 常用入口：抓取、解析和清理 HTML
package soup

import (
	"bytes"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/djskncxm/DuckSoup/pkg/httpc"
	"github.com/djskncxm/DuckSoup/pkg/parser"
)

// Connect 创建到 rawURL 的连接，URL 错误在执行时返回
func Connect(rawURL string) *httpc.Connection {
	return httpc.Connect(rawURL)
}

// Parse 解析 HTML 文本，baseURI 用于解析相对地址
func Parse(htmlText, baseURI string) (*parser.Document, error) {
	return parser.Parse([]byte(htmlText), "UTF-8", baseURI, parser.HTML)
}

func ParseBodyFragment(bodyHTML, baseURI string) (*parser.Document, error) {
	return parser.ParseBodyFragment(bodyHTML, baseURI)
}

// Clean 按策略清理不可信的 HTML 片段，policy 为空时使用 UGCPolicy。
// baseURI 不为空时 href 和 src 先转换为绝对地址。
func Clean(bodyHTML, baseURI string, policy *bluemonday.Policy) (string, error) {
	if policy == nil {
		policy = bluemonday.UGCPolicy()
	}
	doc, err := parser.ParseBodyFragment(bodyHTML, baseURI)
	if err != nil {
		return "", err
	}
	if baseURI != "" {
		absolutize(doc)
	}
	inner, err := innerHTML(doc.Body())
	if err != nil {
		return "", err
	}
	return policy.Sanitize(inner), nil
}

// IsValid 清理时没有删除任何元素或属性则返回 true，策略额外加上的属性不算
func IsValid(bodyHTML string, policy *bluemonday.Policy) bool {
	if policy == nil {
		policy = bluemonday.UGCPolicy()
	}
	dirty, err := parser.ParseBodyFragment(bodyHTML, "")
	if err != nil {
		return false
	}
	inner, err := innerHTML(dirty.Body())
	if err != nil {
		return false
	}
	clean, err := parser.ParseBodyFragment(policy.Sanitize(inner), "")
	if err != nil {
		return false
	}

	before := elements(dirty.Body())
	after := elements(clean.Body())
	if len(before) != len(after) {
		return false
	}
	for i, n := range before {
		if n.Data != after[i].Data {
			return false
		}
		for _, attr := range n.Attr {
			if v, ok := attrValue(after[i], attr.Key); !ok || v != attr.Val {
				return false
			}
		}
	}
	return true
}

func absolutize(doc *parser.Document) {
	for _, attr := range []string{"href", "src"} {
		for _, n := range htmlquery.Find(doc.Body(), "//*[@"+attr+"]") {
			abs := doc.AbsURL(n, attr)
			if abs == "" {
				continue
			}
			for i := range n.Attr {
				if strings.EqualFold(n.Attr[i].Key, attr) {
					n.Attr[i].Val = abs
				}
			}
		}
	}
}

func innerHTML(n *html.Node) (string, error) {
	if n == nil {
		return "", nil
	}
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// elements 先序遍历的元素节点，不含 n 本身
func elements(n *html.Node) []*html.Node {
	var out []*html.Node
	if n == nil {
		return out
	}
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
