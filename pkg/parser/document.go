package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Document 解析后的文档
type Document struct {
	Root    *html.Node
	BaseURI string
	Charset string
	parser  Parser
}

func newDocument(root *html.Node, baseURI string, p Parser) *Document {
	return &Document{Root: root, BaseURI: baseURI, parser: p}
}

// Parser 生成该文档的解析器
func (d *Document) Parser() Parser {
	return d.parser
}

// XPath 使用XPath表达式查询
func (d *Document) XPath(expr string) ([]*html.Node, error) {
	return htmlquery.QueryAll(d.Root, expr)
}

// XPathOne 第一个匹配的节点，没有则为 nil
func (d *Document) XPathOne(expr string) (*html.Node, error) {
	return htmlquery.Query(d.Root, expr)
}

// Select 使用CSS选择器查询
func (d *Document) Select(selector string) ([]*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid CSS selector: %w", err)
	}
	return cascadia.QueryAll(d.Root, sel), nil
}

// Find 返回 goquery 选择集，便于链式遍历
func (d *Document) Find(selector string) *goquery.Selection {
	return goquery.NewDocumentFromNode(d.Root).Find(selector)
}

func (d *Document) Title() string {
	n := htmlquery.FindOne(d.Root, "//title")
	if n == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(n))
}

func (d *Document) Body() *html.Node {
	return htmlquery.FindOne(d.Root, "//body")
}

// Text 文档的全部文本
func (d *Document) Text() string {
	return strings.TrimSpace(htmlquery.InnerText(d.Root))
}

// HTML 序列化整个文档
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.Root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// AbsURL 把节点属性里的相对地址解析为绝对地址，优先使用文档中的 <base href>
func (d *Document) AbsURL(n *html.Node, attr string) string {
	ref := strings.TrimSpace(htmlquery.SelectAttr(n, attr))
	if ref == "" {
		return ""
	}
	base, err := url.Parse(d.baseHref())
	if err != nil {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		return ""
	}
	return u.String()
}

func (d *Document) baseHref() string {
	if n := htmlquery.FindOne(d.Root, "//base[@href]"); n != nil {
		href := htmlquery.SelectAttr(n, "href")
		if base, err := url.Parse(d.BaseURI); err == nil {
			if u, err := base.Parse(href); err == nil {
				return u.String()
			}
		}
	}
	return d.BaseURI
}
