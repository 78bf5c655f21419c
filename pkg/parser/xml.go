package parser

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// xmlParser 不套用 HTML 规则，直接按 XML 标记构建节点树，
// 生成的树和 HTML 解析结果是同一种 *html.Node，可以共用查询方法
type xmlParser struct{}

func (xmlParser) Name() string { return "xml" }

func (xmlParser) Parse(r io.Reader, baseURI string) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	// 输入已经解码为 UTF-8，声明的 encoding 只需原样放行
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) {
		return in, nil
	}

	root := &html.Node{Type: html.DocumentNode}
	stack := []*html.Node{root}
	top := func() *html.Node { return stack[len(stack)-1] }

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &html.Node{Type: html.ElementNode, Data: qualified(t.Name)}
			for _, a := range t.Attr {
				n.Attr = append(n.Attr, html.Attribute{Key: qualified(a.Name), Val: a.Value})
			}
			top().AppendChild(n)
			stack = append(stack, n)
		case xml.EndElement:
			name := qualified(t.Name)
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].Data == name {
					stack = stack[:i]
					break
				}
			}
		case xml.CharData:
			top().AppendChild(&html.Node{Type: html.TextNode, Data: string(t)})
		case xml.Comment:
			top().AppendChild(&html.Node{Type: html.CommentNode, Data: string(t)})
		case xml.Directive:
			d := strings.TrimSpace(string(t))
			if len(d) > 7 && strings.EqualFold(d[:7], "DOCTYPE") {
				top().AppendChild(&html.Node{Type: html.DoctypeNode, Data: strings.TrimSpace(d[7:])})
			}
		}
	}
	return newDocument(root, baseURI, XML), nil
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}
