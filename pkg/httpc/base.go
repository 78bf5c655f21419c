package httpc

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

type header struct {
	name  string
	value string
}

// Base 请求和响应共用的部分：URL、方法、请求头、Cookie
//
// 简化的请求头模型，每个名字只有一个值。请求头按小写名字索引，同时保留原始大小写；
// Cookie 名字大小写敏感。两者都按插入顺序遍历。
type Base struct {
	url     *url.URL
	method  Method
	headers *linkedhashmap.Map
	cookies *linkedhashmap.Map
}

func newBase() Base {
	return Base{
		method:  MethodGet,
		headers: linkedhashmap.New(),
		cookies: linkedhashmap.New(),
	}
}

func (b *Base) URL() *url.URL {
	return b.url
}

func (b *Base) Method() Method {
	return b.method
}

// Header 获取请求头 (名字大小写不敏感)
func (b *Base) Header(name string) (string, bool) {
	v, found := b.headers.Get(strings.ToLower(name))
	if !found {
		return "", false
	}
	return v.(header).value, true
}

// SetHeader 设置请求头，覆盖已有的同名（大小写不敏感）请求头
func (b *Base) SetHeader(name, value string) error {
	if name == "" {
		return fmt.Errorf("%w: header name must not be empty", ErrInvalidArgument)
	}
	key := strings.ToLower(name)
	// 先删除再插入，避免同时存在 Accept-Encoding 和 accept-encoding
	b.headers.Remove(key)
	b.headers.Put(key, header{name: name, value: value})
	return nil
}

func (b *Base) HasHeader(name string) bool {
	_, ok := b.Header(name)
	return ok
}

// HasHeaderWithValue 请求头存在且值相等 (值大小写不敏感)
func (b *Base) HasHeaderWithValue(name, value string) bool {
	v, ok := b.Header(name)
	return ok && strings.EqualFold(v, value)
}

func (b *Base) RemoveHeader(name string) error {
	if name == "" {
		return fmt.Errorf("%w: header name must not be empty", ErrInvalidArgument)
	}
	b.headers.Remove(strings.ToLower(name))
	return nil
}

// Headers 所有请求头的副本，键为原始大小写
func (b *Base) Headers() map[string]string {
	out := make(map[string]string, b.headers.Size())
	b.eachHeader(func(name, value string) {
		out[name] = value
	})
	return out
}

func (b *Base) eachHeader(fn func(name, value string)) {
	it := b.headers.Iterator()
	for it.Next() {
		h := it.Value().(header)
		fn(h.name, h.value)
	}
}

func (b *Base) Cookie(name string) (string, bool) {
	v, found := b.cookies.Get(name)
	if !found {
		return "", false
	}
	return v.(string), true
}

func (b *Base) SetCookie(name, value string) error {
	if name == "" {
		return fmt.Errorf("%w: cookie name must not be empty", ErrInvalidArgument)
	}
	b.cookies.Put(name, value)
	return nil
}

func (b *Base) HasCookie(name string) bool {
	_, found := b.cookies.Get(name)
	return found
}

func (b *Base) RemoveCookie(name string) error {
	if name == "" {
		return fmt.Errorf("%w: cookie name must not be empty", ErrInvalidArgument)
	}
	b.cookies.Remove(name)
	return nil
}

// Cookies 所有 Cookie 的副本
func (b *Base) Cookies() map[string]string {
	out := make(map[string]string, b.cookies.Size())
	b.eachCookie(func(name, value string) {
		out[name] = value
	})
	return out
}

func (b *Base) eachCookie(fn func(name, value string)) {
	it := b.cookies.Iterator()
	for it.Next() {
		fn(it.Key().(string), it.Value().(string))
	}
}

// cookieString 序列化为 Cookie 请求头: name=value; name=value
func (b *Base) cookieString() string {
	var sb strings.Builder
	b.eachCookie(func(name, value string) {
		if sb.Len() > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(value)
	})
	return sb.String()
}

func (b *Base) clone() Base {
	c := newBase()
	c.method = b.method
	if b.url != nil {
		u := *b.url
		if b.url.User != nil {
			user := *b.url.User
			u.User = &user
		}
		c.url = &u
	}
	b.eachHeader(func(name, value string) {
		c.headers.Put(strings.ToLower(name), header{name: name, value: value})
	})
	b.eachCookie(func(name, value string) {
		c.cookies.Put(name, value)
	})
	return c
}

// SortedKeys map 的键按字典序排列，用于把 map 按稳定顺序写入有序存储
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
