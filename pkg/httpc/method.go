package httpc

import (
	"fmt"
	"strings"
)

// Method HTTP 请求方法
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodPatch  Method = "PATCH"
)

// Methods 全部支持的方法
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch}

// HasBody 该方法是否携带请求体
//
// 数据参数放在 URL 查询串还是请求体，以及重定向时是否降级为 GET，都只经过这里判断
func (m Method) HasBody() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch:
		return true
	default:
		return false
	}
}

func (m Method) String() string {
	return string(m)
}

// Valid 是否为支持的方法
func (m Method) Valid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// ParseMethod 解析方法名，大小写不敏感
func ParseMethod(name string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(name)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: unsupported method %q", ErrInvalidArgument, name)
	}
	return m, nil
}
