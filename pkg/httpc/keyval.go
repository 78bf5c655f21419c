package httpc

import (
	"fmt"
	"io"
)

// KeyVal 单个请求数据参数：普通值或者带文件名的字节流（上传）
type KeyVal struct {
	key       string
	value     string
	filename  string
	stream    io.Reader
	hasStream bool
}

// NewKeyVal 创建普通值参数
func NewKeyVal(key, value string) (*KeyVal, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: data key must not be empty", ErrInvalidArgument)
	}
	return &KeyVal{key: key, value: value}, nil
}

// NewStreamKeyVal 创建文件上传参数，value 为文件名
func NewStreamKeyVal(key, filename string, stream io.Reader) (*KeyVal, error) {
	kv, err := NewKeyVal(key, "")
	if err != nil {
		return nil, err
	}
	if err := kv.SetStream(filename, stream); err != nil {
		return nil, err
	}
	return kv, nil
}

func (kv *KeyVal) Key() string {
	return kv.key
}

// Value 普通值；流参数时为文件名
func (kv *KeyVal) Value() string {
	if kv.hasStream {
		return kv.filename
	}
	return kv.value
}

// SetValue 切换为普通值
func (kv *KeyVal) SetValue(value string) *KeyVal {
	kv.value = value
	kv.hasStream = false
	kv.stream = nil
	kv.filename = ""
	return kv
}

// SetStream 切换为流参数
func (kv *KeyVal) SetStream(filename string, stream io.Reader) error {
	if stream == nil {
		return fmt.Errorf("%w: data stream for %q must not be nil", ErrInvalidArgument, kv.key)
	}
	kv.filename = filename
	kv.stream = stream
	kv.hasStream = true
	kv.value = ""
	return nil
}

func (kv *KeyVal) Filename() string {
	return kv.filename
}

func (kv *KeyVal) Stream() io.Reader {
	return kv.stream
}

func (kv *KeyVal) HasStream() bool {
	return kv.hasStream
}

// close 释放流（如果实现了 io.Closer）
func (kv *KeyVal) close() error {
	if !kv.hasStream {
		return nil
	}
	if c, ok := kv.stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (kv *KeyVal) String() string {
	return kv.key + "=" + kv.Value()
}
