package middleware

import (
	"errors"

	"github.com/djskncxm/DuckSoup/pkg/httpc"
	"github.com/djskncxm/DuckSoup/pkg/logger"
)

// DefaultHeaders 给没有设置这些请求头的请求补上默认值
type DefaultHeaders map[string]string

func (h DefaultHeaders) ProcessRequest(req *httpc.Request) error {
	for name, value := range h {
		if req.HasHeader(name) {
			continue
		}
		if err := req.SetHeader(name, value); err != nil {
			return err
		}
	}
	return nil
}

// IgnoreStatus 吞掉指定状态码的 HTTPStatusError
type IgnoreStatus []int

func (s IgnoreStatus) ProcessException(_ *httpc.Request, err error) (bool, error) {
	var statusErr *httpc.HTTPStatusError
	if !errors.As(err, &statusErr) {
		return false, nil
	}
	for _, code := range s {
		if statusErr.StatusCode == code {
			return true, nil
		}
	}
	return false, nil
}

// ResponseLogger 记录每个响应
type ResponseLogger struct {
	Log *logger.Logger
}

func (l ResponseLogger) ProcessResponse(res *httpc.Response) error {
	log := l.Log
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	log.WithFields(map[string]interface{}{
		"status":       res.StatusCode(),
		"url":          res.URL().String(),
		"content_type": res.ContentType(),
		"redirects":    res.NumRedirects(),
	}).Info("response")
	return nil
}
