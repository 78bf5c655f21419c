package setting

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/djskncxm/DuckSoup/pkg/httpc"
	"github.com/djskncxm/DuckSoup/pkg/logger"
	"github.com/djskncxm/DuckSoup/pkg/parser"
)

// Setting YAML 配置。布尔值用指针区分未设置和 false
type Setting struct {
	Connection struct {
		UserAgent         string `yaml:"UserAgent"`
		Timeout           *int   `yaml:"Timeout"` // 毫秒
		MaxBodySize       *int   `yaml:"MaxBodySize"`
		FollowRedirects   *bool  `yaml:"FollowRedirects"`
		MaxRedirects      *int   `yaml:"MaxRedirects"`
		IgnoreHttpErrors  bool   `yaml:"IgnoreHttpErrors"`
		IgnoreContentType bool   `yaml:"IgnoreContentType"`
		ValidateTLS       *bool  `yaml:"ValidateTLS"`
		PostDataCharset   string `yaml:"PostDataCharset"`
		Parser            string `yaml:"Parser"`
	} `yaml:"Connection"`
	Headers map[string]string `yaml:"Headers"`
	Cookies map[string]string `yaml:"Cookies"`
	Log     struct {
		LogLevel  string `yaml:"LogLevel"`
		LogFormat string `yaml:"LogFormat"`
		LogFile   string `yaml:"LogFile"`
	} `yaml:"Log"`
	Crawler struct {
		Worker    int     `yaml:"Worker"`
		Delay     int     `yaml:"Delay"` // 毫秒
		RateLimit float64 `yaml:"RateLimit"`
	} `yaml:"Crawler"`
}

// Load 读取 YAML 配置文件
func Load(path string) (*Setting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Setting, error) {
	var s Setting
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &s, nil
}

// Prototype 按配置构建原型请求，未设置的项使用默认值
func (s *Setting) Prototype() (*httpc.Request, error) {
	c := s.Connection
	req := httpc.NewRequest()
	if c.UserAgent != "" {
		req.WithHeader("User-Agent", c.UserAgent)
	}
	if c.Timeout != nil {
		req.WithTimeout(time.Duration(*c.Timeout) * time.Millisecond)
	}
	if c.MaxBodySize != nil {
		req.WithMaxBodySize(*c.MaxBodySize)
	}
	if c.FollowRedirects != nil {
		req.WithFollowRedirects(*c.FollowRedirects)
	}
	if c.MaxRedirects != nil {
		req.WithMaxRedirects(*c.MaxRedirects)
	}
	if c.ValidateTLS != nil {
		req.WithValidateTLSCertificates(*c.ValidateTLS)
	}
	if c.PostDataCharset != "" {
		req.WithPostDataCharset(c.PostDataCharset)
	}
	if c.Parser != "" {
		p, err := parser.Lookup(c.Parser)
		if err != nil {
			return nil, err
		}
		req.WithParser(p)
	}
	req.WithIgnoreHTTPErrors(c.IgnoreHttpErrors).
		WithIgnoreContentType(c.IgnoreContentType)
	for _, name := range httpc.SortedKeys(s.Headers) {
		req.WithHeader(name, s.Headers[name])
	}
	for _, name := range httpc.SortedKeys(s.Cookies) {
		req.WithCookie(name, s.Cookies[name])
	}
	if err := req.Err(); err != nil {
		return nil, err
	}
	return req, nil
}

// LogConfig 日志配置，LogFile 不为空时同时写文件
func (s *Setting) LogConfig() *logger.LogConfig {
	cfg := logger.DefaultLogConfig()
	if s.Log.LogLevel != "" {
		cfg.LogLevel = s.Log.LogLevel
	}
	if s.Log.LogFormat != "" {
		cfg.LogFormat = s.Log.LogFormat
	}
	if s.Log.LogFile != "" {
		cfg.EnableFile = true
		cfg.FilePath = filepath.Dir(s.Log.LogFile)
		cfg.FileName = filepath.Base(s.Log.LogFile)
	}
	return cfg
}

// SettingsManager 扁平化的配置，键为点分路径，例如 Crawler.Worker
type SettingsManager struct {
	mu       sync.RWMutex
	Settings map[string]string
}

func NewSettingsManager() *SettingsManager {
	return &SettingsManager{
		Settings: make(map[string]string),
	}
}

func (sm *SettingsManager) GetSetting(key string) (string, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	val, ok := sm.Settings[key]
	return val, ok
}

func (sm *SettingsManager) SetSetting(key, value string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.Settings[key] = value
}

func (sm *SettingsManager) GetInt(key string, defaultVal int) int {
	val, ok := sm.GetSetting(key)
	if !ok {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

func (sm *SettingsManager) GetFloat(key string, defaultVal float64) float64 {
	val, ok := sm.GetSetting(key)
	if !ok {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func (sm *SettingsManager) GetBool(key string, defaultVal bool) bool {
	val, ok := sm.GetSetting(key)
	if !ok {
		return defaultVal
	}
	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return boolVal
}

// LoadFromSetting 递归加载结构体到 map[string]string，未设置的指针和 map 跳过
func (sm *SettingsManager) LoadFromSetting(s interface{}) {
	sm.loadStruct(reflect.ValueOf(s), "")
}

func (sm *SettingsManager) loadStruct(v reflect.Value, prefix string) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		val := v.Field(i)

		key := field.Name
		if prefix != "" {
			key = prefix + "." + key
		}
		sm.loadValue(val, key)
	}
}

func (sm *SettingsManager) loadValue(val reflect.Value, key string) {
	switch val.Kind() {
	case reflect.Ptr:
		if !val.IsNil() {
			sm.loadValue(val.Elem(), key)
		}
	case reflect.Struct:
		sm.loadStruct(val, key)
	case reflect.Map:
		iter := val.MapRange()
		for iter.Next() {
			sm.SetSetting(key+"."+fmt.Sprint(iter.Key().Interface()), fmt.Sprint(iter.Value().Interface()))
		}
	case reflect.String:
		sm.SetSetting(key, val.String())
	case reflect.Bool:
		sm.SetSetting(key, strconv.FormatBool(val.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sm.SetSetting(key, strconv.FormatInt(val.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		sm.SetSetting(key, strconv.FormatUint(val.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		sm.SetSetting(key, strconv.FormatFloat(val.Float(), 'f', -1, 64))
	default:
		sm.SetSetting(key, fmt.Sprintf("%v", val.Interface()))
	}
}
