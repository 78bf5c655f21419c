package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig 日志配置结构体
type LogConfig struct {
	AppName   string
	LogLevel  string
	LogFormat string // "text" 或 "json"

	// 控制台输出 (标准错误)
	EnableConsole bool
	ConsoleColor  bool
	Output        io.Writer // 不为空时代替标准错误

	// 文件输出
	EnableFile bool
	FilePath   string
	FileName   string
	MaxSize    int  // MB
	MaxBackups int  // 最大备份数
	MaxAge     int  // 保留天数
	Compress   bool // 是否压缩备份

	EnableStats bool
}

// DefaultLogConfig 默认配置：只输出 warn 以上到控制台，开启统计
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		AppName:       "ducksoup",
		LogLevel:      "warn",
		LogFormat:     "text",
		EnableConsole: true,
		EnableStats:   true,
		FilePath:      "./logs",
		MaxSize:       100,
		MaxBackups:    10,
		MaxAge:        30,
		Compress:      true,
	}
}

// Logger 带字段上下文和统计的日志记录器
type Logger struct {
	name     string
	logger   *logrus.Logger
	fileHook *lumberjack.Logger
	config   *LogConfig
	Stats    *Stats
	fields   logrus.Fields
}

// NewLogger 创建新的日志记录器，config 为空时使用默认配置
func NewLogger(config *LogConfig) (*Logger, error) {
	if config == nil {
		config = DefaultLogConfig()
	}

	logger := logrus.New()
	logger.SetLevel(ParseLogLevel(config.LogLevel))
	logger.SetFormatter(newFormatter(config))

	l := &Logger{
		name:   config.AppName,
		logger: logger,
		config: config,
		fields: logrus.Fields{},
	}
	if config.EnableStats {
		l.Stats = NewStats()
		l.Stats.Set("app_name", config.AppName)
	}

	out, err := l.outputs(config)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(out)
	return l, nil
}

const timeLayout = "2006-01-02 15:04:05"

func newFormatter(config *LogConfig) logrus.Formatter {
	if strings.EqualFold(config.LogFormat, "json") {
		return &logrus.JSONFormatter{TimestampFormat: timeLayout}
	}
	return &logrus.TextFormatter{
		TimestampFormat: timeLayout,
		FullTimestamp:   true,
		ForceColors:     config.ConsoleColor,
		PadLevelText:    true,
	}
}

// outputs 控制台和滚动文件，都关闭时丢弃输出
func (l *Logger) outputs(config *LogConfig) (io.Writer, error) {
	var writers []io.Writer
	if config.EnableConsole {
		console := config.Output
		if console == nil {
			console = os.Stderr
		}
		writers = append(writers, console)
	}
	if config.EnableFile {
		if err := l.initFileOutput(config); err != nil {
			return nil, fmt.Errorf("初始化文件输出失败: %w", err)
		}
		writers = append(writers, l.fileHook)
	}

	switch len(writers) {
	case 0:
		return io.Discard, nil
	case 1:
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

// initFileOutput 初始化文件输出，按大小滚动
func (l *Logger) initFileOutput(config *LogConfig) error {
	dir := config.FilePath
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	fileName := config.FileName
	if fileName == "" {
		fileName = fmt.Sprintf("%s.log", config.AppName)
	}
	filePath := filepath.Join(dir, fileName)

	l.fileHook = &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
		LocalTime:  true,
	}
	if l.Stats != nil {
		l.Stats.Set("log_file", filePath)
	}
	return nil
}

// ParseLogLevel 解析日志级别，无法识别时为 info
func ParseLogLevel(levelStr string) logrus.Level {
	level, err := logrus.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// WithField 返回带新字段的副本，共用输出和统计
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields 批量添加字段
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		name:     l.name,
		logger:   l.logger,
		fileHook: l.fileHook,
		config:   l.config,
		Stats:    l.Stats,
		fields:   merged,
	}
}

func (l *Logger) entry() *logrus.Entry {
	return l.logger.WithField("app", l.name).WithFields(l.fields)
}

func (l *Logger) Debug(args ...interface{}) {
	l.entry().Debug(args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.entry().Debugf(format, args...)
}

func (l *Logger) Info(args ...interface{}) {
	l.entry().Info(args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.entry().Infof(format, args...)
}

func (l *Logger) Warn(args ...interface{}) {
	l.entry().Warn(args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.entry().Warnf(format, args...)
}

func (l *Logger) Error(args ...interface{}) {
	l.entry().Error(args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.entry().Errorf(format, args...)
}

// WithError 带错误字段的日志条目
// Count 统计计数加一，未启用统计时忽略
func (l *Logger) Count(key string) {
	if l.Stats != nil {
		l.Stats.Increment(key)
	}
}

func (l *Logger) WithError(err error) *logrus.Entry {
	return l.entry().WithError(err)
}

// PrintStats 以表格输出统计信息
func (l *Logger) PrintStats(w io.Writer) {
	if l.Stats == nil {
		l.Warn("统计功能未启用")
		return
	}
	if err := l.Stats.OutTableInfo(w); err != nil {
		l.Errorf("输出统计信息失败: %v", err)
	}
}

func (l *Logger) SetLevel(level string) {
	l.logger.SetLevel(ParseLogLevel(level))
}

func (l *Logger) GetLevel() logrus.Level {
	return l.logger.GetLevel()
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	if l.fileHook != nil {
		return l.fileHook.Close()
	}
	return nil
}

// Rotate 手动滚动日志文件
func (l *Logger) Rotate() error {
	if l.fileHook != nil {
		return l.fileHook.Rotate()
	}
	return nil
}

var (
	defaultLogger *Logger
	defaultMu     sync.Mutex
)

// SetDefaultLogger 替换默认日志记录器，新建的连接会使用它
func SetDefaultLogger(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// InitDefaultLogger 按配置初始化默认日志记录器
func InitDefaultLogger(config *LogConfig) error {
	l, err := NewLogger(config)
	if err != nil {
		return err
	}
	SetDefaultLogger(l)
	return nil
}

// GetDefaultLogger 获取默认日志记录器，第一次使用时按默认配置创建
func GetDefaultLogger() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		// 默认配置不写文件，不会失败
		defaultLogger, _ = NewLogger(DefaultLogConfig())
	}
	return defaultLogger
}
