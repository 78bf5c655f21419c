package logger

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Stats 线程安全的统计信息收集器
type Stats struct {
	mu           sync.RWMutex
	OverallStats map[string]interface{}
	startTime    time.Time
}

func NewStats() *Stats {
	return &Stats{
		OverallStats: make(map[string]interface{}),
		startTime:    time.Now(),
	}
}

// AddInt 累加整数统计
func (s *Stats) AddInt(key string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.OverallStats[key].(int); ok {
		s.OverallStats[key] = current + value
	} else {
		s.OverallStats[key] = value
	}
}

// Increment 递增计数器
func (s *Stats) Increment(key string) {
	s.AddInt(key, 1)
}

func (s *Stats) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OverallStats[key] = value
}

func (s *Stats) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.OverallStats[key]
	return val, ok
}

// GetInt 获取整数统计值
func (s *Stats) GetInt(key string) (int, bool) {
	val, ok := s.Get(key)
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Clear 清空统计
func (s *Stats) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OverallStats = make(map[string]interface{})
	s.startTime = time.Now()
}

// GetUptime 获取运行时间
func (s *Stats) GetUptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// OutTableInfo 以表格形式输出统计信息，按名称排序
func (s *Stats) OutTableInfo(writer io.Writer) error {
	uptime := s.GetUptime()

	s.mu.RLock()
	keys := make([]string, 0, len(s.OverallStats))
	for key := range s.OverallStats {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys)+1)
	rows = append(rows, []string{"uptime", uptime.Round(time.Second).String()})
	for _, key := range keys {
		rows = append(rows, []string{key, formatValue(s.OverallStats[key])})
	}
	s.mu.RUnlock()

	table := tablewriter.NewWriter(writer)
	table.Header([]string{"统计项目", "信息"})
	for _, row := range rows {
		table.Append(row)
	}
	return table.Render()
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case time.Duration:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
