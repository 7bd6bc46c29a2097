// Package execlog 收集每次运行展示给运营的执行日志。
//
// 日志分两类：user 描述输入文件的处理情况，dev 为排查用的诊断信息。
// 两者都是普通 slog 记录，类别通过 audience 属性携带。
package execlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// AudienceKey 携带日志类别的属性名
const AudienceKey = "audience"

const (
	CategoryUser = "user"
	CategoryDev  = "dev"
)

// LevelSuccess 运营可见步骤完成
const LevelSuccess = slog.Level(2)

// Entry 执行日志的一行
type Entry struct {
	Time     string `json:"time"`
	Level    string `json:"level"`
	Msg      string `json:"msg"`
	Category string `json:"category"`
}

// Collector 将日志保存在内存中的 slog.Handler
type Collector struct {
	mu      *sync.Mutex
	entries *[]Entry
	attrs   []slog.Attr
	now     func() time.Time
}

// NewCollector 创建空的收集器
func NewCollector() *Collector {
	return &Collector{
		mu:      &sync.Mutex{},
		entries: &[]Entry{},
		now:     time.Now,
	}
}

func (c *Collector) Enabled(context.Context, slog.Level) bool { return true }

func (c *Collector) Handle(_ context.Context, r slog.Record) error {
	category := CategoryDev
	match := func(a slog.Attr) bool {
		if a.Key == AudienceKey {
			category = a.Value.String()
			return false
		}
		return true
	}
	for _, a := range c.attrs {
		if !match(a) {
			break
		}
	}
	r.Attrs(match)

	t := r.Time
	if t.IsZero() {
		t = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	*c.entries = append(*c.entries, Entry{
		Time:     t.Format("15:04:05"),
		Level:    LevelName(r.Level),
		Msg:      r.Message,
		Category: category,
	})
	return nil
}

func (c *Collector) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *c
	next.attrs = append(append([]slog.Attr{}, c.attrs...), attrs...)
	return &next
}

// WithGroup 不分组，日志保持扁平
func (c *Collector) WithGroup(string) slog.Handler {
	return c
}

// Entries 返回目前已收集日志的副本
func (c *Collector) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(*c.entries))
	copy(out, *c.entries)
	return out
}

// Tee 同时写入 base 与收集器
func Tee(base *slog.Logger, c *Collector) *slog.Logger {
	if base == nil {
		return slog.New(c)
	}
	return slog.New(slogmulti.Fanout(base.Handler(), c))
}

// User 标记为运营可见
func User(l *slog.Logger) *slog.Logger {
	return l.With(AudienceKey, CategoryUser)
}

// Dev 标记为诊断日志
func Dev(l *slog.Logger) *slog.Logger {
	return l.With(AudienceKey, CategoryDev)
}

// LevelName 界面使用的级别名称
func LevelName(l slog.Level) string {
	switch {
	case l == LevelSuccess:
		return "SUCCESS"
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
