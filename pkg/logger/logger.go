package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultFileName   = "clmm-admin.log"
	defaultMaxSizeMB  = 200
	defaultMaxBackups = 10
	defaultMaxAgeDays = 14
)

// LogOption 日志初始化参数
type LogOption struct {
	Format   string // "console" 或 "json"
	LogDir   string // 为空时只输出到 stdout
	Level    string // debug / info / warn / error
	Compress bool   // 是否压缩滚动后的旧日志
}

var (
	mu     sync.RWMutex
	base   = newConsoleLogger(zapcore.InfoLevel)
	sugar  = base.Sugar()
	closer func() error
)

// InitLogger 按配置重建全局 logger，可重复调用
func InitLogger(opt LogOption) error {
	level := parseLevel(opt.Level)
	encoder := buildEncoder(opt.Format)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}

	var rotate *lumberjack.Logger
	if opt.LogDir != "" {
		if err := os.MkdirAll(opt.LogDir, 0o755); err != nil {
			return err
		}
		rotate = &lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, defaultFileName),
			MaxSize:    defaultMaxSizeMB,
			MaxBackups: defaultMaxBackups,
			MaxAge:     defaultMaxAgeDays,
			Compress:   opt.Compress,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotate), level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))

	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	if closer != nil {
		_ = closer()
		closer = nil
	}
	base = l
	sugar = l.Sugar()
	if rotate != nil {
		closer = rotate.Close
	}
	return nil
}

// L 返回底层 zap.Logger（结构化字段场景使用）
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

func Debugf(format string, args ...any) { current().Debugf(format, args...) }
func Infof(format string, args ...any)  { current().Infof(format, args...) }
func Warnf(format string, args ...any)  { current().Warnf(format, args...) }
func Errorf(format string, args ...any) { current().Errorf(format, args...) }

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func buildEncoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	if strings.EqualFold(format, "json") {
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func newConsoleLogger(level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(buildEncoder("console"), zapcore.Lock(os.Stdout), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}
