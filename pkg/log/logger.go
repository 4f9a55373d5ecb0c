package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

var zerologLevels = map[LogLevel]zerolog.Level{
	LevelDebug: zerolog.DebugLevel,
	LevelInfo:  zerolog.InfoLevel,
	LevelWarn:  zerolog.WarnLevel,
	LevelError: zerolog.ErrorLevel,
	LevelFatal: zerolog.FatalLevel,
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

// ParseLevel 解析日志级别, 无法识别时返回 LevelInfo
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Format selects how records are rendered.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ParseFormat falls back to console output for unknown values.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatConsole
}

// Logger writes leveled records with structured fields.
// Safe for concurrent use: every record is a single write on a synchronized writer.
type Logger struct {
	level LogLevel
	zl    zerolog.Logger
}

func NewLogger(level LogLevel) *Logger {
	return New(os.Stdout, level, FormatConsole)
}

// New creates a logger writing to w in the given format.
func New(w io.Writer, level LogLevel, format Format) *Logger {
	return newLogger(formatWriter(w, format), level)
}

func newLogger(out io.Writer, level LogLevel) *Logger {
	return &Logger{
		level: level,
		zl:    zerolog.New(out).With().Timestamp().Logger().Level(zerologLevels[level]),
	}
}

func formatWriter(w io.Writer, format Format) io.Writer {
	out := zerolog.SyncWriter(w)
	if format == FormatJSON {
		return out
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    !isTerminal(w),
		TimeFormat: "2006-01-02 15:04:05",
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SetLevel 设置日志级别
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	l.zl = l.zl.Level(zerologLevels[level])
}

// With returns a child logger carrying the given key/value pairs on every record.
func (l *Logger) With(keyvals ...any) *Logger {
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "")
	}
	return &Logger{
		level: l.level,
		zl:    l.zl.With().Fields(keyvals).Logger(),
	}
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying l.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
			return l
		}
	}
	return GetLogger()
}

// Debug 记录调试信息
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(3, LevelDebug, format, args...)
}

// Info 记录信息
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(3, LevelInfo, format, args...)
}

// Warn 记录警告信息
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(3, LevelWarn, format, args...)
}

// Error 记录错误信息
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(3, LevelError, format, args...)
}

// Fatal 记录致命错误并退出
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(3, LevelFatal, format, args...)
	os.Exit(1)
}

// log 内部日志记录方法, skip 为调用栈深度
func (l *Logger) log(skip int, level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	// 获取调用信息
	_, file, line, ok := runtime.Caller(skip - 1)
	caller := "unknown"
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	l.zl.WithLevel(zerologLevels[level]).
		Str("caller", caller).
		Msg(fmt.Sprintf(format, args...))
}

// FileLogger 是文件日志记录器
type FileLogger struct {
	*Logger
	file *os.File
}

// NewFileLogger 创建新的文件日志记录器, 文件中始终写 JSON
func NewFileLogger(logFile string, level LogLevel) (*FileLogger, error) {
	// 确保日志目录存在
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &FileLogger{
		Logger: New(file, level, FormatJSON),
		file:   file,
	}, nil
}

// NewTeeLogger writes every record to console in the given format and, as
// JSON, to logFile.
func NewTeeLogger(console io.Writer, format Format, logFile string, level LogLevel) (*FileLogger, error) {
	fl, err := NewFileLogger(logFile, level)
	if err != nil {
		return nil, err
	}
	out := zerolog.MultiLevelWriter(formatWriter(console, format), zerolog.SyncWriter(fl.file))
	fl.Logger = newLogger(out, level)
	return fl, nil
}

// Close 关闭日志文件
func (l *FileLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Global logger instance
var globalLogger *Logger

// InitLogger 初始化全局日志记录器
func InitLogger(level LogLevel) {
	globalLogger = NewLogger(level)
}

// SetLogger replaces the global logger.
func SetLogger(l *Logger) {
	if l != nil {
		globalLogger = l
	}
}

// GetLogger 获取全局日志记录器
func GetLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewLogger(LevelInfo)
	}
	return globalLogger
}

// Convenience functions
func Debug(format string, args ...interface{}) {
	GetLogger().log(3, LevelDebug, format, args...)
}

func Info(format string, args ...interface{}) {
	GetLogger().log(3, LevelInfo, format, args...)
}

func Warn(format string, args ...interface{}) {
	GetLogger().log(3, LevelWarn, format, args...)
}

func Error(format string, args ...interface{}) {
	GetLogger().log(3, LevelError, format, args...)
}

func Fatal(format string, args ...interface{}) {
	GetLogger().log(3, LevelFatal, format, args...)
	os.Exit(1)
}
