package log

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _logger *zap.Logger
var defaultlogger *zap.Logger

type contextKey int

const (
	contextKeyFields contextKey = iota
)

// Format of the log entries
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config of the root logger
type Config struct {
	// Format is FormatJSON (default) or FormatConsole
	Format string
	// Level is the minimum enabled level (debug, info, warn, error). Default: debug
	Level string
}

// ConfigFromEnv reads LOGFORMAT and LOGLEVEL
func ConfigFromEnv() Config {
	return Config{Format: os.Getenv("LOGFORMAT"), Level: os.Getenv("LOGLEVEL")}
}

func init() {
	if err := Setup(ConfigFromEnv()); err != nil {
		_ = Setup(Config{})
	}
}

func setLogger(l *zap.Logger) {
	defaultlogger = l
}
func resetLogger() {
	defaultlogger = _logger
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02T15:04:05.000"))
}

// Setup (re)creates the root logger
func Setup(c Config) error {
	var cfg zap.Config
	var enc zapcore.EncoderConfig
	switch strings.ToLower(c.Format) {
	case "", FormatJSON:
		cfg = zap.NewProductionConfig()
		enc = zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
	case FormatConsole:
		cfg = zap.NewDevelopmentConfig()
		enc = zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = timeEncoder
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return fmt.Errorf("log.Setup: unknown format %q", c.Format)
	}
	enc.LevelKey = "severity"
	enc.TimeKey = "timestamp"
	enc.StacktraceKey = ""
	enc.MessageKey = "message"
	cfg.EncoderConfig = enc
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	if c.Level != "" {
		if err := cfg.Level.UnmarshalText([]byte(c.Level)); err != nil {
			return fmt.Errorf("log.Setup: %w", err)
		}
	}
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("log.Setup: %w", err)
	}
	_logger = l
	defaultlogger = l
	return nil
}

// Logger returns a logger that will print fields previously added to the context
func Logger(ctx context.Context) *zap.Logger {
	if flds, ok := ctx.Value(contextKeyFields).([]zap.Field); ok {
		return defaultlogger.With(flds...)
	}
	return defaultlogger
}

// With adds a key=value field to the returned context
func With(ctx context.Context, key string, value interface{}) context.Context {
	return WithFields(ctx, zap.Any(key, value))
}

// WithFields adds fields to the returned context
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	flds, _ := ctx.Value(contextKeyFields).([]zap.Field)
	fflds := make([]zap.Field, 0, len(flds)+len(fields))
	fflds = append(append(fflds, flds...), fields...)
	return context.WithValue(ctx, contextKeyFields, fflds)
}

// Printf logs at Info level
func Printf(format string, v ...interface{}) {
	defaultlogger.Sugar().Infof(format, v...)
}

// Fatalf logs at Fatal level and exits
func Fatalf(format string, v ...interface{}) {
	defaultlogger.Sugar().Fatalf(format, v...)
}
