// Package logging builds the zap logger used across the service
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/amirphl/quote-core/config"
	"github.com/amirphl/quote-core/utils"
)

// New creates a logger from the logging configuration. Output "file" and
// "both" write to a lumberjack rotated file at FilePath.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	sink, err := newSink(cfg)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), sink, zap.NewAtomicLevelAt(level))

	opts := []zap.Option{}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(core, opts...), nil
}

// NewWriter is New with an explicit destination, used by tests and the CLI
func NewWriter(cfg config.LoggingConfig, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.AddSync(w), level)
	return zap.New(core), nil
}

func newSink(cfg config.LoggingConfig) (zapcore.WriteSyncer, error) {
	stdout := zapcore.Lock(os.Stdout)
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		return stdout, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, errors.New("log file path is required for file output")
		}
		return zapcore.AddSync(rotatingFile(cfg)), nil
	case "both":
		if cfg.FilePath == "" {
			return nil, errors.New("log file path is required for file output")
		}
		return zapcore.NewMultiWriteSyncer(stdout, zapcore.AddSync(rotatingFile(cfg))), nil
	default:
		return nil, fmt.Errorf("invalid log output %q", cfg.Output)
	}
}

func rotatingFile(cfg config.LoggingConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// WithContext attaches request scoped fields found in ctx
func WithContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	var fields []zap.Field
	if id := utils.RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if tenant, ok := ctx.Value(utils.TenantIDKey).(string); ok && tenant != "" {
		fields = append(fields, zap.String("tenant_id", tenant))
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// Sync flushes buffered entries, ignoring the harmless errors returned for stdout
func Sync(logger *zap.Logger) error {
	err := logger.Sync()
	var errno syscall.Errno
	if errors.As(err, &errno) && (errno == syscall.EINVAL || errno == syscall.ENOTTY) {
		return nil
	}
	return err
}
