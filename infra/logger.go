package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/tnqbao/gau-media-gateway/config"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

type LoggerClient struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider
}

func InitLoggerClient(cfg *config.EnvConfig) *LoggerClient {
	level := slog.LevelInfo
	if cfg.Environment.Mode == "development" {
		level = slog.LevelDebug
	}
	handlers := []slog.Handler{
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	}

	var provider *sdklog.LoggerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		exporter, err := otlploghttp.New(context.Background(),
			otlploghttp.WithEndpoint(cfg.Telemetry.OTLPEndpoint),
			otlploghttp.WithInsecure(),
		)
		if err != nil {
			log.Printf("Warning: failed to create OTLP log exporter: %v (logging to stdout only)", err)
		} else {
			provider = sdklog.NewLoggerProvider(
				sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
				sdklog.WithResource(newResource(cfg)),
			)
			global.SetLoggerProvider(provider)
			handlers = append(handlers, otelslog.NewHandler(cfg.Telemetry.ServiceName,
				otelslog.WithLoggerProvider(provider)))
		}
	}

	return &LoggerClient{
		logger:   slog.New(fanoutHandler(handlers)),
		provider: provider,
	}
}

// NewLoggerClient wraps an existing slog logger, used by tests and tools.
func NewLoggerClient(logger *slog.Logger) *LoggerClient {
	return &LoggerClient{logger: logger}
}

// NewDiscardLogger returns a logger that drops every record.
func NewDiscardLogger() *LoggerClient {
	return NewLoggerClient(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (l *LoggerClient) Slog() *slog.Logger {
	return l.logger
}

func (l *LoggerClient) DebugWithContextf(ctx context.Context, format string, args ...any) {
	l.logger.DebugContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) InfoWithContextf(ctx context.Context, format string, args ...any) {
	l.logger.InfoContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) WarningWithContextf(ctx context.Context, format string, args ...any) {
	l.logger.WarnContext(ctx, fmt.Sprintf(format, args...))
}

// ErrorWithContextf logs at error level; err may be nil.
func (l *LoggerClient) ErrorWithContextf(ctx context.Context, err error, format string, args ...any) {
	if err != nil {
		l.logger.ErrorContext(ctx, fmt.Sprintf(format, args...), slog.String("error", err.Error()))
		return
	}
	l.logger.ErrorContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) Shutdown(ctx context.Context) error {
	if l.provider == nil {
		return nil
	}
	return l.provider.Shutdown(ctx)
}

type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, handler := range h {
		out[i] = handler.WithAttrs(attrs)
	}
	return out
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, handler := range h {
		out[i] = handler.WithGroup(name)
	}
	return out
}
