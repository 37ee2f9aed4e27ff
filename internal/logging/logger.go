package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scrapify/scrapify-backend/internal/eventbus"
)

const defaultLogLevel = "info"

// New builds the service logger. Production emits JSON, development emits
// console lines. When bus is non-nil every entry is also published to it.
func New(level string, development bool, bus *eventbus.Bus) (*zap.Logger, error) {
	atomic := zap.NewAtomicLevel()
	if err := atomic.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		_ = atomic.UnmarshalText([]byte(defaultLogLevel))
	}

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.MessageKey = "message"
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.LevelKey = "severity"
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.Level = atomic
	cfg.DisableStacktrace = true

	var opts []zap.Option
	if bus != nil {
		opts = append(opts, zap.Hooks(PublishTo(bus)))
	}
	return cfg.Build(opts...)
}

// PublishTo returns a zap hook forwarding entries to the event bus.
func PublishTo(bus *eventbus.Bus) func(zapcore.Entry) error {
	return func(e zapcore.Entry) error {
		var data map[string]any
		if e.LoggerName != "" || e.Caller.Defined {
			data = map[string]any{}
			if e.LoggerName != "" {
				data["logger"] = e.LoggerName
			}
			if e.Caller.Defined {
				data["caller"] = e.Caller.TrimmedPath()
			}
		}
		bus.Publish(e.Level.String(), e.Message, data)
		return nil
	}
}
