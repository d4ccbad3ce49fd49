// Package observability provides the structured logger and Prometheus
// metrics of the game server.
package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/tilemud/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
// Every entry carries the server name. Loggers made with Component log at the
// level cfg.Components names for them, falling back to cfg.Level.
//
// Precondition: cfg.Level and every cfg.Components level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, serverName string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	levels := make(map[string]zapcore.Level, len(cfg.Components))
	lowest := level
	for name, l := range cfg.Components {
		parsed, err := zapcore.ParseLevel(l)
		if err != nil {
			return nil, fmt.Errorf("parsing log level %q of component %q: %w", l, name, err)
		}
		levels[name] = parsed
		if parsed < lowest {
			lowest = parsed
		}
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(lowest)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if serverName != "" {
		zapCfg.InitialFields = map[string]any{"server": serverName}
	}

	var opts []zap.Option
	if len(levels) > 0 {
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return withComponentLevels(core, level, levels)
		}))
	}
	logger, err := zapCfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// Component returns the logger a game component writes through. Entries are
// named after the component and carry it as a field.
func Component(logger *zap.Logger, name string) *zap.Logger {
	return logger.Named(name).With(zap.String("component", name))
}

// componentCore filters entries by the level of the component that wrote them.
type componentCore struct {
	zapcore.Core
	base   zapcore.Level
	levels map[string]zapcore.Level
}

func withComponentLevels(core zapcore.Core, base zapcore.Level, levels map[string]zapcore.Level) zapcore.Core {
	return &componentCore{Core: core, base: base, levels: levels}
}

func (c *componentCore) With(fields []zapcore.Field) zapcore.Core {
	return &componentCore{Core: c.Core.With(fields), base: c.base, levels: c.levels}
}

func (c *componentCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.levelFor(ent.LoggerName).Enabled(ent.Level) {
		return ce
	}
	return c.Core.Check(ent, ce)
}

// levelFor resolves a logger name such as "game.walk" by its first segment.
func (c *componentCore) levelFor(loggerName string) zapcore.Level {
	root, _, _ := strings.Cut(loggerName, ".")
	if l, ok := c.levels[root]; ok {
		return l
	}
	return c.base
}
