package logging

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelEnv names the environment variable the binaries read their log level from.
const LevelEnv = "LOG_LEVEL"

// DefaultConfig is a production JSON config without sampling, so every page
// eviction and split shows up when running at debug level.
func DefaultConfig() zap.Config {
	logConf := zap.NewProductionConfig()
	logConf.Sampling = nil
	logConf.EncoderConfig.TimeKey = "time"
	logConf.EncoderConfig.LevelKey = "severity"
	logConf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConf.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return logConf
}

// New builds a logger from DefaultConfig at the given level.
func New(level string) (*zap.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	logConf := DefaultConfig()
	logConf.Level = zap.NewAtomicLevelAt(l)

	return logConf.Build()
}

// FromEnv builds a logger at the level found in LOG_LEVEL, or at fallback when unset.
func FromEnv(fallback string) (*zap.Logger, error) {
	level := os.Getenv(LevelEnv)
	if level == "" {
		level = fallback
	}
	return New(level)
}

// ParseLevel accepts zap level names in any case as well as numeric levels.
func ParseLevel(l string) (zapcore.Level, error) {
	l = strings.ToLower(strings.TrimSpace(l))

	if level, err := zapcore.ParseLevel(l); err == nil {
		return level, nil
	}

	n, err := strconv.ParseInt(l, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("unrecognized level %q", l)
	}
	level := zapcore.Level(n)
	if level < zapcore.DebugLevel || level > zapcore.FatalLevel {
		return 0, fmt.Errorf("level %d out of range", n)
	}
	return level, nil
}
