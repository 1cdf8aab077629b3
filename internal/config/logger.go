package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ConsoleLoggerConfig struct {
	Level  string `yaml:"level" validate:"required,oneof=none debug normal"`
	Format string `yaml:"format" validate:"required,oneof=console json"`
}

type FileLoggerConfig struct {
	Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" validate:"required_unless=Level none"`
	MaxSize     int    `yaml:"max_size" validate:"gte=0"`
	MaxBackups  int    `yaml:"max_backups" validate:"gte=0"`
	MaxAge      int    `yaml:"max_age" validate:"gte=0"`
	Compress    bool   `yaml:"compress"`
}

type LoggingConfig struct {
	ConsoleLogger ConsoleLoggerConfig `yaml:"console"`
	FileLogger    FileLoggerConfig    `yaml:"file"`
}

// Prepare returns our standard logger - configured zap logger for use by the
// program. Console output always goes to stderr, stdout is reserved for
// converted documents.
func (conf *LoggingConfig) Prepare(debug bool) (*zap.Logger, error) {
	if dest := conf.FileLogger.Destination; len(dest) > 0 && conf.FileLogger.Level != "none" {
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return nil, fmt.Errorf("unable to access file log destination (%s): %w", dest, err)
		}
	}
	return conf.build(os.Stderr, debug), nil
}

func (conf *LoggingConfig) build(console io.Writer, debug bool) *zap.Logger {
	consoleLevel := conf.ConsoleLogger.Level
	fileLevel := conf.FileLogger.Level
	if debug {
		// troubleshooting requested, maximum details everywhere
		consoleLevel = "debug"
		if fileLevel != "none" {
			fileLevel = "debug"
		}
	}

	cores := []zapcore.Core{zapcore.NewNopCore()}

	if enabler, ok := levelEnabler(consoleLevel); ok {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeCaller = nil
		ec.TimeKey = zapcore.OmitKey
		ec.EncodeLevel = zapcore.CapitalLevelEncoder

		var enc zapcore.Encoder
		if conf.ConsoleLogger.Format == "json" {
			enc = zapcore.NewJSONEncoder(ec)
		} else {
			enc = zapcore.NewConsoleEncoder(ec)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(console)), enabler))
	}

	if enabler, ok := levelEnabler(fileLevel); ok && len(conf.FileLogger.Destination) > 0 {
		// file log is always structured
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   conf.FileLogger.Destination,
			MaxSize:    conf.FileLogger.MaxSize,
			MaxBackups: conf.FileLogger.MaxBackups,
			MaxAge:     conf.FileLogger.MaxAge,
			Compress:   conf.FileLogger.Compress,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(ec), writer, enabler))
	}

	return zap.New(zapcore.NewTee(cores...)).Named("cssinline")
}

func levelEnabler(level string) (zapcore.LevelEnabler, bool) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, true
	case "normal":
		return zapcore.InfoLevel, true
	default:
		return nil, false
	}
}
