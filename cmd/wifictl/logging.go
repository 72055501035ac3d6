package main

import (
	"fmt"
	"io"
	"time"

	"github.com/arloliu/go-espwifi/internal/config"
	"github.com/arloliu/go-espwifi/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the process logger: slog on stderr, or zap writing to a
// rotated file when logging.file.filename is set.
func newLogger(cfg config.LoggingConfig, stderr io.Writer) (logger.Logger, func(), error) {
	level, ok := logger.ParseLevel(cfg.Level)
	if !ok {
		return nil, nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}

	if cfg.File.Filename == "" {
		l := logger.NewSlogWithOptions(logger.SlogOptions{
			Output:  stderr,
			Level:   level,
			Console: cfg.Format == "console",
		})
		logger.SetLogger(l)

		return l, func() {}, nil
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.Format(time.RFC3339Nano)) },
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.File.Filename,
		MaxSize:    cfg.File.MaxSizeMB,
		MaxBackups: cfg.File.MaxBackups,
		MaxAge:     cfg.File.MaxAgeDays,
		Compress:   cfg.File.Compress,
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(lj), zapcore.DebugLevel)
	zl := logger.NewZap(zap.New(core, zap.AddCaller()), level)
	logger.SetLogger(zl)

	return zl, func() {
		_ = zl.Sync()
		_ = lj.Close()
	}, nil
}
