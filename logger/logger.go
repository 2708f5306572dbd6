package logger

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Logger *zap.Logger
)

type LogLevel int8

const (
	DebugLevel LogLevel = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Options controls where log output goes. An empty File disables the rotating file core.
type Options struct {
	Level      LogLevel
	File       string
	Color      bool
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

func newEncoder(color bool) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:       "message",
		LevelKey:         "level",
		TimeKey:          "time",
		CallerKey:        "caller",
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	}
	if color {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return zapcore.NewConsoleEncoder(encoderConfig)
}

func newFileCore(encoder zapcore.Encoder, level zapcore.Level, opts Options) zapcore.Core {
	logFile := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
		Compress:   false,
		LocalTime:  true,
	}

	return zapcore.NewCore(encoder, zapcore.AddSync(logFile), level)
}

func Init(opts Options) {
	level := zapcore.Level(opts.Level)

	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(opts.Color), zapcore.Lock(os.Stdout), level),
	}
	if opts.File != "" {
		// never colour the file output
		cores = append(cores, newFileCore(newEncoder(false), level, opts))
	}

	Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

// Use swaps the package logger, mainly so tests can observe output.
func Use(l *zap.Logger) {
	Logger = l.WithOptions(zap.AddCallerSkip(1))
}

func Sync() {
	if Logger != nil {
		// stdout can't be synced on most terminals, not worth dying over
		if err := Logger.Sync(); err != nil {
			log.Printf("failed to sync logger: %v", err)
		}
	}
}

func Infof(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Infof(format, args...)
	}
}

func Info(args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Info(args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Debugf(format, args...)
	}
}

func Debugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Debugw(msg, keysAndValues...)
	}
}

func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Warnf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Errorf(format, args...)
	}
}

func Fatalf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if Logger != nil {
		Logger.Sync()
		Logger.Fatal(message)
	}
	log.Fatal(message)
}
