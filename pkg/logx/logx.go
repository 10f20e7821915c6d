package logx

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var lg *zap.SugaredLogger

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// Init builds the process logger. JSON goes to stdout and, when LOG_FILE is
// set, to a size-rotated file as well.
func Init() {
	level := zap.NewAtomicLevelAt(parseLevel(os.Getenv("LOG_LEVEL")))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(encCfg)

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	if path := os.Getenv("LOG_FILE"); path != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), level)
	lg = zap.New(core, zap.AddCaller()).Sugar()
}

// Use swaps the process logger, mostly for tests (zap.NewNop().Sugar()).
func Use(l *zap.SugaredLogger) { lg = l }

func L() *zap.SugaredLogger {
	if lg == nil {
		Init()
	}
	return lg
}

func Sync() { _ = L().Sync() }

// Redact masks the local part of an email or all but the last digits of a
// phone number so recipients never land in logs verbatim.
func Redact(recipient string) string {
	if at := strings.LastIndex(recipient, "@"); at >= 0 {
		if at <= 1 {
			return "*" + recipient[at:]
		}
		return recipient[:1] + strings.Repeat("*", at-1) + recipient[at:]
	}
	if len(recipient) <= 4 {
		return strings.Repeat("*", len(recipient))
	}
	return strings.Repeat("*", len(recipient)-4) + recipient[len(recipient)-4:]
}
