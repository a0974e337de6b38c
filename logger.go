package smtpagent

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Connection lifecycle events, one per state transition.
const (
	EventAccepted      = "accepted"
	EventRejected      = "rejected-untrusted-origin"
	EventRelayStart    = "trusted-relay-start"
	EventRelayComplete = "relay-complete"
)

// connEncoderConfig renders one JSON object per line in the shape the log
// consumers expect: {"timestamp":...,"event":...,"client":...,"port":...}.
// The level key is dropped, every record is an Info-level append.
func connEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "timestamp",
		MessageKey:    "event",
		LevelKey:      zapcore.OmitKey,
		NameKey:       zapcore.OmitKey,
		CallerKey:     zapcore.OmitKey,
		StacktraceKey: zapcore.OmitKey,
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.UTC().Format("2006-01-02T15:04:05Z"))
		},
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}
}

// NewConnectionLogger opens the event log in append mode and wraps it in a
// zap JSON core. Append mode makes each record a single atomic write, so
// concurrent sessions never interleave partial lines. If the file cannot be
// opened the logger degrades to stderr rather than failing the server.
func NewConnectionLogger(path string) *zap.Logger {
	sink := zapcore.AddSync(os.Stderr)
	if path != "" {
		os.MkdirAll(filepath.Dir(path), 0o755)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err == nil {
			sink = zapcore.AddSync(f)
		}
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(connEncoderConfig()), sink, zapcore.InfoLevel)
	return zap.New(core)
}
