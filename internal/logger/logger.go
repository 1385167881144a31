package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	once sync.Once
)

// Get returns the process-wide logger, initializing it on first use.
// LOG_LEVEL selects the minimum level (debug, info, warn, error); default info.
func Get() *zap.Logger {
	once.Do(func() {
		level := zapcore.InfoLevel
		if raw := os.Getenv("LOG_LEVEL"); raw != "" {
			if parsed, err := zapcore.ParseLevel(raw); err == nil {
				level = parsed
			}
		}

		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

		var err error
		log, err = cfg.Build()
		if err != nil {
			log = zap.NewNop()
		}
	})
	return log
}

// WithContext returns the base logger for callers that have no room scope yet.
func WithContext() *zap.Logger {
	return Get()
}

// WithRoomContext returns a logger annotated with room and session identity.
// Empty values are omitted so lobby-level callers can pass "".
func WithRoomContext(roomCode, sessionID string) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if roomCode != "" {
		fields = append(fields, zap.String("room_code", roomCode))
	}
	if sessionID != "" {
		fields = append(fields, zap.String("session_id", sessionID))
	}
	return Get().With(fields...)
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
