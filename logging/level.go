package logging

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level enumerates logging severities, ordered from least to most severe.
type Level int32

const (
	DEBUG Level = iota - 1
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "Debug"
	case INFO:
		return "Info"
	case WARN:
		return "Warn"
	case ERROR:
		return "Error"
	default:
		return "Unknown"
	}
}

// AsZap converts to the equivalent zapcore level.
func (l Level) AsZap() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// LevelFromString parses a case-insensitive level name, defaulting unrecognized strings to INFO
// and reporting that as an error.
func LevelFromString(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", s)
	}
}

// AtomicLevel is a concurrency-safe Level, analogous to zap.AtomicLevel but over our own Level
// type so loggers can gate on it without pulling the whole zap config through.
type AtomicLevel struct {
	val atomic.Int32
}

// NewAtomicLevelAt constructs an AtomicLevel initialized to level.
func NewAtomicLevelAt(level Level) AtomicLevel {
	var al AtomicLevel
	al.val.Store(int32(level))
	return al
}

// Get returns the current level.
func (al *AtomicLevel) Get() Level {
	return Level(al.val.Load())
}

// Set updates the current level.
func (al *AtomicLevel) Set(level Level) {
	al.val.Store(int32(level))
}

// GlobalLogLevel is the process-wide zap atomic level. Setting it to Debug forces every logger,
// regardless of its own configured level, to emit debug logs; this backs the CDebug* family.
var GlobalLogLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// DefaultTimeFormatStr is the timestamp layout used by the plain-text test appender.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

func callerToString(caller *zapcore.EntryCaller) string {
	return caller.TrimmedPath()
}

// Appender receives formatted log entries. A Logger fans each log line out to every Appender it
// holds.
type Appender interface {
	Write(entry zapcore.Entry, fields []zapcore.Field) error
	Sync() error
}

type writerAppender struct {
	encoder zapcore.Encoder
	out     *os.File
}

func newWriterAppender(out *os.File, localTime bool) *writerAppender {
	cfg := NewZapLoggerConfig().EncoderConfig
	if localTime {
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return &writerAppender{encoder: zapcore.NewConsoleEncoder(cfg), out: out}
}

func (w *writerAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := w.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()
	_, err = w.out.Write(buf.Bytes())
	return err
}

func (w *writerAppender) Sync() error {
	return w.out.Sync()
}

// NewStdoutAppender returns an appender writing console-formatted entries to stdout; timestamps
// are whatever the caller's impl already converted to (impl.inUTC controls that upstream).
func NewStdoutAppender() Appender {
	return newWriterAppender(os.Stdout, false)
}

// NewStdoutTestAppender writes to stdout exactly like NewStdoutAppender: both use the ISO8601
// time encoder, and the time zone is whatever the entry's timestamp already carries.
func NewStdoutTestAppender() Appender {
	return newWriterAppender(os.Stdout, true)
}
