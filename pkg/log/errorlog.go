package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

// DefaultErrorLogPath is where rejected inputs are recorded unless configured otherwise.
const DefaultErrorLogPath = "logs/errors.txt"

// ErrorLogTimeFormat is the timestamp layout of each error log line.
const ErrorLogTimeFormat = "2006-01-02T15:04:05"

// ErrorLog is an append-only text file with one line per rejected input:
//
//	[2024-05-01T12:30:00] ERROR: synthpipe: generate: sample_count must be ...
//
// The file is opened per record, so an ErrorLog holds no descriptor between calls.
// A nil *ErrorLog discards records.
type ErrorLog struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewErrorLog returns an ErrorLog appending to path.
func NewErrorLog(path string) *ErrorLog {
	return &ErrorLog{path: path, now: time.Now}
}

// WithClock replaces the timestamp source.
func (l *ErrorLog) WithClock(now func() time.Time) *ErrorLog {
	l.now = now
	return l
}

// Path returns the file the log appends to.
func (l *ErrorLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record appends err as a single line.
func (l *ErrorLog) Record(err error) error {
	if l == nil || err == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return errors.Wrap(mkErr, "failed to create error log directory")
		}
	}
	f, openErr := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if openErr != nil {
		return errors.Wrap(openErr, "failed to open error log")
	}

	logger := zerolog.New(lineWriter(f))
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	logger.Error().
		Str(zerolog.TimestampFieldName, l.now().Format(ErrorLogTimeFormat)).
		Msg(msg)

	return f.Close()
}

func lineWriter(f *os.File) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        f,
		NoColor:    true,
		PartsOrder: []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatTimestamp: func(i interface{}) string {
			return fmt.Sprintf("[%v]", i)
		},
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprint(i)) + ":"
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprint(i)
		},
	}
}
