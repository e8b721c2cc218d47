// Package logging builds the structured run logger.
//
// Every run writes to its own file, neko_downloader_<timestamp>.log, and
// each line carries the run id so interleaved runs can be told apart.
package logging

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
)

const (
	maxFileSize    = 50 << 20
	maxFileBackups = 10
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string

	// Dir is the directory for the log file. Empty disables file output.
	Dir string

	// RunID is attached to every line. Empty generates one.
	RunID string

	// Now is the run start time used in the file name.
	Now time.Time
}

// Logger is a run logger and its cleanup.
type Logger struct {
	*log.Logger

	RunID string
	Path  string

	closer io.Closer
}

// New creates the run logger.
func New(opts Options) *Logger {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	l := &Logger{
		Logger: &log.Logger{
			Level:      ParseLevel(opts.Level),
			TimeFormat: "15:04:05",
			Context:    log.NewContext(nil).Str("run", opts.RunID).Value(),
		},
		RunID: opts.RunID,
	}

	if opts.Dir == "" {
		l.Writer = &log.IOWriter{Writer: io.Discard}
		return l
	}

	l.Path = filepath.Join(opts.Dir, FileName(opts.Now))
	fw := &log.FileWriter{
		Filename:     l.Path,
		MaxSize:      maxFileSize,
		MaxBackups:   maxFileBackups,
		EnsureFolder: true,
		LocalTime:    true,
	}
	l.Writer = fw
	l.closer = fw
	return l
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(Options{Level: "error"})
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// FileName returns the log file name for a run started at t.
func FileName(t time.Time) string {
	return "neko_downloader_" + t.Format("20060102_150405") + ".log"
}

// ParseLevel maps a level name to a log level. Unknown names mean info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
