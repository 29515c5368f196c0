package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB = 100
	defaultMaxFiles  = 5
)

// output picks the destination writer and wraps it for console rendering.
// Console output to a file is written without colour codes.
func output(opts Options) io.Writer {
	var w io.Writer
	switch strings.ToLower(opts.Output) {
	case "file":
		w = rotating(opts)
	case "stderr":
		w = os.Stderr
	default:
		w = os.Stdout
	}

	if strings.EqualFold(opts.Format, "console") {
		return zerolog.ConsoleWriter{Out: w, NoColor: w != os.Stdout && w != os.Stderr}
	}
	return w
}

// rotating returns a lumberjack writer that compresses rotated files.
func rotating(opts Options) *lumberjack.Logger {
	size := opts.MaxSizeMB
	if size <= 0 {
		size = defaultMaxSizeMB
	}
	files := opts.MaxFiles
	if files <= 0 {
		files = defaultMaxFiles
	}
	return &lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    size,
		MaxBackups: files,
		Compress:   true,
	}
}
