// Package debug builds the zerolog loggers used by the command line and the
// language server.
package debug

import (
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02T15:04:05.0000Z"

func callerSkipFrameCount(e *zerolog.Event) int {
	// zerolog keeps the skip count unexported
	v := reflect.ValueOf(e).Elem()
	field := v.FieldByName("skipFrame")
	if field.IsValid() && field.CanAddr() {
		return int(field.Int())
	}
	return 0
}

type TimeHook struct {
	Format string
}

func (t TimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := t.Format
	if format == "" {
		format = timeFormat
	}
	e.Str("time", time.Now().Format(format))
}

// CallerHook adds a short package:file:line caller field.
type CallerHook struct {
	WithColor bool
}

func (c CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(callerSkipFrameCount(e) + 3)
	if !ok {
		return
	}

	pkg, _ := SplitFuncName(runtime.FuncForPC(pc).Name())
	e.Str("caller", FormatCaller(pkg, file, line, c.WithColor))
}

// SplitFuncName splits a runtime function name into its package path and the
// function or method name.
func SplitFuncName(name string) (pkg, function string) {
	lastSlash := strings.LastIndexByte(name, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}

	firstDot := strings.IndexByte(name[lastSlash:], '.')
	if firstDot < 0 {
		return name, ""
	}
	firstDot += lastSlash

	pkg = name[:firstDot]
	function = name[firstDot+1:]

	if strings.Contains(pkg, ".(") {
		parts := strings.SplitN(pkg, ".(", 2)
		pkg = parts[0]
		function = "(" + parts[1] + "." + function
	}

	return pkg, function
}

func FormatCaller(pkg, path string, number int, colorize bool) string {
	file := FileNameOfPath(path)
	if colorize {
		file = color.New(color.Bold).Sprint(file)
		num := color.New(color.FgHiRed, color.Bold).Sprintf("%d", number)
		sep := color.New(color.Faint).Sprint(":")
		return fmt.Sprintf("%s%s%s%s%s", pkg, sep, file, sep, num)
	}

	return fmt.Sprintf("%s:%s:%d", pkg, file, number)
}

func FileNameOfPath(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// NewLogger returns a human readable logger, or one writing raw zerolog JSON
// when json is set.
func NewLogger(w io.Writer, level zerolog.Level, colorize, json bool) zerolog.Logger {
	out := w
	if !json {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    !colorize,
			TimeFormat: timeFormat,
		}
	}

	logger := zerolog.New(out).Level(level).Hook(CallerHook{WithColor: colorize && !json})
	if json {
		return logger.Hook(TimeHook{})
	}
	return logger.With().Timestamp().Logger()
}
