// Copyright 2022 The MaxMQ Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger represents a logging object responsible to generate outputs to
// an io.Writer.
type Logger = zerolog.Logger

var (
	// ErrInvalidLevel indicates that the severity level is not known.
	ErrInvalidLevel = errors.New("invalid log level")

	// ErrInvalidFormat indicates that the log format is not known.
	ErrInvalidFormat = errors.New("invalid log format")
)

// Format represents how the log lines are encoded.
type Format byte

const (
	// FormatPretty encodes coloured lines for humans.
	FormatPretty Format = iota

	// FormatJSON encodes one JSON object per line.
	FormatJSON
)

var formatNames = map[string]Format{
	"pretty": FormatPretty,
	"json":   FormatJSON,
}

const (
	reset  = "\x1b[0m"
	red    = "\x1b[31m"
	green  = "\x1b[32m"
	yellow = "\x1b[33m"
	blue   = "\x1b[34m"
	cyan   = "\x1b[36m"
	white  = "\x1b[37m"
	bgRed  = "\x1b[41m"
	gray   = "\x1b[90m"
)

var levelColor = map[string]string{
	"TRACE": gray,
	"DEBUG": blue,
	"INFO":  green,
	"WARN":  yellow,
	"ERROR": red,
	"FATAL": bgRed,
}

var levelCode = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
}

// ParseFormat converts a format name ("pretty" or "json") into a Format.
func ParseFormat(name string) (Format, error) {
	f, ok := formatNames[strings.ToLower(name)]
	if !ok {
		return FormatPretty, ErrInvalidFormat
	}
	return f, nil
}

// New creates a new logger object which writes human-friendly and coloured
// log lines into out.
func New(out io.Writer) Logger {
	return NewWithFormat(out, FormatPretty)
}

// NewWithFormat creates a new logger object which writes the log lines into
// out using the given format.
func NewWithFormat(out io.Writer, f Format) Logger {
	if f == FormatJSON {
		return zerolog.New(out).With().Timestamp().Logger()
	}

	output := &zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339Nano,
	}

	output.FormatTimestamp = formatTimestamp
	output.FormatLevel = formatLevel
	output.FormatMessage = formatMessage
	output.FormatFieldName = formatFieldName
	output.FormatFieldValue = formatFieldValue
	output.FormatErrFieldName = formatFieldName
	output.FormatErrFieldValue = formatFieldValue

	return zerolog.New(output).
		With().
		Timestamp().
		Logger()
}

// WithComponent returns a child logger which tags every log with the given
// component name.
func WithComponent(log *Logger, component string) *Logger {
	l := log.With().Str("Component", component).Logger()
	return &l
}

// SetSeverityLevel sets the minimal severity level which the logs will be
// produced. The level name is case-insensitive.
func SetSeverityLevel(level string) error {
	l, ok := levelCode[strings.ToLower(level)]
	if !ok {
		return ErrInvalidLevel
	}

	zerolog.SetGlobalLevel(l)
	return nil
}

// IsValidLevel returns whether the level name is a known severity level.
func IsValidLevel(level string) bool {
	_, ok := levelCode[strings.ToLower(level)]
	return ok
}

func formatTimestamp(i interface{}) string {
	v, err := strconv.ParseInt(fmt.Sprintf("%v", i), 10, 64)
	if err != nil {
		return ""
	}

	t := time.UnixMicro(v)
	return colorize(white, t.Format("2006-01-02 15:04:05.000000 -0700"))
}

func formatLevel(i interface{}) string {
	level := strings.ToUpper(fmt.Sprintf("%s", i))
	return fmt.Sprintf("| %-14s |", colorize(levelColor[level], level))
}

func formatMessage(i interface{}) string {
	return colorize(cyan, fmt.Sprintf("%s", i))
}

func formatFieldName(i interface{}) string {
	return colorize(gray, fmt.Sprintf("%s=", i))
}

func formatFieldValue(i interface{}) string {
	return colorize(gray, fmt.Sprintf("%s", i))
}

func colorize(color, msg string) string {
	if color == "" {
		return msg
	}

	return color + msg + reset
}
