// Package output renders shimsync reports for the terminal or for scripts.
//
// Text reports carry coloured status labels. Colour is switched off by
// fatih/color when stdout is not a terminal or NO_COLOR is set.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps the --output flag to a Format. Matching ignores case and
// an empty value means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case "yml":
		return FormatYAML, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format: %s", s)
}

// Writer renders reports to an underlying stream.
type Writer struct {
	format Format
	w      io.Writer
}

func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{format: format, w: w}
}

// Structured reports whether the writer emits JSON or YAML.
func (w *Writer) Structured() bool {
	return w.format == FormatJSON || w.format == FormatYAML
}

// Report writes data for structured formats and text otherwise, so a
// command can keep its machine-readable shape apart from its display.
func (w *Writer) Report(data interface{}, text fmt.Stringer) error {
	if w.Structured() {
		return w.Write(data)
	}
	return w.Write(text)
}

// Write renders v in the writer's format. Text output uses v's String
// method when it has one.
func (w *Writer) Write(v interface{}) error {
	switch w.format {
	case FormatJSON:
		return w.encodeJSON(v)
	case FormatYAML:
		return w.encodeYAML(v)
	}
	return w.writeText(v)
}

func (w *Writer) encodeJSON(v interface{}) error {
	enc := json.NewEncoder(w.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (w *Writer) encodeYAML(v interface{}) error {
	enc := yaml.NewEncoder(w.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (w *Writer) writeText(v interface{}) error {
	var err error
	if s, ok := v.(fmt.Stringer); ok {
		_, err = fmt.Fprintln(w.w, s.String())
	} else {
		_, err = fmt.Fprintf(w.w, "%+v\n", v)
	}
	return err
}

var (
	okLabel   = color.New(color.FgGreen)
	warnLabel = color.New(color.FgYellow)
	failLabel = color.New(color.FgRed)
	dimText   = color.New(color.Faint)
	boldText  = color.New(color.Bold)
)

// OK marks a step that succeeded or needed no change.
func OK(s string) string { return okLabel.Sprint(s) }

// Warn marks a step that was skipped or left something behind.
func Warn(s string) string { return warnLabel.Sprint(s) }

// Fail marks an error.
func Fail(s string) string { return failLabel.Sprint(s) }

// Dim renders paths and other secondary detail.
func Dim(s string) string { return dimText.Sprint(s) }

// Bold renders a heading.
func Bold(s string) string { return boldText.Sprint(s) }
