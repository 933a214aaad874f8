package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

type sample struct {
	Name  string `json:"name" yaml:"name"`
	AppID int    `json:"app_id" yaml:"app_id"`
}

func (s sample) String() string {
	return s.Name + " [" + string(rune('0'+s.AppID)) + "]"
}

func TestWriterFormats(t *testing.T) {
	v := sample{Name: "Portal", AppID: 4}

	tests := []struct {
		format Format
		want   string
	}{
		{FormatText, "Portal [4]\n"},
		{FormatJSON, "{\n  \"name\": \"Portal\",\n  \"app_id\": 4\n}\n"},
		{FormatYAML, "name: Portal\napp_id: 4\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewWriter(&buf, tt.format).Write(v); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Write() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestWriterTextFallback(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf, FormatText).Write(struct{ A int }{A: 1}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "A:1") {
		t.Errorf("Write() = %q", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatText, "text": FormatText, "JSON": FormatJSON, "yml": FormatYAML, "YAML": FormatYAML}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) expected error")
	}
}

func TestReport(t *testing.T) {
	data := map[string]int{"app_id": 4}
	text := sample{Name: "Portal", AppID: 4}

	var buf bytes.Buffer
	if err := NewWriter(&buf, FormatJSON).Report(data, text); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if buf.String() != "{\n  \"app_id\": 4\n}\n" {
		t.Errorf("json Report() = %q", buf.String())
	}

	buf.Reset()
	if err := NewWriter(&buf, FormatText).Report(data, text); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if buf.String() != "Portal [4]\n" {
		t.Errorf("text Report() = %q", buf.String())
	}
}

func TestStructured(t *testing.T) {
	if NewWriter(nil, FormatText).Structured() {
		t.Error("text writer should not be structured")
	}
	if !NewWriter(nil, FormatJSON).Structured() {
		t.Error("json writer should be structured")
	}
}

func TestLabelsWithoutColor(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	if OK("ok") != "ok" || Warn("w") != "w" || Fail("f") != "f" || Dim("d") != "d" || Bold("b") != "b" {
		t.Error("labels should be plain when colour is disabled")
	}
}
