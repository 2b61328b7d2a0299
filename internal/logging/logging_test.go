package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestInitText(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Init(&buf, "info", "text")
	slog.Info("hello", "key", "value")

	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("text output missing message: %q", buf.String())
	}
}

func TestInitJSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Init(&buf, "debug", "JSON")
	slog.Debug("detail")

	if !strings.Contains(buf.String(), `"msg":"detail"`) {
		t.Fatalf("json output missing message: %q", buf.String())
	}
	SetLevel(slog.LevelInfo)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input  string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"DEBUG", slog.LevelDebug, true},
		{"info", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"  Error  ", slog.LevelError, true},
		{"", slog.LevelInfo, true},
		{"unknown", slog.LevelInfo, false},
		{"trace", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestComponentHandlerEnabled(t *testing.T) {
	SetLevel(slog.LevelWarn)
	defer SetLevel(slog.LevelInfo)

	prev := slog.Default()
	defer slog.SetDefault(prev)
	Init(&bytes.Buffer{}, "warn", "text")

	h := &componentHandler{component: "test"}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestForTagsComponent(t *testing.T) {
	c := CaptureForTest()
	defer c.Restore()

	For("filestore").Info("record written")
	For("database").Debug("bucket indexed")

	if got := c.FromComponent("filestore"); len(got) != 1 || got[0] != "record written" {
		t.Errorf("FromComponent(filestore) = %v", got)
	}
	if got := c.FromComponent("database"); len(got) != 1 {
		t.Errorf("FromComponent(database) = %v", got)
	}
}

func TestWithAttrsKeepsComponent(t *testing.T) {
	c := CaptureForTest()
	defer c.Restore()

	For("memstore").With("key", "k1").Warn("slow write")

	recs := c.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	attrs := map[string]string{}
	recs[0].Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})
	if attrs["component"] != "memstore" || attrs["key"] != "k1" {
		t.Errorf("unexpected attrs: %v", attrs)
	}
}

func TestCaptureCounts(t *testing.T) {
	c := CaptureForTest()
	defer c.Restore()

	slog.Info("hello")
	slog.Warn("warning message")
	slog.Debug("debug detail")

	if len(c.Records()) != 3 {
		t.Fatalf("expected 3 records, got %d", len(c.Records()))
	}
	if !c.Has(slog.LevelWarn, "warning") {
		t.Error("should have warn 'warning'")
	}
	if c.Has(slog.LevelError, "hello") {
		t.Error("should not match error level")
	}
	if c.Count(slog.LevelInfo) != 1 || c.Count(slog.LevelError) != 0 {
		t.Errorf("unexpected counts: info=%d error=%d", c.Count(slog.LevelInfo), c.Count(slog.LevelError))
	}
}

func TestCaptureRestore(t *testing.T) {
	prev := slog.Default()
	c := CaptureForTest()
	c.Restore()

	if slog.Default() != prev {
		t.Error("default logger not restored")
	}
}
