package logger

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestCustomFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(logrus.DebugLevel, &buf)
	l.WithField("store", "s1").WithField("analysis", "visual").Warn("scorecard computed")

	line := buf.String()
	if !strings.Contains(line, "[WARN] [logger_test.go:") {
		t.Errorf("missing level or caller: %q", line)
	}
	if !strings.HasSuffix(line, "scorecard computed analysis=visual store=s1\n") {
		t.Errorf("unexpected fields: %q", line)
	}
}

func TestInitLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "radar.log")
	if err := InitLogger("debug", path); err != nil {
		t.Fatalf("InitLogger() error = %v", err)
	}
	if Log.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", Log.GetLevel())
	}
	if err := InitLogger("nonsense", ""); err != nil {
		t.Fatal(err)
	}
	if Log.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info fallback", Log.GetLevel())
	}
}
