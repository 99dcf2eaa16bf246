package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&Config{Level: "chatty", Output: "stdout"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestFileOutputWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l.With(String("run_id", "r-1")).Info("capture done", Int("captured", 17), Error(errors.New("x")))

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(b)
	for _, want := range []string{`"run_id":"r-1"`, `"captured":17`, `"message":"capture done"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line missing %s: %s", want, line)
		}
	}
}

func TestFieldKeyValues(t *testing.T) {
	k, v := Strings("symbols", []string{"INFY", "TCS"}).GetKeyValue()
	if k != "symbols" || v != "INFY, TCS" {
		t.Fatalf("unexpected strings field %s=%v", k, v)
	}
	k, v = Error(nil).GetKeyValue()
	if k != "error" || v != nil {
		t.Fatalf("nil error should map to nil value, got %v", v)
	}
}
