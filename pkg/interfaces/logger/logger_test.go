package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestBasicLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf).With(F("viewer", "u-1"))
	l.Info("delivered", F("kind", "new_event"))

	line := buf.String()
	if !strings.Contains(line, "[INFO] delivered") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.Contains(line, "kind=new_event viewer=u-1") {
		t.Fatalf("expected sorted fields, got %q", line)
	}
}

func TestLogrusAdapterWritesFields(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	FromLogrus(base).With(F("component", "dedup")).Warn("duplicate", F("key", "k1"))

	out := buf.String()
	for _, want := range []string{`"component":"dedup"`, `"key":"k1"`, `"msg":"duplicate"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestLevelFromEnv(t *testing.T) {
	if levelFromEnv("DEBUG") != logrus.DebugLevel {
		t.Fatalf("expected debug level")
	}
	if levelFromEnv("") != logrus.InfoLevel {
		t.Fatalf("expected info default")
	}
}
