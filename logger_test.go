package modbus

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestLoggerWritesThroughCustomLogger(t *testing.T) {
	var buf bytes.Buffer
	custom := log.New(&buf, "", 0)

	l := newLogger("test", custom)
	l.Info("hello")
	l.Warningf("retry %d", 3)
	l.Errorf("boom: %v", ErrTimeout)

	out := buf.String()
	if !strings.Contains(out, "[info]: hello") {
		t.Errorf("expected an info line, got %q", out)
	}
	if !strings.Contains(out, "[warn]: retry 3") {
		t.Errorf("expected a formatted warning line, got %q", out)
	}
	if !strings.Contains(out, "[error]: boom: "+ErrTimeout.Error()) {
		t.Errorf("expected a formatted error line, got %q", out)
	}

	return
}
