//go:build !release

package log

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevFlags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(log.Lshortfile)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func TestLogging(t *testing.T) {
	buf := captureOutput(t)

	tests := []struct {
		name     string
		fn       func()
		expected string
	}{
		{name: "Print", fn: func() { Print("test print") }, expected: "test print"},
		{name: "Printf", fn: func() { Printf("test printf %d", 123) }, expected: "test printf 123"},
		{name: "Println", fn: func() { Println("test println") }, expected: "test println"},
		{name: "Debug", fn: func() { Debug("test debug") }, expected: "[DEBUG] test debug"},
		{name: "Debugf", fn: func() { Debugf("test debugf %s", "foo") }, expected: "[DEBUG] test debugf foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.fn()
			assert.Contains(t, buf.String(), tt.expected)
		})
	}
}

func TestCallerIsReported(t *testing.T) {
	buf := captureOutput(t)

	Printf("where am i")
	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "log_test.go:"), "expected caller file, got %q", line)
}
