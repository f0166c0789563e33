package console

import (
	"bytes"
	"errors"
	"testing"
)

func TestCRLFWriter(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"State: Gate Open\n", "State: Gate Open\r\n"},
		{"a\nb\n", "a\r\nb\r\n"},
		{"already\r\n", "already\r\n"},
		{"no newline", "no newline"},
		{"\n", "\r\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		w := NewCRLFWriter(&buf)
		n, err := w.Write([]byte(tt.in))
		if err != nil {
			t.Fatalf("write %q: %v", tt.in, err)
		}
		if n != len(tt.in) {
			t.Errorf("write %q: n = %d, want %d", tt.in, n, len(tt.in))
		}
		if got := buf.String(); got != tt.want {
			t.Errorf("write %q: got %q, want %q", tt.in, got, tt.want)
		}
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("line down")
}

func TestCRLFWriterError(t *testing.T) {
	w := NewCRLFWriter(failWriter{})
	if _, err := w.Write([]byte("x\n")); err == nil {
		t.Error("expected the sink error")
	}
}

func TestNewFansOut(t *testing.T) {
	var serialBuf, stderr bytes.Buffer
	logger := New(NewCRLFWriter(&serialBuf), &stderr)
	logger.Print("Gate controller ready")

	if got := serialBuf.String(); got != "Gate controller ready\r\n" {
		t.Errorf("serial: got %q", got)
	}
	if got := stderr.String(); got != "Gate controller ready\n" {
		t.Errorf("stderr: got %q", got)
	}
}

func TestMode(t *testing.T) {
	m := Mode()
	if m.BaudRate != 9600 || m.DataBits != 8 {
		t.Errorf("mode: %+v", m)
	}
}

func TestOpenMissingDevice(t *testing.T) {
	if _, err := Open("/dev/does-not-exist-gate"); err == nil {
		t.Error("expected an error opening a missing device")
	}
}
