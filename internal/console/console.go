// Package console is the status log: a transmit-only serial line at 9600 8N1
// carrying one CRLF-terminated line per gate event.
package console

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"sync"

	"go.bug.st/serial"
)

// BaudRate is the serial line speed.
const BaudRate = 9600

// Mode returns the 8N1 serial mode.
func Mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Port is an open serial console.
type Port struct {
	port serial.Port
	*CRLFWriter
}

// Open opens the serial device for transmit.
func Open(device string) (*Port, error) {
	p, err := serial.Open(device, Mode())
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return &Port{port: p, CRLFWriter: NewCRLFWriter(p)}, nil
}

// Close closes the serial device.
func (p *Port) Close() error {
	return p.port.Close()
}

// CRLFWriter rewrites bare line feeds as CR LF.
type CRLFWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewCRLFWriter wraps w.
func NewCRLFWriter(w io.Writer) *CRLFWriter {
	return &CRLFWriter{w: w}
}

// Write implements io.Writer. It reports len(p) on success.
func (c *CRLFWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p)+bytes.Count(p, []byte{'\n'}))
	for i, b := range p {
		if b == '\n' && (i == 0 || p[i-1] != '\r') {
			out = append(out, '\r')
		}
		out = append(out, b)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// New returns the console logger writing bare lines to every sink.
func New(sinks ...io.Writer) *log.Logger {
	return log.New(io.MultiWriter(sinks...), "", 0)
}
