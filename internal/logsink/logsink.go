// Package logsink writes the human-readable scenario log to a serial
// terminal (or any file). The device is opened for each burst of lines
// and closed afterwards, so a terminal can be plugged in at any time.
package logsink

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LineEnd terminates every line, as a serial terminal expects.
const LineEnd = "\r\n"

// lineFormatter prints the bare message followed by CRLF.
type lineFormatter struct{}

func (lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	return []byte(e.Message + LineEnd), nil
}

// Sink is a buffered line writer opened around each burst.
type Sink struct {
	open func() (io.WriteCloser, error)

	log *logrus.Logger
	dev io.WriteCloser
	buf *bufio.Writer
}

// New creates a Sink that calls open at the start of every burst.
func New(open func() (io.WriteCloser, error)) *Sink {
	l := logrus.New()
	l.SetFormatter(lineFormatter{})
	l.SetLevel(logrus.InfoLevel)
	l.SetOutput(io.Discard)
	return &Sink{open: open, log: l}
}

// NewDevice creates a Sink writing to the file or tty at path.
func NewDevice(path string) *Sink {
	return New(func() (io.WriteCloser, error) {
		return os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	})
}

// Open starts a burst.
func (s *Sink) Open() error {
	if s.dev != nil {
		return fmt.Errorf("logsink: already open")
	}
	dev, err := s.open()
	if err != nil {
		return fmt.Errorf("logsink: open: %w", err)
	}
	s.dev = dev
	s.buf = bufio.NewWriter(dev)
	s.log.SetOutput(s.buf)
	return nil
}

// WriteLine buffers one line. An empty line is allowed.
func (s *Sink) WriteLine(line string) error {
	if s.dev == nil {
		return fmt.Errorf("logsink: not open")
	}
	s.log.Info(line)
	return nil
}

// Close flushes the burst and closes the device.
func (s *Sink) Close() error {
	if s.dev == nil {
		return nil
	}
	s.log.SetOutput(io.Discard)
	ferr := s.buf.Flush()
	cerr := s.dev.Close()
	s.dev, s.buf = nil, nil
	if ferr != nil {
		return fmt.Errorf("logsink: flush: %w", ferr)
	}
	if cerr != nil {
		return fmt.Errorf("logsink: close: %w", cerr)
	}
	return nil
}
