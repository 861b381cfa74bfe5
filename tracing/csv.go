package tracing

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/tebeka/atexit"
)

// CSVSink is a trace sink that stores event records in a CSV file, one line
// per record.
type CSVSink struct {
	lock   sync.Mutex
	path   string
	file   *os.File
	writer *bufio.Writer
	closed bool

	records    []EventRecord
	bufferSize int
}

// NewCSVSink creates the trace file and writes the header. If the file
// already exists, it will be overwritten.
func NewCSVSink(path string) (*CSVSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace %s: %w", path, err)
	}

	s := &CSVSink{
		path:       path,
		file:       file,
		writer:     bufio.NewWriter(file),
		bufferSize: 1000,
	}

	_, err = fmt.Fprintf(s.writer, "%s\n", strings.Join(Header, ","))
	if err == nil {
		err = s.writer.Flush()
	}

	if err != nil {
		file.Close()
		return nil, fmt.Errorf("write trace header: %w", err)
	}

	atexit.Register(func() {
		_ = s.Close()
	})

	return s, nil
}

// WithBufferSize sets how many records are kept in memory before they are
// written to the file.
func (s *CSVSink) WithBufferSize(n int) *CSVSink {
	s.bufferSize = n
	return s
}

// Path returns the path of the trace file.
func (s *CSVSink) Path() string {
	return s.path
}

// Write buffers a record.
func (s *CSVSink) Write(rec EventRecord) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	s.records = append(s.records, rec)
	if len(s.records) >= s.bufferSize {
		return s.flush()
	}

	return nil
}

// Flush writes the buffered records to the file.
func (s *CSVSink) Flush() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return nil
	}

	return s.flush()
}

func (s *CSVSink) flush() error {
	for _, rec := range s.records {
		_, err := fmt.Fprintf(s.writer, "%s\n", strings.Join(rec.Row(), ","))
		if err != nil {
			return fmt.Errorf("write trace %s: %w", s.path, err)
		}
	}

	s.records = nil

	return s.writer.Flush()
}

// Close flushes the remaining records and closes the file.
func (s *CSVSink) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return nil
	}

	flushErr := s.flush()
	s.closed = true
	closeErr := s.file.Close()

	if flushErr != nil {
		return flushErr
	}

	return closeErr
}
