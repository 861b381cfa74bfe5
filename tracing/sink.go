package tracing

import (
	"errors"
	"sync"
)

// ErrSinkClosed is returned when writing to a sink that has been closed.
var ErrSinkClosed = errors.New("trace sink closed")

// A Sink is an append-only recorder of event records.
type Sink interface {
	// Write appends a record.
	Write(rec EventRecord) error

	// Flush persists buffered records.
	Flush() error

	// Close flushes and releases the sink. Later writes fail with
	// ErrSinkClosed.
	Close() error
}

// MultiSink writes every record to all of its sinks.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a sink that fans out to the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Write writes the record to every sink. A failing sink does not stop the
// others.
func (m *MultiSink) Write(rec EventRecord) error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.Write(rec))
	}

	return errors.Join(errs...)
}

// Flush flushes every sink.
func (m *MultiSink) Flush() error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.Flush())
	}

	return errors.Join(errs...)
}

// Close closes every sink.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.Close())
	}

	return errors.Join(errs...)
}

// MemorySink keeps records in memory. It is useful for short runs and
// analysis.
type MemorySink struct {
	lock    sync.Mutex
	records []EventRecord
	closed  bool
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write appends the record.
func (s *MemorySink) Write(rec EventRecord) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	s.records = append(s.records, rec)

	return nil
}

// Flush does nothing.
func (s *MemorySink) Flush() error {
	return nil
}

// Close stops accepting records.
func (s *MemorySink) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.closed = true

	return nil
}

// Records returns a copy of the records written so far.
func (s *MemorySink) Records() []EventRecord {
	s.lock.Lock()
	defer s.lock.Unlock()

	records := make([]EventRecord, len(s.records))
	copy(records, s.records)

	return records
}
