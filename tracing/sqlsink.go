package tracing

import (
	"sync"

	"github.com/sarchlab/lamportsim/datarecording"
)

// EventTable is the table that SQLSink writes into.
const EventTable = "events"

// EventRow is the SQL representation of an EventRecord. Seq numbers the
// records of a process in recording order.
type EventRow struct {
	Seq       int64
	Process   string
	Event     string
	TimeGlob  float64
	TimeLocal int64
	QueueLen  int
	FromPort  string
	ToPort    string
}

func newEventRow(seq int64, process string, rec EventRecord) EventRow {
	return EventRow{
		Seq:       seq,
		Process:   process,
		Event:     rec.Kind.String(),
		TimeGlob:  rec.WallTime,
		TimeLocal: int64(rec.LogicalTime),
		QueueLen:  rec.QueueLen,
		FromPort:  rec.FromPort.String(),
		ToPort:    rec.ToPort.String(),
	}
}

// SQLSink stores event records as rows of a SQL table through a
// DataRecorder.
type SQLSink struct {
	lock     sync.Mutex
	recorder datarecording.DataRecorder
	process  string
	seq      int64
	closed   bool
}

// NewSQLSink creates the event table and returns a sink that tags every row
// with the process name.
func NewSQLSink(
	recorder datarecording.DataRecorder,
	process string,
) *SQLSink {
	recorder.CreateTable(EventTable, EventRow{})

	return &SQLSink{
		recorder: recorder,
		process:  process,
	}
}

// Write buffers a record in the recorder.
func (s *SQLSink) Write(rec EventRecord) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	s.seq++
	s.recorder.InsertData(EventTable, newEventRow(s.seq, s.process, rec))

	return nil
}

// Flush writes the buffered rows.
func (s *SQLSink) Flush() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return nil
	}

	s.recorder.Flush()

	return nil
}

// Close flushes and closes the recorder.
func (s *SQLSink) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	return s.recorder.Close()
}
