package analysis

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/sarchlab/lamportsim/sim"
)

// PerfEntry is a single measurement taken over a period of wall time.
type PerfEntry struct {
	Start sim.WallTimeInSec
	End   sim.WallTimeInSec
	Where string
	What  string
	Value float64
	Unit  string
}

// PerfLogger is the interface that provide the service that can record
// performance data entries.
type PerfLogger interface {
	AddDataEntry(entry PerfEntry)
}

// CSVPerfLogger writes performance entries to a CSV file.
type CSVPerfLogger struct {
	lock      sync.Mutex
	file      *os.File
	csvWriter *csv.Writer
}

// NewCSVPerfLogger creates the CSV file at path and writes its header.
func NewCSVPerfLogger(path string) (*CSVPerfLogger, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	l := &CSVPerfLogger{
		file:      file,
		csvWriter: csv.NewWriter(file),
	}

	err = l.csvWriter.Write(
		[]string{"Start", "End", "Where", "What", "Value", "Unit"})
	if err != nil {
		file.Close()
		return nil, err
	}

	return l, nil
}

// AddDataEntry appends an entry to the file.
func (l *CSVPerfLogger) AddDataEntry(entry PerfEntry) {
	l.lock.Lock()
	defer l.lock.Unlock()

	err := l.csvWriter.Write([]string{
		fmt.Sprintf("%.6f", float64(entry.Start)),
		fmt.Sprintf("%.6f", float64(entry.End)),
		entry.Where,
		entry.What,
		fmt.Sprintf("%.6f", entry.Value),
		entry.Unit,
	})
	if err != nil {
		panic(err)
	}
}

// Close flushes the entries and closes the file.
func (l *CSVPerfLogger) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.csvWriter.Flush()
	if err := l.csvWriter.Error(); err != nil {
		l.file.Close()
		return err
	}

	return l.file.Close()
}
