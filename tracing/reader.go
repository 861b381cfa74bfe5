package tracing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// ReadCSV reads a trace written by CSVSink.
func ReadCSV(r io.Reader) ([]EventRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Header)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("trace has no header")
		}

		return nil, err
	}

	if !slices.Equal(header, Header) {
		return nil, fmt.Errorf("unexpected trace header %v", header)
	}

	var records []EventRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}

		if err != nil {
			return nil, err
		}

		rec, err := ParseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		records = append(records, rec)
	}
}

// ReadCSVFile reads the trace stored at path.
func ReadCSVFile(path string) ([]EventRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read trace %s: %w", path, err)
	}

	return records, nil
}
