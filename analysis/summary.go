// Package analysis summarizes and measures the traces of simulated processes.
package analysis

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/lamportsim/tracing"
)

// ErrNoTraces is returned when an experiment directory holds no trace.
var ErrNoTraces = errors.New("no traces found")

// TraceFileName is the name of the trace file in every process directory.
const TraceFileName = "events.csv"

// Summary describes one trace.
type Summary struct {
	Total  int
	ByKind map[tracing.Kind]int

	// Start and End are the earliest and the latest wall time.
	Start float64
	End   float64

	MinQueueLen int
	MaxQueueLen int

	FinalLogicalTime uint64

	// MeanJump is the mean difference between the logical times of
	// consecutive records.
	MeanJump float64
}

// Duration returns the wall time covered by the trace.
func (s Summary) Duration() float64 {
	return s.End - s.Start
}

// Summarize computes the summary of a trace given in recording order.
func Summarize(records []tracing.EventRecord) Summary {
	s := Summary{
		ByKind: make(map[tracing.Kind]int),
	}

	if len(records) == 0 {
		return s
	}

	first := records[0]
	s.Start, s.End = first.WallTime, first.WallTime
	s.MinQueueLen, s.MaxQueueLen = first.QueueLen, first.QueueLen

	var jumps float64

	for i, r := range records {
		s.Total++
		s.ByKind[r.Kind]++

		s.Start = min(s.Start, r.WallTime)
		s.End = max(s.End, r.WallTime)
		s.MinQueueLen = min(s.MinQueueLen, r.QueueLen)
		s.MaxQueueLen = max(s.MaxQueueLen, r.QueueLen)

		if i > 0 {
			jumps += float64(r.LogicalTime) - float64(records[i-1].LogicalTime)
		}
	}

	s.FinalLogicalTime = records[len(records)-1].LogicalTime

	if len(records) > 1 {
		s.MeanJump = jumps / float64(len(records)-1)
	}

	return s
}

// ProcessSummary is the summary of the trace of one process of an
// experiment.
type ProcessSummary struct {
	Process string
	Path    string
	Summary
}

// SummarizeExperiment summarizes every process trace under an experiment
// directory. The result is ordered by path.
func SummarizeExperiment(dir string) ([]ProcessSummary, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*", TraceFileName))
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoTraces)
	}

	sort.Strings(paths)

	summaries := make([]ProcessSummary, 0, len(paths))
	for _, path := range paths {
		records, err := tracing.ReadCSVFile(path)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, ProcessSummary{
			Process: processName(path),
			Path:    path,
			Summary: Summarize(records),
		})
	}

	return summaries, nil
}

// processName recovers the process name from <name>_log/events.csv.
func processName(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	return strings.TrimSuffix(dir, "_log")
}

// WriteTable prints one line per process summary.
func WriteTable(w io.Writer, summaries []ProcessSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw,
		"PROCESS\tEVENTS\tRECEIVED\tSENT\tBROADCAST\tINTERNAL\t"+
			"DURATION\tQUEUE\tCLOCK\tMEAN JUMP")

	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.3fs\t%d-%d\t%d\t%.3f\n",
			s.Process,
			s.Total,
			s.ByKind[tracing.KindReceived],
			s.ByKind[tracing.KindSent],
			s.ByKind[tracing.KindBroadcast],
			s.ByKind[tracing.KindInternal],
			s.Duration(),
			s.MinQueueLen, s.MaxQueueLen,
			s.FinalLogicalTime,
			s.MeanJump)
	}

	return tw.Flush()
}
