package analysis

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/sarchlab/lamportsim/datarecording"
	"github.com/sarchlab/lamportsim/tracing"
)

// SQLiteTraceFileName is the name of the SQLite trace in every process
// directory.
const SQLiteTraceFileName = "events.sqlite3"

// SummarizeSQL summarizes every process stored in an SQL trace.
func SummarizeSQL(
	ctx context.Context,
	reader datarecording.DataReader,
	path string,
) ([]ProcessSummary, error) {
	processes, err := tracing.SQLProcesses(ctx, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	summaries := make([]ProcessSummary, 0, len(processes))
	for _, p := range processes {
		records, err := tracing.ReadSQL(ctx, reader, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		summaries = append(summaries, ProcessSummary{
			Process: p,
			Path:    path,
			Summary: Summarize(records),
		})
	}

	return summaries, nil
}

// SummarizeExperimentSQLite summarizes the SQLite traces under an
// experiment directory.
func SummarizeExperimentSQLite(
	ctx context.Context,
	dir string,
) ([]ProcessSummary, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*", SQLiteTraceFileName))
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoTraces)
	}

	sort.Strings(paths)

	var summaries []ProcessSummary
	for _, path := range paths {
		s, err := summarizeSQLiteFile(ctx, path)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, s...)
	}

	return summaries, nil
}

func summarizeSQLiteFile(
	ctx context.Context,
	path string,
) ([]ProcessSummary, error) {
	reader, err := datarecording.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return SummarizeSQL(ctx, reader, path)
}
