package tracing

import (
	"context"
	"fmt"

	"github.com/sarchlab/lamportsim/datarecording"
)

// SQLProcesses lists the processes that have records in the event table.
func SQLProcesses(
	ctx context.Context,
	reader datarecording.DataReader,
) ([]string, error) {
	return reader.Distinct(ctx, EventTable, "Process")
}

// ReadSQL reads back the records that SQLSink stored for a process, in
// recording order.
func ReadSQL(
	ctx context.Context,
	reader datarecording.DataReader,
	process string,
) ([]EventRecord, error) {
	reader.MapTable(EventTable, EventRow{})

	rows, _, err := reader.Query(ctx, EventTable, datarecording.QueryParams{
		Where:   "Process = ?",
		Args:    []any{process},
		OrderBy: "Seq",
	})
	if err != nil {
		return nil, fmt.Errorf("read events of %s: %w", process, err)
	}

	records := make([]EventRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.(*EventRow).record()
		if err != nil {
			return nil, fmt.Errorf("event %d of %s: %w",
				r.(*EventRow).Seq, process, err)
		}

		records = append(records, rec)
	}

	return records, nil
}

func (r EventRow) record() (EventRecord, error) {
	kind, err := ParseKind(r.Event)
	if err != nil {
		return EventRecord{}, err
	}

	from, err := ParsePorts(r.FromPort)
	if err != nil {
		return EventRecord{}, err
	}

	to, err := ParsePorts(r.ToPort)
	if err != nil {
		return EventRecord{}, err
	}

	if r.TimeLocal < 0 {
		return EventRecord{}, fmt.Errorf("negative logical time %d",
			r.TimeLocal)
	}

	return EventRecord{
		Kind:        kind,
		WallTime:    r.TimeGlob,
		LogicalTime: uint64(r.TimeLocal),
		QueueLen:    r.QueueLen,
		FromPort:    from,
		ToPort:      to,
	}, nil
}
