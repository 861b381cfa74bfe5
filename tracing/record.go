package tracing

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the kind of an observable process action.
type Kind int

// The kinds of event records.
const (
	KindReceived Kind = iota + 1
	KindSent
	KindInternal
	KindBroadcast
)

var kindTags = map[Kind]string{
	KindReceived:  "Events.RECEIVED_MSG",
	KindSent:      "Events.SENT_MSG",
	KindInternal:  "Events.INTERNAL_EVENT",
	KindBroadcast: "Events.BROADCAST_MSG",
}

// AllKinds lists every kind in tag order.
var AllKinds = []Kind{KindReceived, KindSent, KindInternal, KindBroadcast}

// String returns the tag written in the Event column of a trace.
func (k Kind) String() string {
	if tag, ok := kindTags[k]; ok {
		return tag
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts an Event column tag back to a Kind.
func ParseKind(tag string) (Kind, error) {
	for k, t := range kindTags {
		if t == tag {
			return k, nil
		}
	}

	return 0, fmt.Errorf("unknown event tag %q", tag)
}

// NullPort is written in place of a port list that is empty.
const NullPort = "NULL"

// Ports is an ordered list of ports. An empty list is written as NULL and a
// list of several ports is joined with colons.
type Ports []int

func (p Ports) String() string {
	if len(p) == 0 {
		return NullPort
	}

	s := make([]string, len(p))
	for i, port := range p {
		s[i] = strconv.Itoa(port)
	}

	return strings.Join(s, ":")
}

// ParsePorts parses the textual form produced by Ports.String.
func ParsePorts(s string) (Ports, error) {
	if s == NullPort || s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ":")
	ports := make(Ports, len(parts))

	for i, part := range parts {
		port, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid port list %q: %w", s, err)
		}

		ports[i] = port
	}

	return ports, nil
}

// An EventRecord describes one observable action of a process. Records are
// never modified after they are written.
type EventRecord struct {
	Kind        Kind
	WallTime    float64
	LogicalTime uint64
	QueueLen    int
	FromPort    Ports
	ToPort      Ports
}

// Header is the header line of a CSV trace.
var Header = []string{
	"Event", "TimeGlob", "TimeLocal", "QueueLen", "FromPort", "ToPort",
}

// Row returns the record as CSV fields in Header order.
func (r EventRecord) Row() []string {
	return []string{
		r.Kind.String(),
		strconv.FormatFloat(r.WallTime, 'f', -1, 64),
		strconv.FormatUint(r.LogicalTime, 10),
		strconv.Itoa(r.QueueLen),
		r.FromPort.String(),
		r.ToPort.String(),
	}
}

// ParseRow converts CSV fields in Header order to a record.
func ParseRow(row []string) (EventRecord, error) {
	if len(row) != len(Header) {
		return EventRecord{}, fmt.Errorf(
			"expected %d fields, got %d", len(Header), len(row))
	}

	kind, err := ParseKind(row[0])
	if err != nil {
		return EventRecord{}, err
	}

	wallTime, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return EventRecord{}, fmt.Errorf("invalid TimeGlob: %w", err)
	}

	logicalTime, err := strconv.ParseUint(row[2], 10, 64)
	if err != nil {
		return EventRecord{}, fmt.Errorf("invalid TimeLocal: %w", err)
	}

	queueLen, err := strconv.Atoi(row[3])
	if err != nil {
		return EventRecord{}, fmt.Errorf("invalid QueueLen: %w", err)
	}

	from, err := ParsePorts(row[4])
	if err != nil {
		return EventRecord{}, err
	}

	to, err := ParsePorts(row[5])
	if err != nil {
		return EventRecord{}, err
	}

	return EventRecord{
		Kind:        kind,
		WallTime:    wallTime,
		LogicalTime: logicalTime,
		QueueLen:    queueLen,
		FromPort:    from,
		ToPort:      to,
	}, nil
}
