package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sarchlab/lamportsim/sim"
)

// MaxPayloadSize is the largest payload accepted on one connection.
const MaxPayloadSize = 64 << 10

const (
	keyTick = "tick"
	keyPort = "port"
	keyID   = "id"
)

// ErrMalformedPayload is returned when a payload is not a valid message.
var ErrMalformedPayload = errors.New("malformed payload")

// Encode serializes a message into a single JSON object. Extra fields are
// written alongside tick and port.
func Encode(msg *sim.Msg) ([]byte, error) {
	obj := make(map[string]any, len(msg.Fields)+3)
	for k, v := range msg.Fields {
		obj[k] = v
	}

	obj[keyTick] = msg.Tick
	obj[keyPort] = msg.Port

	if msg.ID != "" {
		obj[keyID] = msg.ID
	}

	return json.Marshal(obj)
}

// Decode parses a payload produced by Encode, or by any peer that writes a
// JSON object holding at least tick and port.
func Decode(data []byte) (*sim.Msg, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	obj := map[string]any{}
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformedPayload)
	}

	tick, err := intField(obj, keyTick)
	if err != nil {
		return nil, err
	}

	if tick < 0 {
		return nil, fmt.Errorf("%w: negative tick %d", ErrMalformedPayload, tick)
	}

	port, err := intField(obj, keyPort)
	if err != nil {
		return nil, err
	}

	b := sim.MsgBuilder{}.
		WithTick(uint64(tick)).
		WithPort(int(port))

	if id, ok := obj[keyID].(string); ok {
		b = b.WithID(id)
	}

	for k, v := range obj {
		if k == keyTick || k == keyPort || k == keyID {
			continue
		}

		b = b.WithField(k, v)
	}

	return b.Build(), nil
}

func intField(obj map[string]any, key string) (int64, error) {
	raw, ok := obj[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrMalformedPayload, key)
	}

	num, ok := raw.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedPayload, key)
	}

	v, err := num.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrMalformedPayload, key)
	}

	return v, nil
}
