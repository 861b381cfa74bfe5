package sim

// A Msg is a timestamped message that travels from one process to another.
// Tick and Port are always present; Fields carries any extra application data
// opaquely. A Msg must not be modified after it is built.
type Msg struct {
	ID     string
	Tick   uint64
	Port   int
	Fields map[string]any
}

// Field returns the extra field with the given key.
func (m *Msg) Field(key string) (any, bool) {
	v, ok := m.Fields[key]
	return v, ok
}

// MsgBuilder can build messages.
type MsgBuilder struct {
	id     string
	tick   uint64
	port   int
	fields map[string]any
}

// WithID sets the ID of the message. A fresh ID is generated if not set.
func (b MsgBuilder) WithID(id string) MsgBuilder {
	b.id = id
	return b
}

// WithTick sets the logical time carried by the message.
func (b MsgBuilder) WithTick(tick uint64) MsgBuilder {
	b.tick = tick
	return b
}

// WithPort sets the listening port of the sender.
func (b MsgBuilder) WithPort(port int) MsgBuilder {
	b.port = port
	return b
}

// WithField attaches an extra field to the message.
func (b MsgBuilder) WithField(key string, value any) MsgBuilder {
	fields := make(map[string]any, len(b.fields)+1)
	for k, v := range b.fields {
		fields[k] = v
	}

	fields[key] = value
	b.fields = fields

	return b
}

// Build creates a new message.
func (b MsgBuilder) Build() *Msg {
	id := b.id
	if id == "" {
		id = GetIDGenerator().Generate()
	}

	return &Msg{
		ID:     id,
		Tick:   b.tick,
		Port:   b.port,
		Fields: b.fields,
	}
}
