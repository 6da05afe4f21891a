package protocol

import "fmt"

// Update is the decoded form of an Update frame payload: the level the
// changes belong to, followed by commands in stream order.
type Update struct {
	Level    string
	Commands []Command
}

// EncodeUpdate encodes an Update payload, header byte included.
//
// Format: ['e'][string level][command]*
func EncodeUpdate(u *Update) []byte {
	e := NewEncoder()
	EncodeUpdateTo(e, u)
	return e.Bytes()
}

// EncodeUpdateTo encodes an Update payload using the provided encoder.
func EncodeUpdateTo(e *Encoder, u *Update) {
	e.WriteByte(byte(HeaderUpdate))
	e.WriteString(u.Level)
	for i := range u.Commands {
		EncodeCommandTo(e, &u.Commands[i])
	}
}

// DecodeUpdate decodes an Update payload. Commands are consumed until the
// payload is exhausted. On a malformed command the returned Update still
// holds every command decoded before it, so callers may apply that prefix.
func DecodeUpdate(payload []byte) (*Update, error) {
	d := NewDecoder(payload)

	h, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if Header(h) != HeaderUpdate {
		return nil, fmt.Errorf("protocol: expected Update header, got %s", Header(h))
	}

	u := &Update{}
	if u.Level, err = d.ReadString(); err != nil {
		return nil, err
	}

	for !d.EOF() {
		c, err := DecodeCommandFrom(d)
		if err != nil {
			return u, fmt.Errorf("protocol: command %d at offset %d: %w", len(u.Commands), d.Position(), err)
		}
		u.Commands = append(u.Commands, c)
	}

	return u, nil
}

// ExitPayload returns the payload of an Exit frame.
func ExitPayload() []byte {
	return []byte{byte(HeaderExit)}
}
