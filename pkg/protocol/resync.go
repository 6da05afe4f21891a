package protocol

import "fmt"

// ResyncEntry describes one live object in a full-state Resync response:
// enough to create it if missing and to overwrite all of its attributes.
type ResyncEntry struct {
	Name       string
	Origin     ClassOrigin
	Class      string
	Attributes []byte
}

// ResyncRequest returns the payload a client sends to ask for full state.
// A request carries the header only.
func ResyncRequest() []byte {
	return []byte{byte(HeaderResync)}
}

// IsResyncRequest reports whether a Resync payload is a request (no body)
// rather than a full-state response.
func IsResyncRequest(payload []byte) bool {
	return len(payload) == 1 && Header(payload[0]) == HeaderResync
}

// EncodeResync encodes a full-state Resync response, header byte included.
//
// Format: ['r']([string name][byte origin][string class][blob attributes])*
func EncodeResync(entries []ResyncEntry) []byte {
	e := NewEncoder()
	e.WriteByte(byte(HeaderResync))
	for i := range entries {
		encodeResyncEntry(e, &entries[i])
	}
	return e.Bytes()
}

func encodeResyncEntry(e *Encoder, re *ResyncEntry) {
	e.WriteString(re.Name)
	e.WriteByte(byte(re.Origin))
	e.WriteString(re.Class)
	e.WriteLenBytes(re.Attributes)
}

// DecodeResync decodes a full-state Resync response. Like DecodeUpdate, the
// entries decoded before a malformed one are returned alongside the error.
func DecodeResync(payload []byte) ([]ResyncEntry, error) {
	d := NewDecoder(payload)

	h, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if Header(h) != HeaderResync {
		return nil, fmt.Errorf("protocol: expected Resync header, got %s", Header(h))
	}

	var entries []ResyncEntry
	for !d.EOF() {
		var re ResyncEntry
		if re.Name, err = d.ReadString(); err != nil {
			return entries, err
		}
		origin, err := d.ReadByte()
		if err != nil {
			return entries, err
		}
		re.Origin = ClassOrigin(origin)
		if !re.Origin.Valid() {
			return entries, fmt.Errorf("%w: 0x%02x", ErrUnknownOrigin, origin)
		}
		if re.Class, err = d.ReadString(); err != nil {
			return entries, err
		}
		if re.Attributes, err = d.ReadLenBytes(); err != nil {
			return entries, err
		}
		entries = append(entries, re)
	}

	return entries, nil
}
