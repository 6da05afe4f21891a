package protocol

import (
	"errors"
	"fmt"
)

// Command errors.
var (
	ErrUnknownCommand = errors.New("protocol: unknown command tag")
	ErrUnknownOrigin  = errors.New("protocol: unknown class origin")
)

// CommandKind is the tag byte that selects a Command case inside an Update
// payload. Every tag is distinct, and none is reused for frame headers'
// meaning: a tag is only ever read after the Update header and level name.
type CommandKind byte

const (
	CmdCreate CommandKind = 'c' // Spawn an object of a class under a name
	CmdRemove CommandKind = 'd' // Destroy an object by name
	CmdRename CommandKind = 'n' // Change an object's name
	CmdUpdate CommandKind = 'u' // Replace an object's attributes
)

// String returns the string representation of the command kind.
func (k CommandKind) String() string {
	switch k {
	case CmdCreate:
		return "Create"
	case CmdRemove:
		return "Remove"
	case CmdRename:
		return "Rename"
	case CmdUpdate:
		return "Update"
	default:
		return "Unknown"
	}
}

// ClassOrigin tells a peer how to resolve the class of a created object.
type ClassOrigin byte

const (
	OriginPath      ClassOrigin = 'b' // Class loadable by asset path
	OriginIntrinsic ClassOrigin = 'c' // Engine-intrinsic class looked up by name
)

// String returns the string representation of the class origin.
func (o ClassOrigin) String() string {
	switch o {
	case OriginPath:
		return "path"
	case OriginIntrinsic:
		return "intrinsic"
	default:
		return "unknown"
	}
}

// Valid reports whether o is one of the known origins.
func (o ClassOrigin) Valid() bool {
	return o == OriginPath || o == OriginIntrinsic
}

// Command is one change record inside an Update frame.
//
// Field usage by kind:
//
//	Create: Name, Origin, Class
//	Remove: Name
//	Rename: Name (old), NewName
//	Update: Name, Attributes
type Command struct {
	Kind       CommandKind
	Name       string
	NewName    string
	Origin     ClassOrigin
	Class      string
	Attributes []byte
}

// NewCreate creates a Create command.
func NewCreate(name string, origin ClassOrigin, class string) Command {
	return Command{Kind: CmdCreate, Name: name, Origin: origin, Class: class}
}

// NewRemove creates a Remove command.
func NewRemove(name string) Command {
	return Command{Kind: CmdRemove, Name: name}
}

// NewRename creates a Rename command.
func NewRename(oldName, newName string) Command {
	return Command{Kind: CmdRename, Name: oldName, NewName: newName}
}

// NewUpdate creates an Update command carrying serializer-produced bytes.
func NewUpdate(name string, attrs []byte) Command {
	return Command{Kind: CmdUpdate, Name: name, Attributes: attrs}
}

// String returns a compact description of the command.
func (c Command) String() string {
	switch c.Kind {
	case CmdCreate:
		return fmt.Sprintf("create %q %s %q", c.Name, c.Origin, c.Class)
	case CmdRemove:
		return fmt.Sprintf("remove %q", c.Name)
	case CmdRename:
		return fmt.Sprintf("rename %q -> %q", c.Name, c.NewName)
	case CmdUpdate:
		return fmt.Sprintf("update %q (%d bytes)", c.Name, len(c.Attributes))
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(c.Kind))
	}
}

// EncodeCommandTo encodes a command using the provided encoder.
func EncodeCommandTo(e *Encoder, c *Command) {
	e.WriteByte(byte(c.Kind))

	switch c.Kind {
	case CmdCreate:
		e.WriteString(c.Name)
		e.WriteByte(byte(c.Origin))
		e.WriteString(c.Class)

	case CmdRemove:
		e.WriteString(c.Name)

	case CmdRename:
		e.WriteString(c.Name)
		e.WriteString(c.NewName)

	case CmdUpdate:
		e.WriteString(c.Name)
		e.WriteLenBytes(c.Attributes)
	}
}

// EncodeCommand encodes a single command to bytes.
func EncodeCommand(c *Command) []byte {
	e := NewEncoder()
	EncodeCommandTo(e, c)
	return e.Bytes()
}

// DecodeCommandFrom decodes one command using the provided decoder.
func DecodeCommandFrom(d *Decoder) (Command, error) {
	var c Command

	tag, err := d.ReadByte()
	if err != nil {
		return c, err
	}
	c.Kind = CommandKind(tag)

	switch c.Kind {
	case CmdCreate:
		if c.Name, err = d.ReadString(); err != nil {
			return c, err
		}
		origin, err := d.ReadByte()
		if err != nil {
			return c, err
		}
		c.Origin = ClassOrigin(origin)
		if !c.Origin.Valid() {
			return c, fmt.Errorf("%w: 0x%02x", ErrUnknownOrigin, origin)
		}
		if c.Class, err = d.ReadString(); err != nil {
			return c, err
		}

	case CmdRemove:
		if c.Name, err = d.ReadString(); err != nil {
			return c, err
		}

	case CmdRename:
		if c.Name, err = d.ReadString(); err != nil {
			return c, err
		}
		if c.NewName, err = d.ReadString(); err != nil {
			return c, err
		}

	case CmdUpdate:
		if c.Name, err = d.ReadString(); err != nil {
			return c, err
		}
		if c.Attributes, err = d.ReadLenBytes(); err != nil {
			return c, err
		}

	default:
		return c, fmt.Errorf("%w: 0x%02x", ErrUnknownCommand, tag)
	}

	return c, nil
}

// DecodeCommand decodes a single command from bytes.
func DecodeCommand(data []byte) (Command, error) {
	return DecodeCommandFrom(NewDecoder(data))
}
