package serializer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mapsync-dev/mapsync/pkg/scene"
)

// Registry errors.
var (
	// ErrDuplicateDescriptor is returned when two descriptors share an ID.
	ErrDuplicateDescriptor = errors.New("serializer: duplicate descriptor")

	// ErrTrailingData is returned by Decode when bytes remain after every
	// matching descriptor has run, which means the peers disagree on the
	// descriptor set.
	ErrTrailingData = errors.New("serializer: trailing attribute data")
)

// Descriptor is one type-scoped attribute codec.
type Descriptor interface {
	// ID orders descriptors within a registry. It must be unique.
	ID() string

	// SupportedType is the most-derived type the descriptor handles. It is
	// applied to objects of that type and every subtype.
	SupportedType() string

	// Serialize visits obj's attributes through ar in either direction.
	Serialize(ar *Archive, obj scene.Object)
}

// Func adapts a function to the Descriptor interface.
type Func struct {
	Name string
	Type string
	Fn   func(ar *Archive, obj scene.Object)
}

// NewFunc creates a descriptor from a function.
func NewFunc(id, supportedType string, fn func(ar *Archive, obj scene.Object)) *Func {
	return &Func{Name: id, Type: supportedType, Fn: fn}
}

func (f *Func) ID() string            { return f.Name }
func (f *Func) SupportedType() string { return f.Type }

// Serialize calls f.Fn.
func (f *Func) Serialize(ar *Archive, obj scene.Object) { f.Fn(ar, obj) }

// Registry holds descriptors ordered by ID and dispatches objects to every
// descriptor whose supported type the object satisfies. Because the order
// is fixed, the byte layout of an object matching several descriptors is
// the same on every peer with the same registry.
//
// A Registry is populated once at session start and is then read-only.
type Registry struct {
	types scene.TypeChecker
	descs []Descriptor
}

// New creates a registry. types answers the IsA questions used for
// dispatch; it is usually the session's Scene.
func New(types scene.TypeChecker, descs ...Descriptor) (*Registry, error) {
	r := &Registry{types: types}
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a descriptor, keeping the registry sorted by ID.
func (r *Registry) Register(d Descriptor) error {
	id := d.ID()
	i := sort.Search(len(r.descs), func(i int) bool { return r.descs[i].ID() >= id })
	if i < len(r.descs) && r.descs[i].ID() == id {
		return fmt.Errorf("%w: %q", ErrDuplicateDescriptor, id)
	}
	r.descs = append(r.descs, nil)
	copy(r.descs[i+1:], r.descs[i:])
	r.descs[i] = d
	return nil
}

// Len returns the number of descriptors.
func (r *Registry) Len() int { return len(r.descs) }

// Descriptors returns the descriptors in dispatch order.
func (r *Registry) Descriptors() []Descriptor {
	return append([]Descriptor(nil), r.descs...)
}

// Matching returns the descriptors that apply to obj, in dispatch order.
func (r *Registry) Matching(obj scene.Object) []Descriptor {
	var out []Descriptor
	for _, d := range r.descs {
		if r.types.IsA(obj, d.SupportedType()) {
			out = append(out, d)
		}
	}
	return out
}

// Encode serializes obj's attributes with every matching descriptor and
// returns the concatenation. An object matching no descriptor encodes to an
// empty, non-nil slice.
func (r *Registry) Encode(obj scene.Object) ([]byte, error) {
	ar := NewWriter()
	for _, d := range r.descs {
		if !r.types.IsA(obj, d.SupportedType()) {
			continue
		}
		d.Serialize(ar, obj)
		if err := ar.Err(); err != nil {
			return nil, fmt.Errorf("serializer: encode %q with %s: %w", obj.Name(), d.ID(), err)
		}
	}
	out := ar.Bytes()
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// Decode applies data to obj with every matching descriptor, in the same
// order Encode uses. Fields decoded before an error stay applied.
func (r *Registry) Decode(obj scene.Object, data []byte) error {
	ar := NewReader(data)
	for _, d := range r.descs {
		if !r.types.IsA(obj, d.SupportedType()) {
			continue
		}
		d.Serialize(ar, obj)
		if err := ar.Err(); err != nil {
			return fmt.Errorf("serializer: decode %q with %s: %w", obj.Name(), d.ID(), err)
		}
	}
	if n := ar.Remaining(); n > 0 {
		return fmt.Errorf("%w: %d bytes for %q", ErrTrailingData, n, obj.Name())
	}
	return nil
}
