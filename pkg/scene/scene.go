package scene

import (
	"errors"

	"github.com/mapsync-dev/mapsync/pkg/protocol"
)

// Scene errors.
var (
	// ErrUnknownClass is returned when a spawn names a class the host cannot resolve.
	ErrUnknownClass = errors.New("scene: unknown class")

	// ErrNameTaken is returned when a spawn or rename would duplicate a live name.
	ErrNameTaken = errors.New("scene: name already in use")

	// ErrNotLive is returned when an operation targets a destroyed object.
	ErrNotLive = errors.New("scene: object is not live")
)

// Object is a non-owning handle to a placeable scene object. The handle
// stays valid after the object is destroyed; Alive reports false from then on.
type Object interface {
	Name() string
	Alive() bool
	Class() Class
}

// Class is the identity of an object's concrete type.
type Class interface {
	// Name is the intrinsic type name, e.g. "PointLight".
	Name() string

	// Path is the asset path of a loadable class. Empty for intrinsic classes.
	Path() string

	// Loadable reports whether the class is resolved by Path rather than Name.
	Loadable() bool
}

// TypeChecker answers type-compatibility queries against the host's class
// hierarchy.
type TypeChecker interface {
	// IsA reports whether obj's class is typeName or derives from it.
	IsA(obj Object, typeName string) bool
}

// Scene is the host scene graph as seen by the synchronization core.
//
// All methods are called from the session's tick goroutine only.
type Scene interface {
	TypeChecker

	// LevelName identifies the loaded level. Peers on a different level
	// ignore each other's changes.
	LevelName() string

	// Objects returns every live object.
	Objects() []Object

	// Selected returns the live objects in the current selection.
	Selected() []Object
	IsSelected(obj Object) bool
	Deselect(obj Object)

	// FindByName returns the live object with the given name, or nil.
	FindByName(name string) Object

	// SpawnByPath creates an object of a loadable class under name.
	SpawnByPath(path, name string) (Object, error)

	// SpawnByClassName creates an object of an intrinsic class under name.
	SpawnByClassName(class, name string) (Object, error)

	Destroy(obj Object)
	Rename(obj Object, newName string) error
}

// ClassRef returns how a peer should resolve obj's class: by asset path for
// loadable classes, by intrinsic name otherwise.
func ClassRef(obj Object) (protocol.ClassOrigin, string) {
	c := obj.Class()
	if c.Loadable() {
		return protocol.OriginPath, c.Path()
	}
	return protocol.OriginIntrinsic, c.Name()
}

// Spawn creates an object using the resolution strategy named by origin.
func Spawn(s Scene, origin protocol.ClassOrigin, class, name string) (Object, error) {
	switch origin {
	case protocol.OriginPath:
		return s.SpawnByPath(class, name)
	case protocol.OriginIntrinsic:
		return s.SpawnByClassName(class, name)
	default:
		return nil, protocol.ErrUnknownOrigin
	}
}
