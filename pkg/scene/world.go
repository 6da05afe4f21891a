package scene

import (
	"fmt"
	"slices"
)

// World is an in-memory Scene with a small class hierarchy:
//
//	Actor
//	├── StaticMeshActor
//	└── Light
//	    ├── PointLight
//	    ├── SpotLight
//	    └── DirectionalLight
//
// Loadable classes are added with RegisterBlueprint. World is not safe for
// concurrent use; it belongs to the goroutine that drives the session tick.
type World struct {
	level string

	classes map[string]*ClassInfo // by name
	paths   map[string]*ClassInfo // by asset path

	objects  []*Actor
	byName   map[string]*Actor
	selected []*Actor

	autoName map[string]int
}

// NewWorld creates an empty World for the given level.
func NewWorld(level string) *World {
	w := &World{
		level:    level,
		classes:  make(map[string]*ClassInfo),
		paths:    make(map[string]*ClassInfo),
		byName:   make(map[string]*Actor),
		autoName: make(map[string]int),
	}

	root := &ClassInfo{name: ClassActor}
	w.classes[ClassActor] = root
	w.mustRegister(ClassStaticMeshActor, ClassActor)
	w.mustRegister(ClassLight, ClassActor)
	w.mustRegister(ClassPointLight, ClassLight)
	w.mustRegister(ClassSpotLight, ClassLight)
	w.mustRegister(ClassDirectionalLight, ClassLight)

	return w
}

func (w *World) mustRegister(name, parent string) {
	if _, err := w.RegisterClass(name, parent); err != nil {
		panic(err)
	}
}

// RegisterClass adds an intrinsic class deriving from parent.
func (w *World) RegisterClass(name, parent string) (*ClassInfo, error) {
	p, ok := w.classes[parent]
	if !ok {
		return nil, fmt.Errorf("%w: parent %q", ErrUnknownClass, parent)
	}
	if _, dup := w.classes[name]; dup {
		return nil, fmt.Errorf("scene: class %q already registered", name)
	}
	c := &ClassInfo{name: name, parent: p}
	w.classes[name] = c
	return c, nil
}

// RegisterBlueprint adds a loadable class identified by an asset path such
// as "/Game/Blueprints/BP_Door.BP_Door_C".
func (w *World) RegisterBlueprint(path, parent string) (*ClassInfo, error) {
	p, ok := w.classes[parent]
	if !ok {
		return nil, fmt.Errorf("%w: parent %q", ErrUnknownClass, parent)
	}
	if c, ok := w.paths[path]; ok {
		return c, nil
	}
	c := &ClassInfo{name: blueprintName(path), path: path, parent: p}
	w.paths[path] = c
	return c, nil
}

// LevelName returns the level this world represents.
func (w *World) LevelName() string { return w.level }

// Len returns the number of live objects.
func (w *World) Len() int { return len(w.objects) }

// Objects returns every live object in spawn order.
func (w *World) Objects() []Object {
	out := make([]Object, len(w.objects))
	for i, a := range w.objects {
		out[i] = a
	}
	return out
}

// Selected returns the selection in the order objects were selected.
func (w *World) Selected() []Object {
	out := make([]Object, len(w.selected))
	for i, a := range w.selected {
		out[i] = a
	}
	return out
}

// IsSelected reports whether obj is in the selection.
func (w *World) IsSelected(obj Object) bool {
	a, ok := obj.(*Actor)
	return ok && slices.Contains(w.selected, a)
}

// Select adds a live object to the selection.
func (w *World) Select(obj Object) {
	a, ok := obj.(*Actor)
	if !ok || !a.alive || slices.Contains(w.selected, a) {
		return
	}
	w.selected = append(w.selected, a)
}

// Deselect removes obj from the selection.
func (w *World) Deselect(obj Object) {
	a, ok := obj.(*Actor)
	if !ok {
		return
	}
	w.selected = slices.DeleteFunc(w.selected, func(s *Actor) bool { return s == a })
}

// ClearSelection empties the selection.
func (w *World) ClearSelection() {
	w.selected = w.selected[:0]
}

// FindByName returns the live object named name, or nil.
func (w *World) FindByName(name string) Object {
	if a, ok := w.byName[name]; ok {
		return a
	}
	return nil
}

// Actor returns the live actor named name, or nil.
func (w *World) Actor(name string) *Actor {
	return w.byName[name]
}

// SpawnByPath spawns an object of a registered loadable class.
func (w *World) SpawnByPath(path, name string) (Object, error) {
	c, ok := w.paths[path]
	if !ok {
		return nil, fmt.Errorf("%w: path %q", ErrUnknownClass, path)
	}
	return w.Spawn(c, name)
}

// SpawnByClassName spawns an object of a registered intrinsic class.
func (w *World) SpawnByClassName(class, name string) (Object, error) {
	c, ok := w.classes[class]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	return w.Spawn(c, name)
}

// Spawn creates a live actor of class c. An empty name is replaced by a
// generated one of the form "<Class>_<n>".
func (w *World) Spawn(c *ClassInfo, name string) (*Actor, error) {
	if name == "" {
		name = w.generateName(c.name)
	}
	if _, taken := w.byName[name]; taken {
		return nil, fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	a := newActor(name, c)
	w.objects = append(w.objects, a)
	w.byName[name] = a
	return a, nil
}

func (w *World) generateName(class string) string {
	for {
		n := w.autoName[class]
		w.autoName[class] = n + 1
		name := fmt.Sprintf("%s_%d", class, n)
		if _, taken := w.byName[name]; !taken {
			return name
		}
	}
}

// Destroy removes obj from the level. The handle reports Alive() == false
// afterwards. Destroying a dead object is a no-op.
func (w *World) Destroy(obj Object) {
	a, ok := obj.(*Actor)
	if !ok || !a.alive {
		return
	}
	a.alive = false
	delete(w.byName, a.name)
	w.objects = slices.DeleteFunc(w.objects, func(o *Actor) bool { return o == a })
	w.Deselect(a)
}

// Rename changes a live object's name.
func (w *World) Rename(obj Object, newName string) error {
	a, ok := obj.(*Actor)
	if !ok || !a.alive {
		return ErrNotLive
	}
	if a.name == newName {
		return nil
	}
	if _, taken := w.byName[newName]; taken {
		return fmt.Errorf("%w: %q", ErrNameTaken, newName)
	}
	delete(w.byName, a.name)
	a.name = newName
	w.byName[newName] = a
	return nil
}

// IsA reports whether obj's class is typeName or a subclass of it.
func (w *World) IsA(obj Object, typeName string) bool {
	if a, ok := obj.(*Actor); ok {
		return a.class.Is(typeName)
	}
	if c, ok := obj.Class().(*ClassInfo); ok {
		return c.Is(typeName)
	}
	return obj.Class().Name() == typeName
}
