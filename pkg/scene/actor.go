package scene

// Vector is a 3-component float vector.
type Vector struct {
	X, Y, Z float32
}

// Rotator is an orientation in degrees.
type Rotator struct {
	Pitch, Yaw, Roll float32
}

// Transform is an object's placement in the level.
type Transform struct {
	Location Vector
	Rotation Rotator
	Scale    Vector
}

// IdentityTransform is the placement of a freshly spawned object.
var IdentityTransform = Transform{Scale: Vector{X: 1, Y: 1, Z: 1}}

// LinearColor is an RGBA color with float components.
type LinearColor struct {
	R, G, B, A float32
}

// Actor is World's object implementation. It carries every attribute the
// default codecs know about; which ones matter depends on its class.
type Actor struct {
	name  string
	class *ClassInfo
	alive bool

	transform Transform
	mesh      string
	materials []string
	color     LinearColor
	intensity float32
}

func newActor(name string, class *ClassInfo) *Actor {
	return &Actor{
		name:      name,
		class:     class,
		alive:     true,
		transform: IdentityTransform,
		color:     LinearColor{R: 1, G: 1, B: 1, A: 1},
	}
}

func (a *Actor) Name() string { return a.name }
func (a *Actor) Alive() bool  { return a.alive }
func (a *Actor) Class() Class { return a.class }

// ClassInfo returns the concrete class node.
func (a *Actor) ClassInfo() *ClassInfo { return a.class }

func (a *Actor) Transform() Transform     { return a.transform }
func (a *Actor) SetTransform(t Transform) { a.transform = t }

// SetLocation moves the actor without touching rotation or scale.
func (a *Actor) SetLocation(v Vector) { a.transform.Location = v }

func (a *Actor) Mesh() string        { return a.mesh }
func (a *Actor) SetMesh(ref string)  { a.mesh = ref }
func (a *Actor) Materials() []string { return append([]string(nil), a.materials...) }

// SetMaterial assigns a material to slot i, growing the slot list as needed.
func (a *Actor) SetMaterial(i int, ref string) {
	if i < 0 {
		return
	}
	for len(a.materials) <= i {
		a.materials = append(a.materials, "")
	}
	a.materials[i] = ref
}

func (a *Actor) LightColor() LinearColor     { return a.color }
func (a *Actor) SetLightColor(c LinearColor) { a.color = c }
func (a *Actor) Intensity() float32          { return a.intensity }
func (a *Actor) SetIntensity(v float32)      { a.intensity = v }
