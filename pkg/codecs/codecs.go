// Package codecs provides the default attribute descriptors: actor
// transform, static mesh and materials, and light color and intensity.
//
// Each descriptor targets a capability interface rather than a concrete
// type. An object of a supported class that lacks the capability is
// skipped and contributes no bytes.
package codecs

import (
	"fmt"

	"github.com/mapsync-dev/mapsync/pkg/scene"
	"github.com/mapsync-dev/mapsync/pkg/serializer"
)

// Descriptor IDs. Dispatch order follows their lexical order.
const (
	TransformID  = "actor.transform"
	LightID      = "light.color"
	StaticMeshID = "staticmesh.materials"
)

// MaxMaterials bounds the material slot count accepted from a peer.
const MaxMaterials = 256

// Transformable is an object with a placement.
type Transformable interface {
	Transform() scene.Transform
	SetTransform(t scene.Transform)
}

// MeshHolder is an object that renders a static mesh with material slots.
type MeshHolder interface {
	Mesh() string
	SetMesh(ref string)
	Materials() []string
	SetMaterial(i int, ref string)
}

// LightEmitter is an object with a light component.
type LightEmitter interface {
	LightColor() scene.LinearColor
	SetLightColor(c scene.LinearColor)
	Intensity() float32
	SetIntensity(v float32)
}

// Default returns the built-in descriptors.
func Default() []serializer.Descriptor {
	return []serializer.Descriptor{
		serializer.NewFunc(TransformID, scene.ClassActor, serializeTransform),
		serializer.NewFunc(StaticMeshID, scene.ClassStaticMeshActor, serializeStaticMesh),
		serializer.NewFunc(LightID, scene.ClassLight, serializeLight),
	}
}

// NewRegistry builds a registry holding the default descriptors followed by
// extra ones.
func NewRegistry(types scene.TypeChecker, extra ...serializer.Descriptor) (*serializer.Registry, error) {
	return serializer.New(types, append(Default(), extra...)...)
}

func vector(ar *serializer.Archive, v *scene.Vector) {
	ar.Float32(&v.X)
	ar.Float32(&v.Y)
	ar.Float32(&v.Z)
}

func rotator(ar *serializer.Archive, r *scene.Rotator) {
	ar.Float32(&r.Pitch)
	ar.Float32(&r.Yaw)
	ar.Float32(&r.Roll)
}

// serializeTransform: location, rotation, scale.
func serializeTransform(ar *serializer.Archive, obj scene.Object) {
	t, ok := obj.(Transformable)
	if !ok {
		return
	}
	tr := t.Transform()
	vector(ar, &tr.Location)
	rotator(ar, &tr.Rotation)
	vector(ar, &tr.Scale)
	if ar.Loading() && ar.Err() == nil {
		t.SetTransform(tr)
	}
}

// serializeStaticMesh: mesh reference, material count, material references.
func serializeStaticMesh(ar *serializer.Archive, obj scene.Object) {
	m, ok := obj.(MeshHolder)
	if !ok {
		return
	}

	mesh := m.Mesh()
	ar.String(&mesh)

	if !ar.Loading() {
		mats := m.Materials()
		count := int32(len(mats))
		ar.Int32(&count)
		for i := range mats {
			ar.String(&mats[i])
		}
		return
	}

	var count int32
	ar.Int32(&count)
	if ar.Err() != nil {
		return
	}
	if count < 0 || count > MaxMaterials {
		ar.SetError(fmt.Errorf("%w: %d", ErrMaterialCount, count))
		return
	}
	mats := make([]string, count)
	for i := range mats {
		ar.String(&mats[i])
	}
	if ar.Err() != nil {
		return
	}
	m.SetMesh(mesh)
	for i, ref := range mats {
		m.SetMaterial(i, ref)
	}
}

// serializeLight: linear color, intensity.
func serializeLight(ar *serializer.Archive, obj scene.Object) {
	l, ok := obj.(LightEmitter)
	if !ok {
		return
	}
	c := l.LightColor()
	ar.Float32(&c.R)
	ar.Float32(&c.G)
	ar.Float32(&c.B)
	ar.Float32(&c.A)
	intensity := l.Intensity()
	ar.Float32(&intensity)
	if ar.Loading() && ar.Err() == nil {
		l.SetLightColor(c)
		l.SetIntensity(intensity)
	}
}
