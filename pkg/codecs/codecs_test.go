package codecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapsync-dev/mapsync/pkg/protocol"
	"github.com/mapsync-dev/mapsync/pkg/scene"
	"github.com/mapsync-dev/mapsync/pkg/serializer"
)

func newPair(t *testing.T) (*scene.World, *serializer.Registry, *scene.World, *serializer.Registry) {
	t.Helper()
	src := scene.NewWorld("Demo")
	dst := scene.NewWorld("Demo")
	srcReg, err := NewRegistry(src)
	require.NoError(t, err)
	dstReg, err := NewRegistry(dst)
	require.NoError(t, err)
	return src, srcReg, dst, dstReg
}

func TestDefaultOrder(t *testing.T) {
	reg, err := NewRegistry(scene.NewWorld("Demo"))
	require.NoError(t, err)

	var ids []string
	for _, d := range reg.Descriptors() {
		ids = append(ids, d.ID())
	}
	assert.Equal(t, []string{TransformID, LightID, StaticMeshID}, ids)
}

func TestLightRoundTrip(t *testing.T) {
	src, srcReg, dst, dstReg := newPair(t)

	obj, err := src.SpawnByClassName(scene.ClassPointLight, "Light1")
	require.NoError(t, err)
	light := obj.(*scene.Actor)
	light.SetLocation(scene.Vector{X: 100, Y: -20, Z: 300})
	light.SetLightColor(scene.LinearColor{R: 1, G: 0.5, B: 0.25, A: 1})
	light.SetIntensity(5000)

	data, err := srcReg.Encode(light)
	require.NoError(t, err)
	assert.Len(t, data, 9*4+5*4, "transform + light")

	peer, err := dst.SpawnByClassName(scene.ClassPointLight, "Light1")
	require.NoError(t, err)
	require.NoError(t, dstReg.Decode(peer, data))

	got := peer.(*scene.Actor)
	assert.Equal(t, light.Transform(), got.Transform())
	assert.Equal(t, light.LightColor(), got.LightColor())
	assert.Equal(t, float32(5000), got.Intensity())
}

func TestStaticMeshRoundTrip(t *testing.T) {
	src, srcReg, dst, dstReg := newPair(t)

	obj, _ := src.SpawnByClassName(scene.ClassStaticMeshActor, "Cube1")
	cube := obj.(*scene.Actor)
	cube.SetMesh("/Engine/BasicShapes/Cube.Cube")
	cube.SetMaterial(0, "/Game/Materials/M_Red.M_Red")
	cube.SetMaterial(1, "/Game/Materials/M_Blue.M_Blue")
	cube.SetTransform(scene.Transform{
		Location: scene.Vector{X: 1, Y: 2, Z: 3},
		Rotation: scene.Rotator{Yaw: 90},
		Scale:    scene.Vector{X: 2, Y: 2, Z: 2},
	})

	data, err := srcReg.Encode(cube)
	require.NoError(t, err)

	peer, _ := dst.SpawnByClassName(scene.ClassStaticMeshActor, "Cube1")
	require.NoError(t, dstReg.Decode(peer, data))

	got := peer.(*scene.Actor)
	assert.Equal(t, cube.Transform(), got.Transform())
	assert.Equal(t, cube.Mesh(), got.Mesh())
	assert.Equal(t, cube.Materials(), got.Materials())

	again, err := dstReg.Encode(got)
	require.NoError(t, err)
	assert.Equal(t, data, again, "re-encoding applied state is byte-identical")
}

func TestStaticMeshRejectsBadCount(t *testing.T) {
	w := scene.NewWorld("Demo")
	reg, err := NewRegistry(w)
	require.NoError(t, err)
	obj, _ := w.SpawnByClassName(scene.ClassStaticMeshActor, "Cube1")

	e := protocol.NewEncoder()
	for i := 0; i < 9; i++ {
		e.WriteFloat32(0)
	}
	e.WriteString("/Engine/BasicShapes/Cube.Cube")
	e.WriteInt32(-1)

	err = reg.Decode(obj, e.Bytes())
	assert.ErrorIs(t, err, ErrMaterialCount)
	assert.Empty(t, obj.(*scene.Actor).Mesh(), "mesh is applied only with a valid material list")
}

type bare struct {
	name  string
	class scene.Class
}

func (b *bare) Name() string       { return b.name }
func (b *bare) Alive() bool        { return true }
func (b *bare) Class() scene.Class { return b.class }

func TestMissingCapabilitySkipped(t *testing.T) {
	w := scene.NewWorld("Demo")
	reg, err := NewRegistry(w)
	require.NoError(t, err)

	ref, _ := w.SpawnByClassName(scene.ClassPointLight, "Ref")
	obj := &bare{name: "NoCaps", class: ref.Class()}

	data, err := reg.Encode(obj)
	require.NoError(t, err)
	assert.Empty(t, data)
}
