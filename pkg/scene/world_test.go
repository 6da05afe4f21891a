package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapsync-dev/mapsync/pkg/protocol"
)

func TestWorldSpawnAndFind(t *testing.T) {
	w := NewWorld("Demo")

	obj, err := w.SpawnByClassName(ClassPointLight, "Light1")
	require.NoError(t, err)
	assert.Equal(t, "Light1", obj.Name())
	assert.True(t, obj.Alive())
	assert.Equal(t, obj, w.FindByName("Light1"))
	assert.Equal(t, 1, w.Len())

	_, err = w.SpawnByClassName(ClassPointLight, "Light1")
	assert.ErrorIs(t, err, ErrNameTaken)

	_, err = w.SpawnByClassName("Nope", "X")
	assert.ErrorIs(t, err, ErrUnknownClass)

	assert.Nil(t, w.FindByName("missing"))
}

func TestWorldGeneratedNames(t *testing.T) {
	w := NewWorld("Demo")
	_, err := w.SpawnByClassName(ClassStaticMeshActor, "StaticMeshActor_0")
	require.NoError(t, err)

	obj, err := w.SpawnByClassName(ClassStaticMeshActor, "")
	require.NoError(t, err)
	assert.Equal(t, "StaticMeshActor_1", obj.Name())
}

func TestWorldBlueprint(t *testing.T) {
	w := NewWorld("Demo")
	const path = "/Game/Blueprints/BP_Door.BP_Door_C"

	_, err := w.SpawnByPath(path, "Door")
	require.ErrorIs(t, err, ErrUnknownClass)

	_, err = w.RegisterBlueprint(path, ClassStaticMeshActor)
	require.NoError(t, err)

	obj, err := w.SpawnByPath(path, "Door")
	require.NoError(t, err)
	assert.Equal(t, "BP_Door_C", obj.Class().Name())
	assert.True(t, w.IsA(obj, ClassStaticMeshActor))
	assert.True(t, w.IsA(obj, ClassActor))
	assert.False(t, w.IsA(obj, ClassLight))

	origin, class := ClassRef(obj)
	assert.Equal(t, protocol.OriginPath, origin)
	assert.Equal(t, path, class)
}

func TestWorldIsA(t *testing.T) {
	w := NewWorld("Demo")
	light, _ := w.SpawnByClassName(ClassSpotLight, "Spot")
	mesh, _ := w.SpawnByClassName(ClassStaticMeshActor, "Cube")

	tests := []struct {
		obj      Object
		typeName string
		want     bool
	}{
		{light, ClassSpotLight, true},
		{light, ClassLight, true},
		{light, ClassActor, true},
		{light, ClassStaticMeshActor, false},
		{mesh, ClassStaticMeshActor, true},
		{mesh, ClassLight, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, w.IsA(tc.obj, tc.typeName), "%s IsA %s", tc.obj.Name(), tc.typeName)
	}

	origin, class := ClassRef(light)
	assert.Equal(t, protocol.OriginIntrinsic, origin)
	assert.Equal(t, ClassSpotLight, class)
}

func TestWorldSelection(t *testing.T) {
	w := NewWorld("Demo")
	a, _ := w.SpawnByClassName(ClassActor, "A")
	b, _ := w.SpawnByClassName(ClassActor, "B")

	w.Select(b)
	w.Select(a)
	w.Select(b)
	assert.Equal(t, []Object{b, a}, w.Selected())
	assert.True(t, w.IsSelected(a))

	w.Deselect(b)
	assert.Equal(t, []Object{a}, w.Selected())
	assert.False(t, w.IsSelected(b))

	w.ClearSelection()
	assert.Empty(t, w.Selected())
}

func TestWorldDestroy(t *testing.T) {
	w := NewWorld("Demo")
	obj, _ := w.SpawnByClassName(ClassStaticMeshActor, "Cube1")
	w.Select(obj)

	w.Destroy(obj)
	assert.False(t, obj.Alive())
	assert.Nil(t, w.FindByName("Cube1"))
	assert.Empty(t, w.Selected())
	assert.Zero(t, w.Len())

	// Name is free again.
	_, err := w.SpawnByClassName(ClassStaticMeshActor, "Cube1")
	assert.NoError(t, err)

	// Destroying twice is harmless.
	w.Destroy(obj)
}

func TestWorldRename(t *testing.T) {
	w := NewWorld("Demo")
	cube, _ := w.SpawnByClassName(ClassStaticMeshActor, "Cube")
	_, _ = w.SpawnByClassName(ClassStaticMeshActor, "Other")

	require.NoError(t, w.Rename(cube, "Cube1"))
	assert.Equal(t, "Cube1", cube.Name())
	assert.Equal(t, cube, w.FindByName("Cube1"))
	assert.Nil(t, w.FindByName("Cube"))

	assert.ErrorIs(t, w.Rename(cube, "Other"), ErrNameTaken)

	w.Destroy(cube)
	assert.ErrorIs(t, w.Rename(cube, "Again"), ErrNotLive)
}

func TestActorMaterials(t *testing.T) {
	w := NewWorld("Demo")
	obj, _ := w.SpawnByClassName(ClassStaticMeshActor, "Cube")
	a := obj.(*Actor)

	a.SetMaterial(2, "/Game/M_Red")
	assert.Equal(t, []string{"", "", "/Game/M_Red"}, a.Materials())

	// Returned slice is a copy.
	a.Materials()[0] = "mutated"
	assert.Equal(t, "", a.Materials()[0])
}

func TestSpawnByOrigin(t *testing.T) {
	w := NewWorld("Demo")
	obj, err := Spawn(w, protocol.OriginIntrinsic, ClassPointLight, "Light1")
	require.NoError(t, err)
	assert.Equal(t, ClassPointLight, obj.Class().Name())

	_, err = Spawn(w, protocol.ClassOrigin('?'), ClassPointLight, "Light2")
	assert.ErrorIs(t, err, protocol.ErrUnknownOrigin)
}
